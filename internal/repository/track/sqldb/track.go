package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

const trackColumns = `t.id, t.room_id, t.seq, t.url, t.extracted_id, t.type, t.title, t.thumbnail, t.duration, t.user_id, t.played, t.created_at`

func (r repo) forUpdate() string {
	if r.dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func scanTrack(row rowScanner, extra ...any) (domain.Track, error) {
	var t domain.Track
	var userId sql.NullString
	var createdAt int64
	dest := []any{&t.Id, &t.RoomId, &t.Seq, &t.Url, &t.ExtractedId, &t.Type, &t.Title, &t.Thumbnail, &t.Duration, &userId, &t.Played, &createdAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Track{}, err
	}
	t.UserId = nullString(userId)
	t.CreatedAt = fromMicro(createdAt)
	t.Upvotes = []domain.Vote{}

	return t, nil
}

func (r repo) lockRoom(ctx context.Context, q querier, roomId string) error {
	var id string
	if err := r.queryRow(ctx, q, `SELECT id FROM rooms WHERE id = ?`+r.forUpdate(), roomId).Scan(&id); err != nil {
		if isNoRows(err) {
			return track.ErrRoomNotFound
		}
		return fmt.Errorf("failed to lock room: %w", err)
	}
	return nil
}

func (r repo) CreateTrack(ctx context.Context, params *track.CreateTrackParams) (domain.Track, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var seq int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.lockRoom(ctx, tx, params.RoomId); err != nil {
			return err
		}

		if err := r.queryRow(ctx, tx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM tracks WHERE room_id = ?`, params.RoomId,
		).Scan(&seq); err != nil {
			return fmt.Errorf("failed to get next seq: %w", err)
		}

		if _, err := r.exec(ctx, tx,
			`INSERT INTO tracks (id, room_id, seq, url, extracted_id, type, title, thumbnail, duration, user_id, played, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			params.Id, params.RoomId, seq, params.Url, params.ExtractedId, params.Type, params.Title,
			params.Thumbnail, params.Duration, params.UserId, false, toMicro(params.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Track{}, err
	}

	created := domain.Track{
		Id:          params.Id,
		RoomId:      params.RoomId,
		Url:         params.Url,
		ExtractedId: params.ExtractedId,
		Type:        params.Type,
		Title:       params.Title,
		Thumbnail:   params.Thumbnail,
		Duration:    params.Duration,
		UserId:      params.UserId,
		CreatedAt:   fromMicro(toMicro(params.CreatedAt)),
		Seq:         seq,
		Upvotes:     []domain.Vote{},
	}

	r.logger.DebugContext(ctx, "returned", "track_id", created.Id, "seq", seq)
	return created, nil
}

func (r repo) GetTrack(ctx context.Context, roomId, trackId string) (domain.Track, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "track_id", trackId)

	t, err := r.getTrack(ctx, r.db, roomId, trackId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Track{}, err
	}

	return t, nil
}

func (r repo) getTrack(ctx context.Context, q querier, roomId, trackId string) (domain.Track, error) {
	t, err := scanTrack(r.queryRow(ctx, q,
		`SELECT `+trackColumns+` FROM tracks t WHERE t.room_id = ? AND t.id = ?`, roomId, trackId,
	))
	if err != nil {
		if isNoRows(err) {
			return domain.Track{}, track.ErrTrackNotFound
		}
		return domain.Track{}, fmt.Errorf("failed to get track: %w", err)
	}

	votes, err := r.listVotes(ctx, q, trackId)
	if err != nil {
		return domain.Track{}, err
	}
	t.Upvotes = votes

	return t, nil
}

// ListTracks returns every track of the room, most voted first, then oldest first.
func (r repo) ListTracks(ctx context.Context, roomId string) ([]domain.Track, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	rows, err := r.query(ctx, r.db,
		`SELECT `+trackColumns+`, (SELECT COUNT(*) FROM votes v WHERE v.track_id = t.id) AS vote_count
		FROM tracks t
		WHERE t.room_id = ?
		ORDER BY vote_count DESC, t.created_at ASC, t.seq ASC`, roomId,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]domain.Track, 0)
	index := make(map[string]int)
	for rows.Next() {
		var voteCount int
		t, err := scanTrack(rows, &voteCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		index[t.Id] = len(tracks)
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}
	rows.Close()

	votes, err := r.listRoomVotes(ctx, roomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}
	for _, v := range votes {
		if i, ok := index[v.TrackId]; ok {
			tracks[i].Upvotes = append(tracks[i].Upvotes, v)
		}
	}

	r.logger.DebugContext(ctx, "returned", "count", len(tracks))
	return tracks, nil
}

// CountPendingTracks counts tracks of the room that were not played yet.
func (r repo) CountPendingTracks(ctx context.Context, roomId string) (int, error) {
	var count int
	if err := r.queryRow(ctx, r.db,
		`SELECT COUNT(*) FROM tracks WHERE room_id = ? AND played = ?`, roomId, false,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	return count, nil
}

func (r repo) MarkPlayed(ctx context.Context, roomId, trackId string) (domain.Track, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "track_id", trackId)

	var updated domain.Track
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := r.exec(ctx, tx, `UPDATE tracks SET played = ? WHERE room_id = ? AND id = ?`, true, roomId, trackId)
		if err != nil {
			return fmt.Errorf("failed to mark track played: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if n == 0 {
			return track.ErrTrackNotFound
		}

		updated, err = r.getTrack(ctx, tx, roomId, trackId)
		return err
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Track{}, err
	}

	return updated, nil
}
