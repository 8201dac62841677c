package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

const voteColumns = `v.id, v.track_id, v.user_id, v.participant_id, v.value, v.created_at`

func scanVote(row rowScanner) (domain.Vote, error) {
	var v domain.Vote
	var userId, participantId sql.NullString
	var createdAt int64
	if err := row.Scan(&v.Id, &v.TrackId, &userId, &participantId, &v.Value, &createdAt); err != nil {
		return domain.Vote{}, err
	}

	voter, err := domain.IdentityFromColumns(nullString(userId), nullString(participantId))
	if err != nil {
		return domain.Vote{}, fmt.Errorf("vote %s: %w", v.Id, err)
	}
	v.Voter = voter
	v.CreatedAt = fromMicro(createdAt)

	return v, nil
}

func collectVotes(rows *sql.Rows) ([]domain.Vote, error) {
	defer rows.Close()

	votes := make([]domain.Vote, 0)
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

func (r repo) listVotes(ctx context.Context, q querier, trackId string) ([]domain.Vote, error) {
	rows, err := r.query(ctx, q,
		`SELECT `+voteColumns+` FROM votes v WHERE v.track_id = ? ORDER BY v.created_at ASC, v.id ASC`, trackId,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	return collectVotes(rows)
}

func (r repo) listRoomVotes(ctx context.Context, roomId string) ([]domain.Vote, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+voteColumns+` FROM votes v JOIN tracks t ON t.id = v.track_id
		WHERE t.room_id = ? ORDER BY v.created_at ASC, v.id ASC`, roomId,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list room votes: %w", err)
	}

	return collectVotes(rows)
}

// ToggleVote removes the voter's vote on the track when present and adds it otherwise.
// The track row is locked for the duration so toggles on one track are serialized.
func (r repo) ToggleVote(ctx context.Context, params *track.ToggleVoteParams) (track.ToggleVoteResult, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	userId, participantId := params.Voter.Columns()
	if userId == nil && participantId == nil {
		return track.ToggleVoteResult{}, domain.ErrInvalidIdentity
	}

	var result track.ToggleVoteResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		if err := r.queryRow(ctx, tx,
			`SELECT id FROM tracks WHERE room_id = ? AND id = ?`+r.forUpdate(), params.RoomId, params.TrackId,
		).Scan(&id); err != nil {
			if isNoRows(err) {
				return track.ErrTrackNotFound
			}
			return fmt.Errorf("failed to lock track: %w", err)
		}

		var res sql.Result
		var err error
		if userId != nil {
			res, err = r.exec(ctx, tx, `DELETE FROM votes WHERE track_id = ? AND user_id = ?`, params.TrackId, *userId)
		} else {
			res, err = r.exec(ctx, tx, `DELETE FROM votes WHERE track_id = ? AND participant_id = ?`, params.TrackId, *participantId)
		}
		if err != nil {
			return fmt.Errorf("failed to delete vote: %w", err)
		}

		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}

		if removed == 0 {
			if _, err := r.exec(ctx, tx,
				`INSERT INTO votes (id, track_id, user_id, participant_id, value, created_at) VALUES (?, ?, ?, ?, 1, ?)`,
				params.VoteId, params.TrackId, userId, participantId, toMicro(params.CreatedAt),
			); err != nil {
				return fmt.Errorf("failed to insert vote: %w", err)
			}
			result.Added = true
		}

		votes, err := r.listVotes(ctx, tx, params.TrackId)
		if err != nil {
			return err
		}
		result.Upvotes = votes

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return track.ToggleVoteResult{}, err
	}

	r.logger.DebugContext(ctx, "returned", "added", result.Added, "count", len(result.Upvotes))
	return result, nil
}
