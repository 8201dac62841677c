package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

const participantColumns = `id, room_id, name, user_id, avatar_url, role, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (domain.Participant, error) {
	var p domain.Participant
	var userId sql.NullString
	var role string
	var createdAt int64
	if err := row.Scan(&p.Id, &p.RoomId, &p.Name, &userId, &p.AvatarUrl, &role, &createdAt); err != nil {
		return domain.Participant{}, err
	}
	p.UserId = nullString(userId)
	p.Role = domain.Role(role)
	p.CreatedAt = fromMicro(createdAt)

	return p, nil
}

// CreateParticipant stores a guest participant.
func (r repo) CreateParticipant(ctx context.Context, params *track.CreateParticipantParams) (domain.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	if _, err := r.exec(ctx, r.db,
		`INSERT INTO participants (id, room_id, name, user_id, avatar_url, role, created_at) VALUES (?, ?, ?, NULL, ?, ?, ?)`,
		params.Id, params.RoomId, params.Name, params.AvatarUrl, string(params.Role), toMicro(params.CreatedAt),
	); err != nil {
		err = fmt.Errorf("failed to insert participant: %w", err)
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Participant{}, err
	}

	return domain.Participant{
		Id:        params.Id,
		RoomId:    params.RoomId,
		Name:      params.Name,
		AvatarUrl: params.AvatarUrl,
		Role:      params.Role,
		CreatedAt: params.CreatedAt.UTC(),
	}, nil
}

// UpsertUserParticipant registers an authenticated user in a room, returning the
// existing participant when the user already joined.
func (r repo) UpsertUserParticipant(ctx context.Context, params *track.UpsertUserParticipantParams) (domain.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var participant domain.Participant
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.exec(ctx, tx,
			`INSERT INTO participants (id, room_id, name, user_id, avatar_url, role, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (room_id, user_id) DO NOTHING`,
			params.Id, params.RoomId, params.Name, params.UserId, params.AvatarUrl, string(params.Role), toMicro(params.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to upsert participant: %w", err)
		}

		p, err := scanParticipant(r.queryRow(ctx, tx,
			`SELECT `+participantColumns+` FROM participants WHERE room_id = ? AND user_id = ?`,
			params.RoomId, params.UserId,
		))
		if err != nil {
			return fmt.Errorf("failed to get participant: %w", err)
		}
		participant = p

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Participant{}, err
	}

	r.logger.DebugContext(ctx, "returned", "participant", participant)
	return participant, nil
}

func (r repo) GetParticipant(ctx context.Context, roomId, participantId string) (domain.Participant, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "participant_id", participantId)

	p, err := scanParticipant(r.queryRow(ctx, r.db,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = ? AND id = ?`,
		roomId, participantId,
	))
	if err != nil {
		if isNoRows(err) {
			err = track.ErrParticipantNotFound
		} else {
			err = fmt.Errorf("failed to get participant: %w", err)
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Participant{}, err
	}

	return p, nil
}

func (r repo) ListParticipants(ctx context.Context, roomId string) ([]domain.Participant, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	rows, err := r.query(ctx, r.db,
		`SELECT `+participantColumns+` FROM participants WHERE room_id = ? ORDER BY created_at ASC, id ASC`, roomId,
	)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	r.logger.DebugContext(ctx, "returned", "count", len(participants))
	return participants, nil
}
