package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

func (r repo) CreateRoom(ctx context.Context, params *track.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.exec(ctx, tx,
			`INSERT INTO rooms (id, name, creator_id, created_at) VALUES (?, ?, ?, ?)`,
			params.Id, params.Name, params.CreatorId, toMicro(params.CreatedAt),
		); err != nil {
			if isUniqueViolation(err) {
				return track.ErrRoomAlreadyExists
			}
			return fmt.Errorf("failed to insert room: %w", err)
		}

		if _, err := r.exec(ctx, tx,
			`INSERT INTO participants (id, room_id, name, user_id, avatar_url, role, created_at) VALUES (?, ?, ?, ?, '', ?, ?)`,
			params.CreatorParticipantId, params.Id, params.CreatorParticipantName, params.CreatorId, string(domain.RoleCreator), toMicro(params.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert creator participant: %w", err)
		}

		return nil
	})
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (domain.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	var room domain.Room
	var createdAt int64
	err := r.queryRow(ctx, r.db,
		`SELECT id, name, creator_id, created_at FROM rooms WHERE id = ?`, roomId,
	).Scan(&room.Id, &room.Name, &room.CreatorId, &createdAt)
	if err != nil {
		if isNoRows(err) {
			err = track.ErrRoomNotFound
		} else {
			err = fmt.Errorf("failed to get room: %w", err)
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return domain.Room{}, err
	}
	room.CreatedAt = fromMicro(createdAt)

	r.logger.DebugContext(ctx, "returned", "room", room)
	return room, nil
}
