package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/melodex/server/internal/repository/player"
)

type repo struct {
	rc             *redis.Client
	expireDuration time.Duration
	logger         *slog.Logger
}

func NewRepo(rc *redis.Client, expireDuration time.Duration, logger *slog.Logger) *repo {
	return &repo{
		rc:             rc,
		expireDuration: expireDuration,
		logger:         logger,
	}
}

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

// hSet writes fields and refreshes the key's ttl in one transaction.
func (r repo) hSet(ctx context.Context, roomId string, values ...any) error {
	playerKey := r.getPlayerKey(roomId)

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, playerKey, values...)
	pipe.Expire(ctx, playerKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetPlayer(ctx context.Context, roomId string) (player.Player, error) {
	playerKey := r.getPlayerKey(roomId)

	res := r.rc.HGetAll(ctx, playerKey)
	if err := res.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return player.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(res.Val()) == 0 {
		return player.Player{}, player.ErrPlayerNotFound
	}

	var p player.Player
	if err := res.Scan(&p); err != nil {
		return player.Player{}, fmt.Errorf("failed to scan player: %w", err)
	}

	return p, nil
}

func (r repo) UpdatePlayerState(ctx context.Context, params *player.UpdatePlayerStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	if err := r.hSet(ctx, params.RoomId,
		"state", params.State,
		"current_time", params.CurrentTime,
		"updated_at", params.UpdatedAt.UnixMilli(),
	); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to update player state: %w", err)
	}

	return nil
}

func (r repo) UpdatePlayerMuted(ctx context.Context, params *player.UpdatePlayerMutedParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	if err := r.hSet(ctx, params.RoomId,
		"is_muted", params.IsMuted,
	); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to update player muted: %w", err)
	}

	return nil
}

func (r repo) SetCurrentTrack(ctx context.Context, params *player.SetCurrentTrackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	if err := r.hSet(ctx, params.RoomId,
		"current_track_id", params.TrackId,
		"state", params.State,
		"current_time", 0,
		"updated_at", params.UpdatedAt.UnixMilli(),
	); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set current track: %w", err)
	}

	return nil
}
