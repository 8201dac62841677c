package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/melodex/server/internal/repository/player"
)

type repo struct {
	players map[string]player.Player
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		players: make(map[string]player.Player),
		logger:  logger,
	}
}

func (r *repo) GetPlayer(ctx context.Context, roomId string) (player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[roomId]
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", player.ErrPlayerNotFound)
		return player.Player{}, player.ErrPlayerNotFound
	}

	return p, nil
}

func (r *repo) UpdatePlayerState(ctx context.Context, params *player.UpdatePlayerStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.players[params.RoomId]
	p.State = params.State
	p.CurrentTime = params.CurrentTime
	p.UpdatedAt = params.UpdatedAt.UnixMilli()
	r.players[params.RoomId] = p

	return nil
}

func (r *repo) UpdatePlayerMuted(ctx context.Context, params *player.UpdatePlayerMutedParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.players[params.RoomId]
	p.IsMuted = params.IsMuted
	r.players[params.RoomId] = p

	return nil
}

func (r *repo) SetCurrentTrack(ctx context.Context, params *player.SetCurrentTrackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.players[params.RoomId]
	p.CurrentTrackId = params.TrackId
	p.State = params.State
	p.CurrentTime = 0
	p.UpdatedAt = params.UpdatedAt.UnixMilli()
	r.players[params.RoomId] = p

	return nil
}
