package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/repository/player"
)

type UpdatePlaybackParams struct {
	Identity    domain.Identity
	RoomId      string
	State       string  `json:"state"`
	CurrentTime float64 `json:"currentTime"`
}

// UpdatePlayback records the creator's player state and returns the update to relay.
func (s service) UpdatePlayback(ctx context.Context, params *UpdatePlaybackParams) (playback.Update, error) {
	if _, err := s.checkIfCreator(ctx, params.RoomId, params.Identity); err != nil {
		return playback.Update{}, err
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.State, validation.Required, validation.In("play", "pause", "seek", "playing")),
		validation.Field(&params.CurrentTime, CurrentTimeRule...),
	); err != nil {
		return playback.Update{}, err
	}

	action, err := playback.ParseAction(params.State)
	if err != nil {
		return playback.Update{}, err
	}

	p, err := s.getPlayer(ctx, params.RoomId)
	if err != nil {
		return playback.Update{}, err
	}

	if err := s.playerRepo.UpdatePlayerState(ctx, &player.UpdatePlayerStateParams{
		RoomId:      params.RoomId,
		State:       string(action.Next(p.State)),
		CurrentTime: params.CurrentTime,
		UpdatedAt:   s.now(),
	}); err != nil {
		return playback.Update{}, fmt.Errorf("failed to update player state: %w", err)
	}

	return playback.Update{
		RoomId:      params.RoomId,
		Action:      action,
		CurrentTime: params.CurrentTime,
	}, nil
}

type UpdateMuteParams struct {
	Identity domain.Identity
	RoomId   string
	IsMuted  bool
}

func (s service) UpdateMute(ctx context.Context, params *UpdateMuteParams) (playback.MuteUpdate, error) {
	if _, err := s.checkIfCreator(ctx, params.RoomId, params.Identity); err != nil {
		return playback.MuteUpdate{}, err
	}

	if err := s.playerRepo.UpdatePlayerMuted(ctx, &player.UpdatePlayerMutedParams{
		RoomId:  params.RoomId,
		IsMuted: params.IsMuted,
	}); err != nil {
		return playback.MuteUpdate{}, fmt.Errorf("failed to update player muted: %w", err)
	}

	return playback.MuteUpdate{
		RoomId:  params.RoomId,
		IsMuted: params.IsMuted,
	}, nil
}

type ChangeCurrentTrackParams struct {
	Identity domain.Identity
	RoomId   string
	// TrackId is empty when the queue ran out.
	TrackId string `json:"trackId"`
}

type ChangeCurrentTrackResponse struct {
	CurrentTrack *domain.Track
	// Previous is the track that was current before, now marked played.
	Previous *domain.Track
}

// ChangeCurrentTrack makes the track current and marks the one it replaces as played.
func (s service) ChangeCurrentTrack(ctx context.Context, params *ChangeCurrentTrackParams) (ChangeCurrentTrackResponse, error) {
	if _, err := s.checkIfCreator(ctx, params.RoomId, params.Identity); err != nil {
		return ChangeCurrentTrackResponse{}, err
	}

	var current *domain.Track
	if params.TrackId != "" {
		t, err := s.GetTrack(ctx, &GetTrackParams{RoomId: params.RoomId, TrackId: params.TrackId})
		if err != nil {
			return ChangeCurrentTrackResponse{}, err
		}
		current = &t
	}

	p, err := s.getPlayer(ctx, params.RoomId)
	if err != nil {
		return ChangeCurrentTrackResponse{}, err
	}

	var previous *domain.Track
	if p.CurrentTrackId != "" && p.CurrentTrackId != params.TrackId {
		t, err := s.trackRepo.MarkPlayed(ctx, params.RoomId, p.CurrentTrackId)
		if err != nil {
			return ChangeCurrentTrackResponse{}, fmt.Errorf("failed to mark previous track played: %w", err)
		}
		previous = &t
	}

	if err := s.playerRepo.SetCurrentTrack(ctx, &player.SetCurrentTrackParams{
		RoomId:    params.RoomId,
		TrackId:   params.TrackId,
		State:     string(playback.StateUnstarted),
		UpdatedAt: s.now(),
	}); err != nil {
		return ChangeCurrentTrackResponse{}, fmt.Errorf("failed to set current track: %w", err)
	}

	return ChangeCurrentTrackResponse{
		CurrentTrack: current,
		Previous:     previous,
	}, nil
}

type PlaybackSnapshot struct {
	Player       Player
	CurrentTrack *domain.Track
}

// GetPlaybackSnapshot returns the state a late joiner needs before the next heartbeat.
func (s service) GetPlaybackSnapshot(ctx context.Context, roomId string) (PlaybackSnapshot, error) {
	p, err := s.getPlayer(ctx, roomId)
	if err != nil {
		return PlaybackSnapshot{}, err
	}

	snapshot := PlaybackSnapshot{Player: p}
	if p.CurrentTrackId != "" {
		t, err := s.trackRepo.GetTrack(ctx, roomId, p.CurrentTrackId)
		if err != nil {
			return PlaybackSnapshot{}, fmt.Errorf("failed to get current track: %w", err)
		}
		snapshot.CurrentTrack = &t
	}

	return snapshot, nil
}
