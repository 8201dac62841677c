package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/queue"
	"github.com/melodex/server/internal/repository/track"
	"github.com/melodex/server/pkg/mediadata"
)

type AddTrackParams struct {
	Auth   AuthenticateResponse
	RoomId string
	Url    string `json:"url"`
}

type AddTrackResponse struct {
	Track domain.Track
}

func (s service) AddTrack(ctx context.Context, params *AddTrackParams) (AddTrackResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Url, TrackUrlRule...),
	); err != nil {
		return AddTrackResponse{}, err
	}

	if err := s.checkIfMember(ctx, params.RoomId, params.Auth.Identity); err != nil {
		return AddTrackResponse{}, err
	}

	pending, err := s.trackRepo.CountPendingTracks(ctx, params.RoomId)
	if err != nil {
		return AddTrackResponse{}, fmt.Errorf("failed to count tracks: %w", err)
	}

	if pending >= s.playlistLimit {
		return AddTrackResponse{}, ErrPlaylistLimitReached
	}

	metadata, err := s.metadata.Get(ctx, params.Url)
	if err != nil {
		if errors.Is(err, mediadata.ErrUnsupportedUrl) {
			return AddTrackResponse{}, ErrUnsupportedSource
		}
		return AddTrackResponse{}, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}

	var userId *string
	if id, ok := params.Auth.Identity.UserId(); ok {
		userId = &id
	}

	created, err := s.trackRepo.CreateTrack(ctx, &track.CreateTrackParams{
		Id:          uuid.NewString(),
		RoomId:      params.RoomId,
		Url:         params.Url,
		ExtractedId: metadata.ExternalId,
		Type:        string(metadata.Source),
		Title:       metadata.Title,
		Thumbnail:   metadata.ThumbnailUrl,
		Duration:    metadata.DurationSeconds,
		UserId:      userId,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return AddTrackResponse{}, fmt.Errorf("failed to create track: %w", err)
	}

	return AddTrackResponse{Track: created}, nil
}

// ListTracks returns every track of the room, most voted first, earliest first among equals.
func (s service) ListTracks(ctx context.Context, roomId string) ([]domain.Track, error) {
	if _, err := s.getRoom(ctx, roomId); err != nil {
		return nil, err
	}

	tracks, err := s.trackRepo.ListTracks(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	queue.Sort(tracks)

	return tracks, nil
}

type GetTrackParams struct {
	RoomId  string
	TrackId string
}

func (s service) GetTrack(ctx context.Context, params *GetTrackParams) (domain.Track, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TrackId, TrackIdRule...),
	); err != nil {
		return domain.Track{}, err
	}

	t, err := s.trackRepo.GetTrack(ctx, params.RoomId, params.TrackId)
	if err != nil {
		return domain.Track{}, fmt.Errorf("failed to get track: %w", err)
	}

	return t, nil
}

type MarkPlayedParams struct {
	Auth    AuthenticateResponse
	RoomId  string
	TrackId string
}

func (s service) MarkPlayed(ctx context.Context, params *MarkPlayedParams) (domain.Track, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TrackId, TrackIdRule...),
	); err != nil {
		return domain.Track{}, err
	}

	if _, err := s.checkIfCreator(ctx, params.RoomId, params.Auth.Identity); err != nil {
		return domain.Track{}, err
	}

	t, err := s.trackRepo.MarkPlayed(ctx, params.RoomId, params.TrackId)
	if err != nil {
		return domain.Track{}, fmt.Errorf("failed to mark track played: %w", err)
	}

	return t, nil
}
