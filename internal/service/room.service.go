package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/queue"
	"github.com/melodex/server/internal/repository/player"
	"github.com/melodex/server/internal/repository/track"
)

const (
	defaultCreatorName = "Creator"
	roomIdAttempts     = 3
)

type CreateRoomParams struct {
	Auth AuthenticateResponse
	Name string `json:"name"`
}

type CreateRoomResponse struct {
	Room Room
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	userId, ok := params.Auth.Identity.UserId()
	if !ok {
		return CreateRoomResponse{}, ErrIdentityRequired
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Name, RoomNameRule...),
	); err != nil {
		return CreateRoomResponse{}, err
	}

	creatorName := params.Auth.Name
	if creatorName == "" {
		creatorName = defaultCreatorName
	}

	// Room ids are short, so a collision is retried with a fresh id.
	for attempt := 0; attempt < roomIdAttempts; attempt++ {
		roomId, err := s.generator.GenerateRoomId()
		if err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to generate room id: %w", err)
		}

		createRoomParams := track.CreateRoomParams{
			Id:                     roomId,
			Name:                   params.Name,
			CreatorId:              userId,
			CreatorParticipantId:   uuid.NewString(),
			CreatorParticipantName: creatorName,
			CreatedAt:              s.now(),
		}
		err = s.trackRepo.CreateRoom(ctx, &createRoomParams)
		if errors.Is(err, track.ErrRoomAlreadyExists) {
			continue
		}
		if err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
		}

		room, err := s.getRoom(ctx, roomId)
		if err != nil {
			return CreateRoomResponse{}, err
		}

		return CreateRoomResponse{Room: s.mapRoom(room)}, nil
	}

	return CreateRoomResponse{}, track.ErrRoomAlreadyExists
}

// GetRoom returns the room with its participants, current track and ordered queue.
func (s service) GetRoom(ctx context.Context, roomId string) (RoomState, error) {
	if err := validation.Validate(roomId, RoomIdRule...); err != nil {
		return RoomState{}, track.ErrRoomNotFound
	}

	room, err := s.getRoom(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	participants, err := s.trackRepo.ListParticipants(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to list participants: %w", err)
	}

	tracks, err := s.trackRepo.ListTracks(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to list tracks: %w", err)
	}

	p, err := s.getPlayer(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	q := queue.New(tracks, p.CurrentTrackId)

	return RoomState{
		Room:         s.mapRoom(room),
		Participants: participants,
		CurrentTrack: q.Current(),
		Queue:        q.Pending(),
		Player:       p,
	}, nil
}

// getPlayer returns the stored player, or an unstarted one when the creator
// never reported any state.
func (s service) getPlayer(ctx context.Context, roomId string) (Player, error) {
	stored, err := s.playerRepo.GetPlayer(ctx, roomId)
	if err != nil {
		if errors.Is(err, player.ErrPlayerNotFound) {
			return Player{
				State:             playback.StateUnstarted,
				HeartbeatInterval: s.heartbeatInterval.Seconds(),
			}, nil
		}
		return Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	state := playback.State(stored.State)
	if state == "" {
		state = playback.StateUnstarted
	}
	updatedAt := stored.UpdatedAtTime()

	return Player{
		CurrentTrackId:    stored.CurrentTrackId,
		State:             state,
		CurrentTime:       playback.Position(state, stored.CurrentTime, updatedAt, s.now()),
		IsMuted:           stored.IsMuted,
		UpdatedAt:         updatedAt,
		HeartbeatInterval: s.heartbeatInterval.Seconds(),
	}, nil
}
