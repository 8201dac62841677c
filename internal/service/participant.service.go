package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

type JoinRoomParams struct {
	Auth      AuthenticateResponse
	RoomId    string
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl"`
}

type JoinRoomResponse struct {
	Participant domain.Participant
}

// JoinRoom registers a participant. A user is upserted so joining again returns
// the same participant; a guest always gets a fresh participant id.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if params.Name == "" && params.Auth.Identity.IsUser() {
		params.Name = params.Auth.Name
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Name, ParticipantNameRule...),
		validation.Field(&params.AvatarUrl, AvatarUrlRule...),
	); err != nil {
		return JoinRoomResponse{}, err
	}

	if _, err := s.getRoom(ctx, params.RoomId); err != nil {
		return JoinRoomResponse{}, err
	}

	if userId, ok := params.Auth.Identity.UserId(); ok {
		participant, err := s.trackRepo.UpsertUserParticipant(ctx, &track.UpsertUserParticipantParams{
			Id:        uuid.NewString(),
			RoomId:    params.RoomId,
			UserId:    userId,
			Name:      params.Name,
			AvatarUrl: params.AvatarUrl,
			Role:      domain.RoleSubcreator,
			CreatedAt: s.now(),
		})
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to upsert participant: %w", err)
		}

		return JoinRoomResponse{Participant: participant}, nil
	}

	participant, err := s.trackRepo.CreateParticipant(ctx, &track.CreateParticipantParams{
		Id:        uuid.NewString(),
		RoomId:    params.RoomId,
		Name:      params.Name,
		AvatarUrl: params.AvatarUrl,
		Role:      domain.RoleSubcreator,
		CreatedAt: s.now(),
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to create participant: %w", err)
	}

	return JoinRoomResponse{Participant: participant}, nil
}

func (s service) ListParticipants(ctx context.Context, roomId string) ([]domain.Participant, error) {
	if _, err := s.getRoom(ctx, roomId); err != nil {
		return nil, err
	}

	participants, err := s.trackRepo.ListParticipants(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return participants, nil
}

type AuthorizeJoinParams struct {
	RoomId   string
	Identity domain.Identity
}

// AuthorizeJoin checks that the identity may receive the room's traffic.
func (s service) AuthorizeJoin(ctx context.Context, params *AuthorizeJoinParams) error {
	if err := validation.Validate(params.RoomId, RoomIdRule...); err != nil {
		return track.ErrRoomNotFound
	}

	return s.checkIfMember(ctx, params.RoomId, params.Identity)
}

type AnnounceParticipantParams struct {
	RoomId        string
	ParticipantId string
	Identity      domain.Identity
}

// AnnounceParticipant returns the stored participant a session announces. A
// session may only announce the participant of its own identity.
func (s service) AnnounceParticipant(ctx context.Context, params *AnnounceParticipantParams) (domain.Participant, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.ParticipantId, ParticipantIdRule...),
	); err != nil {
		return domain.Participant{}, err
	}

	participant, err := s.trackRepo.GetParticipant(ctx, params.RoomId, params.ParticipantId)
	if err != nil {
		if errors.Is(err, track.ErrParticipantNotFound) {
			return domain.Participant{}, ErrNotRoomMember
		}
		return domain.Participant{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if participant.Identity() != params.Identity {
		return domain.Participant{}, ErrPermissionDenied
	}

	return participant, nil
}
