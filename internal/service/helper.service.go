package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

const (
	roomIdAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	roomIdLength   = 10
)

type nanoidGenerator struct{}

func (nanoidGenerator) GenerateRoomId() (string, error) {
	return gonanoid.Generate(roomIdAlphabet, roomIdLength)
}

func (s service) getRoom(ctx context.Context, roomId string) (domain.Room, error) {
	room, err := s.trackRepo.GetRoom(ctx, roomId)
	if err != nil {
		return domain.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (s service) checkIfCreator(ctx context.Context, roomId string, identity domain.Identity) (domain.Room, error) {
	room, err := s.getRoom(ctx, roomId)
	if err != nil {
		return domain.Room{}, err
	}

	if !room.IsCreator(identity) {
		return domain.Room{}, ErrPermissionDenied
	}

	return room, nil
}

// checkIfMember accepts users as members of any existing room and guests only
// in the room their participant belongs to.
func (s service) checkIfMember(ctx context.Context, roomId string, identity domain.Identity) error {
	if identity.IsZero() {
		return ErrIdentityRequired
	}

	if participantId, ok := identity.ParticipantId(); ok {
		if _, err := s.trackRepo.GetParticipant(ctx, roomId, participantId); err != nil {
			if errors.Is(err, track.ErrParticipantNotFound) {
				return ErrNotRoomMember
			}
			return fmt.Errorf("failed to get participant: %w", err)
		}
		return nil
	}

	_, err := s.getRoom(ctx, roomId)
	return err
}

func (s service) inviteUrl(roomId string) string {
	return strings.TrimSuffix(s.baseUrl, "/") + "/room/" + roomId
}
