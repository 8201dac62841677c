package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/track"
)

type ToggleVoteParams struct {
	Identity domain.Identity
	RoomId   string
	TrackId  string
}

type ToggleVoteResponse struct {
	Added   bool
	Upvotes []domain.Vote
}

// ToggleVote adds the identity's vote on the track, or removes it when present.
func (s service) ToggleVote(ctx context.Context, params *ToggleVoteParams) (ToggleVoteResponse, error) {
	if params.Identity.IsZero() {
		return ToggleVoteResponse{}, ErrIdentityRequired
	}

	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TrackId, TrackIdRule...),
	); err != nil {
		return ToggleVoteResponse{}, err
	}

	if err := s.checkIfMember(ctx, params.RoomId, params.Identity); err != nil {
		return ToggleVoteResponse{}, err
	}

	result, err := s.trackRepo.ToggleVote(ctx, &track.ToggleVoteParams{
		VoteId:    uuid.NewString(),
		RoomId:    params.RoomId,
		TrackId:   params.TrackId,
		Voter:     params.Identity,
		CreatedAt: s.now(),
	})
	if err != nil {
		return ToggleVoteResponse{}, fmt.Errorf("failed to toggle vote: %w", err)
	}

	return ToggleVoteResponse{
		Added:   result.Added,
		Upvotes: result.Upvotes,
	}, nil
}
