package track

import (
	"time"

	"github.com/melodex/server/internal/domain"
)

type CreateRoomParams struct {
	Id        string
	Name      string
	CreatorId string
	// Participant row created for the creator in the same transaction.
	CreatorParticipantId   string
	CreatorParticipantName string
	CreatedAt              time.Time
}

type CreateParticipantParams struct {
	Id        string
	RoomId    string
	Name      string
	AvatarUrl string
	Role      domain.Role
	CreatedAt time.Time
}

type UpsertUserParticipantParams struct {
	Id        string
	RoomId    string
	UserId    string
	Name      string
	AvatarUrl string
	Role      domain.Role
	CreatedAt time.Time
}

type CreateTrackParams struct {
	Id          string
	RoomId      string
	Url         string
	ExtractedId string
	Type        string
	Title       string
	Thumbnail   string
	Duration    int
	UserId      *string
	CreatedAt   time.Time
}

type ToggleVoteParams struct {
	VoteId    string
	RoomId    string
	TrackId   string
	Voter     domain.Identity
	CreatedAt time.Time
}

type ToggleVoteResult struct {
	Added   bool
	Upvotes []domain.Vote
}
