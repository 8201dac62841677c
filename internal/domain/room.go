package domain

import "time"

type Role string

const (
	RoleCreator    Role = "CREATOR"
	RoleSubcreator Role = "SUBCREATOR"
)

type Room struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorId string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsCreator reports whether identity is the authenticated user that created the room.
func (r Room) IsCreator(identity Identity) bool {
	userId, ok := identity.UserId()
	return ok && userId == r.CreatorId
}

// Participant is a joined identity. A nil UserId marks a guest.
type Participant struct {
	Id        string    `json:"id"`
	RoomId    string    `json:"roomId"`
	Name      string    `json:"name"`
	UserId    *string   `json:"userId"`
	AvatarUrl string    `json:"avatarUrl"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Participant) IsGuest() bool {
	return p.UserId == nil
}

// Identity is the identity the participant votes and broadcasts with.
func (p Participant) Identity() Identity {
	if p.UserId != nil {
		return UserIdentity(*p.UserId)
	}
	return GuestIdentity(p.Id)
}
