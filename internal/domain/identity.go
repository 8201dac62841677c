package domain

import "errors"

var ErrInvalidIdentity = errors.New("identity must be either a user or a guest participant")

type identityKind uint8

const (
	identityNone identityKind = iota
	identityUser
	identityGuest
)

// Identity is either an authenticated user or a guest participant, never both.
// The zero value is the anonymous identity.
type Identity struct {
	kind identityKind
	id   string
}

func UserIdentity(userId string) Identity {
	if userId == "" {
		return Identity{}
	}
	return Identity{kind: identityUser, id: userId}
}

func GuestIdentity(participantId string) Identity {
	if participantId == "" {
		return Identity{}
	}
	return Identity{kind: identityGuest, id: participantId}
}

func (i Identity) IsZero() bool  { return i.kind == identityNone }
func (i Identity) IsUser() bool  { return i.kind == identityUser }
func (i Identity) IsGuest() bool { return i.kind == identityGuest }

// Id returns the user id or participant id, whichever is set.
func (i Identity) Id() string { return i.id }

func (i Identity) UserId() (string, bool) {
	return i.id, i.kind == identityUser
}

func (i Identity) ParticipantId() (string, bool) {
	return i.id, i.kind == identityGuest
}

func (i Identity) String() string {
	switch i.kind {
	case identityUser:
		return "user:" + i.id
	case identityGuest:
		return "guest:" + i.id
	default:
		return "anonymous"
	}
}

// IdentityFromColumns builds an identity from a pair of nullable columns where exactly one must be set.
func IdentityFromColumns(userId, participantId *string) (Identity, error) {
	switch {
	case userId != nil && participantId == nil && *userId != "":
		return UserIdentity(*userId), nil
	case participantId != nil && userId == nil && *participantId != "":
		return GuestIdentity(*participantId), nil
	default:
		return Identity{}, ErrInvalidIdentity
	}
}

// Columns is the inverse of IdentityFromColumns.
func (i Identity) Columns() (userId, participantId *string) {
	id := i.id
	switch i.kind {
	case identityUser:
		return &id, nil
	case identityGuest:
		return nil, &id
	default:
		return nil, nil
	}
}
