package player

import (
	"errors"
	"time"
)

var ErrPlayerNotFound = errors.New("player not found")

// Player is the last playback state reported by a room's creator.
type Player struct {
	CurrentTrackId string  `redis:"current_track_id"`
	State          string  `redis:"state"`
	CurrentTime    float64 `redis:"current_time"`
	IsMuted        bool    `redis:"is_muted"`
	UpdatedAt      int64   `redis:"updated_at"`
}

func (p Player) UpdatedAtTime() time.Time {
	return time.UnixMilli(p.UpdatedAt)
}

type UpdatePlayerStateParams struct {
	RoomId      string
	State       string
	CurrentTime float64
	UpdatedAt   time.Time
}

// UpdatePlayerMutedParams leaves the position and its timestamp untouched.
type UpdatePlayerMutedParams struct {
	RoomId  string
	IsMuted bool
}

// SetCurrentTrackParams switches the current track. An empty TrackId clears it.
// The position resets to zero and the state to State.
type SetCurrentTrackParams struct {
	RoomId    string
	TrackId   string
	State     string
	UpdatedAt time.Time
}
