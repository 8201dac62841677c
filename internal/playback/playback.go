// Package playback models the room player state machine: the creator's session
// leads with a heartbeat and every other session follows it.
package playback

import (
	"errors"
	"time"
)

type State string

const (
	StateUnstarted State = "unstarted"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
)

// Action is the "state" tag carried by a playbackUpdate.
type Action string

const (
	ActionPlay  Action = "play"
	ActionPause Action = "pause"
	ActionSeek  Action = "seek"
	// ActionPlaying marks a heartbeat.
	ActionPlaying Action = "playing"
)

var ErrUnknownAction = errors.New("unknown playback action")

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionPlay, ActionPause, ActionSeek, ActionPlaying:
		return a, nil
	}

	return "", ErrUnknownAction
}

// Next returns the state reached from current after a.
func (a Action) Next(current State) State {
	switch a {
	case ActionPlay, ActionPlaying:
		return StatePlaying
	case ActionPause:
		return StatePaused
	}

	return current
}

type Update struct {
	RoomId      string  `json:"roomId"`
	Action      Action  `json:"state"`
	CurrentTime float64 `json:"currentTime"`
}

func (u Update) GetRoomId() string { return u.RoomId }

type MuteUpdate struct {
	RoomId  string `json:"roomId"`
	IsMuted bool   `json:"isMuted"`
}

func (u MuteUpdate) GetRoomId() string { return u.RoomId }

// Position extrapolates a position reported at updatedAt to now.
func Position(state State, currentTime float64, updatedAt, now time.Time) float64 {
	if state != StatePlaying || updatedAt.IsZero() || now.Before(updatedAt) {
		return currentTime
	}

	return currentTime + now.Sub(updatedAt).Seconds()
}

// Player is the local media surface driven by a Follower.
type Player interface {
	Play()
	Pause()
	SeekTo(seconds float64)
	SetMuted(muted bool)
}
