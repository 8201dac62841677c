package playback

import (
	"sync"
	"time"
)

type Snapshot struct {
	State       State
	CurrentTime float64
	IsMuted     bool
}

// Follower applies received updates as they come, without smoothing.
type Follower struct {
	player Player
	now    func() time.Time

	mu          sync.Mutex
	state       State
	currentTime float64
	updatedAt   time.Time
	muted       bool
}

// NewFollower returns a follower driving player. A nil player only tracks state.
func NewFollower(player Player) *Follower {
	return &Follower{
		player: player,
		now:    time.Now,
		state:  StateUnstarted,
	}
}

func (f *Follower) Apply(u Update) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = u.Action.Next(f.state)
	f.currentTime = u.CurrentTime
	f.updatedAt = f.now()

	if f.player == nil {
		return
	}

	f.player.SeekTo(u.CurrentTime)
	switch u.Action {
	case ActionPlay, ActionPlaying:
		f.player.Play()
	case ActionPause:
		f.player.Pause()
	}
}

func (f *Follower) ApplyMute(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.muted = muted
	if f.player != nil {
		f.player.SetMuted(muted)
	}
}

func (f *Follower) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Snapshot{
		State:       f.state,
		CurrentTime: Position(f.state, f.currentTime, f.updatedAt, f.now()),
		IsMuted:     f.muted,
	}
}
