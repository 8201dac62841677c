package playback

import (
	"sync"
	"time"
)

// Leader emits the creator's playback state: immediately on play, pause and
// seek, and on every interval while playing. emit is called with the leader's
// lock held, so it must not call back into the Leader.
type Leader struct {
	roomId   string
	interval time.Duration
	emit     func(Update)
	now      func() time.Time

	mu         sync.Mutex
	state      State
	position   float64
	positionAt time.Time
	ticking    bool
	closed     bool
	done       chan struct{}
	wg         sync.WaitGroup
}

func NewLeader(roomId string, interval time.Duration, emit func(Update)) *Leader {
	return &Leader{
		roomId:   roomId,
		interval: interval,
		emit:     emit,
		now:      time.Now,
		state:    StateUnstarted,
		done:     make(chan struct{}),
	}
}

func (l *Leader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

func (l *Leader) Position() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.currentPosition()
}

func (l *Leader) currentPosition() float64 {
	return Position(l.state, l.position, l.positionAt, l.now())
}

func (l *Leader) Play(at float64) {
	l.transition(ActionPlay, at)
}

func (l *Leader) Pause(at float64) {
	l.transition(ActionPause, at)
}

func (l *Leader) Seek(at float64) {
	l.transition(ActionSeek, at)
}

func (l *Leader) transition(action Action, at float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.state = action.Next(l.state)
	l.position = at
	l.positionAt = l.now()
	l.emit(Update{RoomId: l.roomId, Action: action, CurrentTime: at})

	if l.state == StatePlaying && !l.ticking {
		l.ticking = true
		l.wg.Add(1)
		go l.heartbeat()
	}
}

// heartbeat stops on its own once the leader leaves the playing state.
func (l *Leader) heartbeat() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			if l.closed || l.state != StatePlaying {
				l.ticking = false
				l.mu.Unlock()
				return
			}
			l.emit(Update{RoomId: l.roomId, Action: ActionPlaying, CurrentTime: l.currentPosition()})
			l.mu.Unlock()
		}
	}
}

// Close stops the heartbeat. Later transitions are ignored.
func (l *Leader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.ticking = false
	close(l.done)
	l.mu.Unlock()

	l.wg.Wait()
}
