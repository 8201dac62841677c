package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) emit(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func (r *recorder) count(action Action) int {
	n := 0
	for _, u := range r.all() {
		if u.Action == action {
			n++
		}
	}
	return n
}

type fakePlayer struct {
	calls []string
	at    float64
	muted bool
}

func (p *fakePlayer) Play()                  { p.calls = append(p.calls, "play") }
func (p *fakePlayer) Pause()                 { p.calls = append(p.calls, "pause") }
func (p *fakePlayer) SeekTo(seconds float64) { p.at = seconds; p.calls = append(p.calls, "seek") }
func (p *fakePlayer) SetMuted(muted bool)    { p.muted = muted }

func TestParseAction(t *testing.T) {
	for _, s := range []string{"play", "pause", "seek", "playing"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}

	_, err := ParseAction("stop")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestActionNext(t *testing.T) {
	assert.Equal(t, StatePlaying, ActionPlay.Next(StateUnstarted))
	assert.Equal(t, StatePlaying, ActionPlaying.Next(StatePaused))
	assert.Equal(t, StatePaused, ActionPause.Next(StatePlaying))
	assert.Equal(t, StatePaused, ActionSeek.Next(StatePaused))
	assert.Equal(t, StateUnstarted, ActionSeek.Next(StateUnstarted))
}

func TestPosition(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := at.Add(1500 * time.Millisecond)

	assert.InDelta(t, 11.5, Position(StatePlaying, 10, at, now), 1e-9)
	assert.Equal(t, 10.0, Position(StatePaused, 10, at, now))
	assert.Equal(t, 10.0, Position(StatePlaying, 10, time.Time{}, now))
	assert.Equal(t, 10.0, Position(StatePlaying, 10, now, at))
}

func TestLeaderEmitsImmediately(t *testing.T) {
	rec := &recorder{}
	l := NewLeader("room1", time.Hour, rec.emit)
	defer l.Close()

	l.Play(0)
	l.Seek(42)
	l.Pause(43)

	assert.Equal(t, []Update{
		{RoomId: "room1", Action: ActionPlay, CurrentTime: 0},
		{RoomId: "room1", Action: ActionSeek, CurrentTime: 42},
		{RoomId: "room1", Action: ActionPause, CurrentTime: 43},
	}, rec.all())
	assert.Equal(t, StatePaused, l.State())
	assert.Equal(t, 43.0, l.Position())
}

func TestLeaderHeartbeat(t *testing.T) {
	rec := &recorder{}
	l := NewLeader("room1", 10*time.Millisecond, rec.emit)
	defer l.Close()

	l.Play(5)
	require.Eventually(t, func() bool {
		return rec.count(ActionPlaying) >= 3
	}, time.Second, 5*time.Millisecond)

	for _, u := range rec.all()[1:] {
		assert.GreaterOrEqual(t, u.CurrentTime, 5.0)
	}
}

func TestLeaderHeartbeatStopsOnPause(t *testing.T) {
	rec := &recorder{}
	l := NewLeader("room1", 10*time.Millisecond, rec.emit)
	defer l.Close()

	l.Play(0)
	require.Eventually(t, func() bool {
		return rec.count(ActionPlaying) >= 1
	}, time.Second, 5*time.Millisecond)

	l.Pause(1)
	time.Sleep(30 * time.Millisecond)
	n := len(rec.all())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, len(rec.all()), "heartbeat must stop while paused")

	updates := rec.all()
	assert.Equal(t, ActionPause, updates[len(updates)-1].Action)

	l.Play(1)
	require.Eventually(t, func() bool {
		updates := rec.all()
		return updates[len(updates)-1].Action == ActionPlaying
	}, time.Second, 5*time.Millisecond)
}

func TestLeaderClose(t *testing.T) {
	rec := &recorder{}
	l := NewLeader("room1", 10*time.Millisecond, rec.emit)

	l.Play(0)
	l.Close()
	l.Close()
	n := len(rec.all())

	l.Play(10)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(rec.all()))
}

func TestFollowerApply(t *testing.T) {
	p := &fakePlayer{}
	f := NewFollower(p)

	f.Apply(Update{RoomId: "room1", Action: ActionPlay, CurrentTime: 3})
	assert.Equal(t, []string{"seek", "play"}, p.calls)
	assert.Equal(t, 3.0, p.at)
	assert.Equal(t, StatePlaying, f.Snapshot().State)

	f.Apply(Update{RoomId: "room1", Action: ActionPause, CurrentTime: 7})
	assert.Equal(t, []string{"seek", "play", "seek", "pause"}, p.calls)
	snapshot := f.Snapshot()
	assert.Equal(t, StatePaused, snapshot.State)
	assert.Equal(t, 7.0, snapshot.CurrentTime)

	f.Apply(Update{RoomId: "room1", Action: ActionSeek, CurrentTime: 1})
	assert.Equal(t, StatePaused, f.Snapshot().State)
	assert.Equal(t, 1.0, p.at)

	f.ApplyMute(true)
	assert.True(t, p.muted)
	assert.True(t, f.Snapshot().IsMuted)
}

func TestFollowerWithoutPlayer(t *testing.T) {
	f := NewFollower(nil)
	f.Apply(Update{Action: ActionPlaying, CurrentTime: 2})
	f.ApplyMute(true)

	snapshot := f.Snapshot()
	assert.Equal(t, StatePlaying, snapshot.State)
	assert.GreaterOrEqual(t, snapshot.CurrentTime, 2.0)
	assert.True(t, snapshot.IsMuted)
}

// A follower that starts listening after the leader started playing converges
// on the next heartbeat.
func TestLateFollowerConverges(t *testing.T) {
	f := NewFollower(nil)
	var mu sync.Mutex
	listening := false

	l := NewLeader("room1", 10*time.Millisecond, func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		if listening {
			f.Apply(u)
		}
	})
	defer l.Close()

	l.Play(0)
	mu.Lock()
	listening = true
	mu.Unlock()

	require.Eventually(t, func() bool {
		return f.Snapshot().State == StatePlaying
	}, 100*time.Millisecond, 5*time.Millisecond)
}
