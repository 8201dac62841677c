package queue

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodex/server/internal/domain"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func track(id string, votes int, offset time.Duration) domain.Track {
	t := domain.Track{Id: id, CreatedAt: base.Add(offset)}
	for i := 0; i < votes; i++ {
		t.Upvotes = append(t.Upvotes, domain.Vote{Voter: domain.GuestIdentity(id + string(rune('a'+i)))})
	}
	return t
}

func ids(tracks []domain.Track) []string {
	res := make([]string, 0, len(tracks))
	for _, t := range tracks {
		res = append(res, t.Id)
	}
	return res
}

func TestSort(t *testing.T) {
	tracks := []domain.Track{
		track("t1", 0, 0),
		track("t2", 2, time.Second),
		track("t3", 0, -time.Second),
		track("t4", 2, 0),
		track("t5", 1, 0),
	}

	Sort(tracks)
	assert.Equal(t, []string{"t4", "t2", "t5", "t3", "t1"}, ids(tracks))
}

func TestSortSameInstantUsesSeq(t *testing.T) {
	a := track("b", 0, 0)
	a.Seq = 1
	b := track("a", 0, 0)
	b.Seq = 2

	tracks := []domain.Track{b, a}
	Sort(tracks)
	assert.Equal(t, []string{"b", "a"}, ids(tracks))
}

func TestSortProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		tracks := make([]domain.Track, 0, 20)
		for i := 0; i < 20; i++ {
			tracks = append(tracks, track(string(rune('A'+i)), r.Intn(4), time.Duration(r.Intn(5))*time.Second))
		}
		Sort(tracks)

		for i := 1; i < len(tracks); i++ {
			prev, cur := tracks[i-1], tracks[i]
			require.GreaterOrEqual(t, prev.VoteCount(), cur.VoteCount())
			if prev.VoteCount() == cur.VoteCount() {
				require.False(t, cur.CreatedAt.Before(prev.CreatedAt))
			}
		}
	}
}

func TestQueue(t *testing.T) {
	played := track("t0", 5, -time.Hour)
	played.Played = true

	q := New([]domain.Track{track("t1", 0, 0), track("t2", 0, time.Second), played}, "")
	assert.Nil(t, q.Current())
	assert.Equal(t, []string{"t1", "t2"}, ids(q.Pending()))

	q.Add(track("t3", 0, 2*time.Second))
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(q.Pending()))

	ok := q.UpdateVotes("t3", []domain.Vote{{Voter: domain.UserIdentity("u1")}})
	require.True(t, ok)
	assert.Equal(t, []string{"t3", "t1", "t2"}, ids(q.Pending()))

	assert.False(t, q.UpdateVotes("unknown", nil))

	next := q.Advance()
	require.NotNil(t, next)
	assert.Equal(t, "t3", next.Id)
	assert.Equal(t, "t3", q.Current().Id)
	assert.Equal(t, []string{"t1", "t2"}, ids(q.Pending()))

	ok = q.UpdateVotes("t3", nil)
	require.True(t, ok)
	assert.Empty(t, q.Current().Upvotes)

	t2 := track("t2", 0, time.Second)
	q.SetCurrent(&t2)
	assert.Equal(t, "t2", q.Current().Id)
	assert.Equal(t, []string{"t1"}, ids(q.Pending()))

	assert.Equal(t, "t1", q.Advance().Id)
	assert.Nil(t, q.Advance())
	assert.Nil(t, q.Current())
	assert.Zero(t, q.Len())
}

func TestNewWithCurrent(t *testing.T) {
	q := New([]domain.Track{track("t1", 3, 0), track("t2", 0, time.Second)}, "t1")
	require.NotNil(t, q.Current())
	assert.Equal(t, "t1", q.Current().Id)
	assert.Equal(t, []string{"t2"}, ids(q.Pending()))
}
