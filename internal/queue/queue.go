// Package queue orders a room's tracks: most votes first, then earliest submission.
package queue

import (
	"slices"

	"github.com/melodex/server/internal/domain"
)

// Compare orders a before b when it has more votes, or equal votes and an earlier
// creation time. Seq and id break the remaining ties so the order is total.
func Compare(a, b *domain.Track) int {
	if d := b.VoteCount() - a.VoteCount(); d != 0 {
		return d
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	switch {
	case a.Id < b.Id:
		return -1
	case a.Id > b.Id:
		return 1
	default:
		return 0
	}
}

func Sort(tracks []domain.Track) {
	slices.SortStableFunc(tracks, func(a, b domain.Track) int {
		return Compare(&a, &b)
	})
}

// Queue is one view of a room: the track playing now and the ordered tracks waiting.
// It is not safe for concurrent use.
type Queue struct {
	current *domain.Track
	pending []domain.Track
}

// New builds a queue from unplayed tracks. currentId, when non-empty and present,
// becomes the current track.
func New(tracks []domain.Track, currentId string) *Queue {
	q := &Queue{pending: make([]domain.Track, 0, len(tracks))}
	for _, t := range tracks {
		if t.Id == currentId {
			t := t
			q.current = &t
			continue
		}
		if t.Played {
			continue
		}
		q.pending = append(q.pending, t)
	}
	Sort(q.pending)

	return q
}

func (q *Queue) Current() *domain.Track {
	if q.current == nil {
		return nil
	}
	t := *q.current
	return &t
}

// Pending returns a copy of the waiting tracks in play order.
func (q *Queue) Pending() []domain.Track {
	return slices.Clone(q.pending)
}

func (q *Queue) Len() int {
	return len(q.pending)
}

func (q *Queue) index(trackId string) int {
	return slices.IndexFunc(q.pending, func(t domain.Track) bool { return t.Id == trackId })
}

// Add inserts a track. Adding a known track replaces it.
func (q *Queue) Add(track domain.Track) {
	if q.current != nil && q.current.Id == track.Id {
		*q.current = track
		return
	}
	if i := q.index(track.Id); i >= 0 {
		q.pending[i] = track
	} else {
		q.pending = append(q.pending, track)
	}
	Sort(q.pending)
}

// UpdateVotes replaces the vote list of a track and re-ranks the queue.
// It reports whether the track is known to the queue.
func (q *Queue) UpdateVotes(trackId string, upvotes []domain.Vote) bool {
	if q.current != nil && q.current.Id == trackId {
		q.current.Upvotes = slices.Clone(upvotes)
		return true
	}

	i := q.index(trackId)
	if i < 0 {
		return false
	}
	q.pending[i].Upvotes = slices.Clone(upvotes)
	Sort(q.pending)

	return true
}

// Advance makes the head of the queue current and returns it, or clears the
// current track and returns nil when nothing is waiting.
func (q *Queue) Advance() *domain.Track {
	if len(q.pending) == 0 {
		q.current = nil
		return nil
	}

	next := q.pending[0]
	q.pending = slices.Delete(q.pending, 0, 1)
	q.current = &next

	return q.Current()
}

// SetCurrent makes track current, removing it from the waiting tracks. A nil
// track clears the current track. The replaced current track is not re-queued.
func (q *Queue) SetCurrent(track *domain.Track) {
	if track == nil {
		q.current = nil
		return
	}

	if i := q.index(track.Id); i >= 0 {
		q.pending = slices.Delete(q.pending, i, i+1)
	}
	t := *track
	q.current = &t
}
