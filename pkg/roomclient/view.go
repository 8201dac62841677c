package roomclient

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/queue"
)

// Seed replaces the local view with state fetched over HTTP.
func (c *Client) Seed(tracks []domain.Track, currentTrackId string, participants []domain.Participant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = queue.New(tracks, currentTrackId)
	c.participants = slices.Clone(participants)
}

func (c *Client) Current() *domain.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue.Current()
}

func (c *Client) Queue() []domain.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue.Pending()
}

func (c *Client) Participants() []domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.participants)
}

func (c *Client) Playback() playback.Snapshot {
	return c.follower.Snapshot()
}

func (c *Client) apply(msg hub.Message) error {
	switch msg.Type {
	case domain.EventParticipantJoined:
		var p domain.ParticipantJoinedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		c.addParticipant(p)
	case domain.EventSongAdded:
		var p domain.SongPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		c.withRoom(p.RoomId, func() { c.queue.Add(p.Song.Stream) })
	case domain.EventVoteUpdated:
		var p domain.VotePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		c.withRoom(p.RoomId, func() { c.queue.UpdateVotes(p.StreamId, p.Upvotes) })
	case domain.EventCurrentSongChanged:
		var p domain.CurrentSongPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		c.withRoom(p.RoomId, func() { c.queue.SetCurrent(p.CurrentSong) })
	case domain.EventPlaybackUpdate:
		var u playback.Update
		if err := json.Unmarshal(msg.Payload, &u); err != nil {
			return err
		}
		if c.isLeading() {
			return nil
		}
		c.follower.Apply(u)
	case domain.EventMuteUpdate:
		var u playback.MuteUpdate
		if err := json.Unmarshal(msg.Payload, &u); err != nil {
			return err
		}
		c.follower.ApplyMute(u.IsMuted)
	case domain.EventError:
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	return nil
}

func (c *Client) withRoom(roomId string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if roomId != c.roomId {
		return
	}
	fn()
}

// addParticipant ignores participants already known by id.
func (c *Client) addParticipant(p domain.ParticipantJoinedPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.RoomId != c.roomId {
		return
	}
	if slices.ContainsFunc(c.participants, func(known domain.Participant) bool { return known.Id == p.Id }) {
		return
	}

	c.participants = append(c.participants, domain.Participant{
		Id:        p.Id,
		RoomId:    p.RoomId,
		Name:      p.Name,
		AvatarUrl: p.AvatarUrl,
		Role:      domain.RoleSubcreator,
	})
}

func (c *Client) isLeading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.leader != nil
}
