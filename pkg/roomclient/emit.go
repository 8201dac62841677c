package roomclient

import (
	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/playback"
)

// JoinRoom subscribes to the room's traffic. The local view keeps whatever was
// seeded for it.
func (c *Client) JoinRoom(roomId string) error {
	c.mu.Lock()
	c.roomId = roomId
	c.mu.Unlock()

	return c.send(domain.EventJoinRoom, roomId)
}

func (c *Client) AnnounceParticipant(p domain.Participant) error {
	roomId, err := c.currentRoom()
	if err != nil {
		return err
	}

	c.addParticipant(domain.ParticipantJoinedPayload{RoomId: roomId, Id: p.Id, Name: p.Name, AvatarUrl: p.AvatarUrl})

	return c.send(domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		RoomId:    roomId,
		Id:        p.Id,
		Name:      p.Name,
		AvatarUrl: p.AvatarUrl,
	})
}

// AnnounceSong tells the room about a track added over HTTP.
func (c *Client) AnnounceSong(track domain.Track) error {
	roomId, err := c.currentRoom()
	if err != nil {
		return err
	}

	return c.send(domain.EventNewSong, domain.SongPayload{
		RoomId: roomId,
		Song:   domain.Song{Stream: track},
	})
}

// AnnounceVote tells the room that the votes of a track changed over HTTP.
func (c *Client) AnnounceVote(trackId string, upvotes []domain.Vote) error {
	roomId, err := c.currentRoom()
	if err != nil {
		return err
	}

	return c.send(domain.EventVoteUpdate, domain.VotePayload{
		RoomId:   roomId,
		StreamId: trackId,
		Upvotes:  upvotes,
	})
}

// ChangeCurrentSong asks the room to play track next. A nil track stops the room.
func (c *Client) ChangeCurrentSong(track *domain.Track) error {
	roomId, err := c.currentRoom()
	if err != nil {
		return err
	}

	return c.send(domain.EventCurrentSongChanged, domain.CurrentSongPayload{
		RoomId:      roomId,
		CurrentSong: track,
	})
}

// Advance asks the room to play the head of the local queue.
func (c *Client) Advance() (*domain.Track, error) {
	c.mu.Lock()
	pending := c.queue.Pending()
	c.mu.Unlock()

	var next *domain.Track
	if len(pending) > 0 {
		next = &pending[0]
	}

	return next, c.ChangeCurrentSong(next)
}

func (c *Client) SetMuted(muted bool) error {
	roomId, err := c.currentRoom()
	if err != nil {
		return err
	}

	return c.send(domain.EventMuteUpdate, playback.MuteUpdate{RoomId: roomId, IsMuted: muted})
}

// Lead makes this client the playback source of the room. Received playback
// updates are no longer applied locally.
func (c *Client) Lead() (*playback.Leader, error) {
	roomId, err := c.currentRoom()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.leader == nil {
		c.leader = playback.NewLeader(roomId, c.heartbeatInterval, func(u playback.Update) {
			if err := c.send(domain.EventPlaybackUpdate, u); err != nil {
				c.logger.Warn("failed to send playback update", "error", err)
			}
		})
	}

	return c.leader, nil
}
