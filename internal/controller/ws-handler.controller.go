package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/ctxlogger"
)

func (c controller) serveWs(w http.ResponseWriter, r *http.Request) {
	auth := c.getAuthFromCtx(r.Context())
	if auth.Identity.IsZero() {
		c.writeError(w, r, service.ErrIdentityRequired)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	session := hub.NewSession(conn, auth.Identity)
	session.ConfigureConn()

	ctx := context.WithValue(r.Context(), sessionCtxKey, session)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", session.Id()))

	if err := c.hub.Register(ctx, session); err != nil {
		c.logger.ErrorContext(ctx, "failed to register session", "error", err)
		conn.Close()
		return
	}
	go session.WritePump()
	c.logger.InfoContext(ctx, "session connected")

	err = c.wsRouter.ServeConn(ctx, conn)

	if err := c.hub.Unregister(context.Background(), session.Id()); err != nil {
		c.logger.InfoContext(ctx, "failed to unregister session", "error", err)
	}
	c.logger.InfoContext(ctx, "session disconnected", "reason", err)
}

func (c controller) publish(ctx context.Context, roomId, name string, payload any, apply ...func(*hub.Event)) error {
	ev, err := hub.NewEvent(roomId, name, payload)
	if err != nil {
		return err
	}

	if session := c.getSessionFromCtx(ctx); session != nil {
		ev.OriginSessionId = session.Id()
	}
	for _, fn := range apply {
		fn(ev)
	}

	return c.hub.Publish(ctx, ev)
}

// sendToSession writes one event to the session of ctx only.
func (c controller) sendToSession(ctx context.Context, name string, payload any) error {
	session := c.getSessionFromCtx(ctx)
	if session == nil {
		return hub.ErrSessionNotFound
	}

	data, err := hub.Encode(name, payload)
	if err != nil {
		return err
	}

	return c.hub.SendTo(ctx, session.Id(), data)
}

func (c controller) sendError(ctx context.Context, _ *websocket.Conn, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(ctx, "failed to handle message", "error", err)
	} else {
		c.logger.InfoContext(ctx, "message rejected", "error", err)
	}

	if err := c.sendToSession(ctx, domain.EventError, domain.ErrorPayload{Message: message}); err != nil {
		c.logger.InfoContext(ctx, "failed to send error", "error", err)
	}
}

// JoinRoomInput accepts either a bare room id or {"roomId": "..."}.
type JoinRoomInput struct {
	RoomId string `json:"roomId"`
}

func (in *JoinRoomInput) UnmarshalJSON(data []byte) error {
	var roomId string
	if err := json.Unmarshal(data, &roomId); err == nil {
		in.RoomId = roomId
		return nil
	}

	type plain JoinRoomInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	in.RoomId = p.RoomId

	return nil
}

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, input JoinRoomInput) error {
	session := c.getSessionFromCtx(ctx)
	roomId := strings.TrimSpace(input.RoomId)

	if err := c.roomService.AuthorizeJoin(ctx, &service.AuthorizeJoinParams{
		RoomId:   roomId,
		Identity: session.Identity(),
	}); err != nil {
		return fmt.Errorf("failed to authorize join: %w", err)
	}

	// Read before joining so any heartbeat relayed to the session is at least
	// as new as the snapshot it gets.
	snapshot, err := c.roomService.GetPlaybackSnapshot(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get playback snapshot: %w", err)
	}

	if err := c.hub.Join(ctx, session.Id(), roomId); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return c.sendPlaybackSnapshot(ctx, roomId, &snapshot)
}

// sendPlaybackSnapshot brings a late joiner in line before the next heartbeat.
func (c controller) sendPlaybackSnapshot(ctx context.Context, roomId string, snapshot *service.PlaybackSnapshot) error {
	if snapshot.CurrentTrack != nil {
		if err := c.sendToSession(ctx, domain.EventCurrentSongChanged, domain.CurrentSongPayload{
			RoomId:      roomId,
			CurrentSong: snapshot.CurrentTrack,
		}); err != nil {
			return err
		}
	}

	var action playback.Action
	switch snapshot.Player.State {
	case playback.StatePlaying:
		action = playback.ActionPlaying
	case playback.StatePaused:
		action = playback.ActionPause
	}
	if action != "" {
		if err := c.sendToSession(ctx, domain.EventPlaybackUpdate, playback.Update{
			RoomId:      roomId,
			Action:      action,
			CurrentTime: snapshot.Player.CurrentTime,
		}); err != nil {
			return err
		}
	}

	if snapshot.Player.IsMuted {
		return c.sendToSession(ctx, domain.EventMuteUpdate, playback.MuteUpdate{RoomId: roomId, IsMuted: true})
	}

	return nil
}

func (c controller) handleParticipantJoined(ctx context.Context, _ *websocket.Conn, input domain.ParticipantJoinedPayload) error {
	session := c.getSessionFromCtx(ctx)

	participant, err := c.roomService.AnnounceParticipant(ctx, &service.AnnounceParticipantParams{
		RoomId:        input.RoomId,
		ParticipantId: input.Id,
		Identity:      session.Identity(),
	})
	if err != nil {
		return fmt.Errorf("failed to announce participant: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventParticipantJoined, domain.ParticipantJoinedPayload{
		RoomId:    participant.RoomId,
		Id:        participant.Id,
		Name:      participant.Name,
		AvatarUrl: participant.AvatarUrl,
	}, func(ev *hub.Event) {
		ev.ExcludeOrigin = true
		ev.DedupeKey = "participant:" + participant.Id
	})
}

type trackRef struct {
	Id string `json:"id"`
}

type NewSongInput struct {
	RoomId string `json:"roomId"`
	Song   struct {
		Stream trackRef `json:"stream"`
	} `json:"song"`
}

func (in NewSongInput) GetRoomId() string { return in.RoomId }

func (c controller) handleNewSong(ctx context.Context, _ *websocket.Conn, input NewSongInput) error {
	song, err := c.roomService.GetTrack(ctx, &service.GetTrackParams{
		RoomId:  input.RoomId,
		TrackId: input.Song.Stream.Id,
	})
	if err != nil {
		return fmt.Errorf("failed to get track: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventSongAdded, domain.SongPayload{
		RoomId: input.RoomId,
		Song:   domain.Song{Stream: song},
	})
}

type VoteUpdateInput struct {
	RoomId   string `json:"roomId"`
	StreamId string `json:"streamId"`
}

func (in VoteUpdateInput) GetRoomId() string { return in.RoomId }

func (c controller) handleVoteUpdate(ctx context.Context, _ *websocket.Conn, input VoteUpdateInput) error {
	song, err := c.roomService.GetTrack(ctx, &service.GetTrackParams{
		RoomId:  input.RoomId,
		TrackId: input.StreamId,
	})
	if err != nil {
		return fmt.Errorf("failed to get track: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventVoteUpdated, domain.VotePayload{
		RoomId:   input.RoomId,
		StreamId: song.Id,
		Upvotes:  song.Upvotes,
	})
}

type CurrentSongChangedInput struct {
	RoomId      string    `json:"roomId"`
	CurrentSong *trackRef `json:"currentSong"`
}

func (in CurrentSongChangedInput) GetRoomId() string { return in.RoomId }

func (c controller) handleCurrentSongChanged(ctx context.Context, _ *websocket.Conn, input CurrentSongChangedInput) error {
	var trackId string
	if input.CurrentSong != nil {
		trackId = input.CurrentSong.Id
	}

	resp, err := c.roomService.ChangeCurrentTrack(ctx, &service.ChangeCurrentTrackParams{
		Identity: c.getSessionFromCtx(ctx).Identity(),
		RoomId:   input.RoomId,
		TrackId:  trackId,
	})
	if err != nil {
		return fmt.Errorf("failed to change current track: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventCurrentSongChanged, domain.CurrentSongPayload{
		RoomId:      input.RoomId,
		CurrentSong: resp.CurrentTrack,
	})
}

func (c controller) handlePlaybackUpdate(ctx context.Context, _ *websocket.Conn, input playback.Update) error {
	update, err := c.roomService.UpdatePlayback(ctx, &service.UpdatePlaybackParams{
		Identity:    c.getSessionFromCtx(ctx).Identity(),
		RoomId:      input.RoomId,
		State:       string(input.Action),
		CurrentTime: input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventPlaybackUpdate, update)
}

func (c controller) handleMuteUpdate(ctx context.Context, _ *websocket.Conn, input playback.MuteUpdate) error {
	update, err := c.roomService.UpdateMute(ctx, &service.UpdateMuteParams{
		Identity: c.getSessionFromCtx(ctx).Identity(),
		RoomId:   input.RoomId,
		IsMuted:  input.IsMuted,
	})
	if err != nil {
		return fmt.Errorf("failed to update mute: %w", err)
	}

	return c.publish(ctx, input.RoomId, domain.EventMuteUpdate, update)
}
