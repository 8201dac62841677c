// Package hub keeps the room registry and fans room events out to sessions.
//
// All registry state is owned by a single goroutine (Run). Every operation is a
// typed command sent to that goroutine, so no locks guard the registry.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"
)

var (
	ErrHubClosed       = errors.New("hub is closed")
	ErrSessionExists   = errors.New("session already registered")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotMember       = errors.New("session is not a member of the room")
)

type command interface {
	apply(h *Hub)
}

type Hub struct {
	fabric   Fabric
	logger   *slog.Logger
	commands chan command
	done     chan struct{}

	sessions map[string]*Session
	rooms    map[string]map[string]*Session
}

func New(fabric Fabric, logger *slog.Logger) *Hub {
	return &Hub{
		fabric:   fabric,
		logger:   logger,
		commands: make(chan command),
		done:     make(chan struct{}),
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Run processes commands until ctx is done or the fabric fails. Remaining
// sessions are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	fabricCtx, cancel := context.WithCancel(ctx)
	fabricErr := make(chan error, 1)
	go func() {
		fabricErr <- h.fabric.Run(fabricCtx, h.deliver)
	}()

	defer func() {
		cancel()
		close(h.done)
		for _, s := range h.sessions {
			s.close()
		}
		h.sessions = map[string]*Session{}
		h.rooms = map[string]map[string]*Session{}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-fabricErr:
			if err != nil {
				return fmt.Errorf("fabric stopped: %w", err)
			}
			return nil
		case cmd := <-h.commands:
			cmd.apply(h)
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, cmd command) error {
	select {
	case h.commands <- cmd:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, cmd command, reply <-chan T) (T, error) {
	var zero T
	if err := h.dispatch(ctx, cmd); err != nil {
		return zero, err
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func awaitErr(ctx context.Context, h *Hub, cmd command, reply <-chan error) error {
	err, dispatchErr := await(ctx, h, cmd, reply)
	if dispatchErr != nil {
		return dispatchErr
	}
	return err
}

type registerCmd struct {
	session *Session
	reply   chan error
}

func (c registerCmd) apply(h *Hub) {
	if _, ok := h.sessions[c.session.id]; ok {
		c.reply <- ErrSessionExists
		return
	}
	h.sessions[c.session.id] = c.session
	c.reply <- nil
}

func (h *Hub) Register(ctx context.Context, s *Session) error {
	reply := make(chan error, 1)
	return awaitErr(ctx, h, registerCmd{session: s, reply: reply}, reply)
}

type unregisterCmd struct {
	sessionId string
}

func (c unregisterCmd) apply(h *Hub) {
	if s, ok := h.sessions[c.sessionId]; ok {
		h.remove(s)
	}
}

// Unregister removes the session from every room and closes its send queue.
func (h *Hub) Unregister(ctx context.Context, sessionId string) error {
	return h.dispatch(ctx, unregisterCmd{sessionId: sessionId})
}

type joinCmd struct {
	sessionId string
	roomId    string
	reply     chan error
}

func (c joinCmd) apply(h *Hub) {
	s, ok := h.sessions[c.sessionId]
	if !ok {
		c.reply <- ErrSessionNotFound
		return
	}

	members, ok := h.rooms[c.roomId]
	if !ok {
		members = make(map[string]*Session)
		h.rooms[c.roomId] = members
	}
	members[s.id] = s
	s.rooms[c.roomId] = struct{}{}
	c.reply <- nil
}

// Join adds the session to the room. Joining again is a no-op.
func (h *Hub) Join(ctx context.Context, sessionId, roomId string) error {
	reply := make(chan error, 1)
	return awaitErr(ctx, h, joinCmd{sessionId: sessionId, roomId: roomId, reply: reply}, reply)
}

type memberCmd struct {
	sessionId string
	roomId    string
	reply     chan bool
}

func (c memberCmd) apply(h *Hub) {
	_, ok := h.rooms[c.roomId][c.sessionId]
	c.reply <- ok
}

func (h *Hub) IsMember(ctx context.Context, sessionId, roomId string) (bool, error) {
	reply := make(chan bool, 1)
	return await(ctx, h, memberCmd{sessionId: sessionId, roomId: roomId, reply: reply}, reply)
}

type sessionsCmd struct {
	roomId string
	reply  chan []string
}

func (c sessionsCmd) apply(h *Hub) {
	ids := maps.Keys(h.rooms[c.roomId])
	slices.Sort(ids)
	c.reply <- ids
}

// Sessions lists the ids of the sessions joined to the room.
func (h *Hub) Sessions(ctx context.Context, roomId string) ([]string, error) {
	reply := make(chan []string, 1)
	return await(ctx, h, sessionsCmd{roomId: roomId, reply: reply}, reply)
}

type sendCmd struct {
	sessionId string
	data      []byte
	reply     chan error
}

func (c sendCmd) apply(h *Hub) {
	s, ok := h.sessions[c.sessionId]
	if !ok {
		c.reply <- ErrSessionNotFound
		return
	}
	h.send(s, c.data)
	c.reply <- nil
}

// SendTo queues data for a single session.
func (h *Hub) SendTo(ctx context.Context, sessionId string, data []byte) error {
	reply := make(chan error, 1)
	return awaitErr(ctx, h, sendCmd{sessionId: sessionId, data: data, reply: reply}, reply)
}

// Publish hands ev to the fabric after checking that its origin session is a
// member of the room. Server events (empty origin) skip the check.
func (h *Hub) Publish(ctx context.Context, ev *Event) error {
	if ev.OriginSessionId != "" {
		ok, err := h.IsMember(ctx, ev.OriginSessionId, ev.RoomId)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotMember
		}
	}

	if err := h.fabric.Publish(ctx, ev); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Name, err)
	}

	return nil
}

type deliverCmd struct {
	event *Event
}

func (c deliverCmd) apply(h *Hub) {
	h.fanOut(c.event)
}

func (h *Hub) deliver(ev *Event) {
	if err := h.dispatch(context.Background(), deliverCmd{event: ev}); err != nil {
		h.logger.Debug("event not delivered", "event", ev.Name, "room_id", ev.RoomId, "error", err)
	}
}

func (h *Hub) fanOut(ev *Event) {
	members := h.rooms[ev.RoomId]
	if len(members) == 0 {
		return
	}

	data, err := Encode(ev.Name, ev.Payload)
	if err != nil {
		h.logger.Error("failed to encode event", "event", ev.Name, "room_id", ev.RoomId, "error", err)
		return
	}

	var dedupeKey string
	if ev.DedupeKey != "" {
		dedupeKey = ev.RoomId + "/" + ev.DedupeKey
	}

	for _, s := range members {
		if ev.ExcludeOrigin && s.id == ev.OriginSessionId {
			continue
		}
		if dedupeKey != "" {
			if _, seen := s.seen[dedupeKey]; seen {
				continue
			}
			s.seen[dedupeKey] = struct{}{}
		}
		h.send(s, data)
	}
}

// send drops the session when its queue is full so a slow reader cannot stall the loop.
func (h *Hub) send(s *Session, data []byte) {
	select {
	case s.send <- data:
	default:
		h.logger.Warn("session send queue full, dropping session", "session_id", s.id)
		h.remove(s)
	}
}

func (h *Hub) remove(s *Session) {
	for roomId := range s.rooms {
		members := h.rooms[roomId]
		delete(members, s.id)
		if len(members) == 0 {
			delete(h.rooms, roomId)
		}
	}
	s.rooms = map[string]struct{}{}
	delete(h.sessions, s.id)
	s.close()
}
