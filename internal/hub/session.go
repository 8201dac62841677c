package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/melodex/server/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Session is one live websocket connection. Room membership and dedupe state
// are owned by the hub loop.
type Session struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	send     chan []byte

	rooms  map[string]struct{}
	seen   map[string]struct{}
	closed bool
}

func NewSession(conn *websocket.Conn, identity domain.Identity) *Session {
	return &Session{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		rooms:    make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) Identity() domain.Identity {
	return s.identity
}

func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// ConfigureConn sets the read limits and keepalive handling. Call it before reading.
func (s *Session) ConfigureConn() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// WritePump is the only writer of the connection. It returns when the hub
// closes the session or a write fails, closing the connection either way.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
