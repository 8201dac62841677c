// Package roomclient is a Go client for the real-time room protocol. It keeps a
// local view of one room (queue, participants, playback) from received events.
package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/queue"
)

const (
	writeWait        = 10 * time.Second
	eventsBufferSize = 64
)

var ErrNotJoined = errors.New("no room joined")

type Config struct {
	// Url is the websocket endpoint, e.g. ws://localhost:8080/api/v1/ws.
	Url string
	// Token authenticates a user; ParticipantId identifies a guest.
	Token         string
	ParticipantId string
	// Player is driven by received playback updates. It may be nil.
	Player            playback.Player
	HeartbeatInterval time.Duration
	Logger            *slog.Logger
}

type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	events chan hub.Message

	heartbeatInterval time.Duration
	follower          *playback.Follower

	writeMu sync.Mutex

	mu           sync.Mutex
	roomId       string
	queue        *queue.Queue
	participants []domain.Participant
	leader       *playback.Leader
}

func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	u, err := url.Parse(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	query := u.Query()
	if cfg.Token != "" {
		query.Set("token", cfg.Token)
	}
	if cfg.ParticipantId != "" {
		query.Set("participant-id", cfg.ParticipantId)
	}
	u.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = time.Second
	}

	return &Client{
		conn:              conn,
		logger:            logger,
		events:            make(chan hub.Message, eventsBufferSize),
		heartbeatInterval: heartbeatInterval,
		follower:          playback.NewFollower(cfg.Player),
		queue:             queue.New(nil, ""),
	}, nil
}

// Events yields every received message after it was applied to the local view.
// Messages are dropped while the channel is full.
func (c *Client) Events() <-chan hub.Message {
	return c.events
}

// Run reads messages until ctx is done or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	stop := context.AfterFunc(ctx, func() {
		c.conn.Close()
	})
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg hub.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("dropping malformed message", "error", err)
			continue
		}

		if err := c.apply(msg); err != nil {
			c.logger.Warn("failed to apply message", "type", msg.Type, "error", err)
		}

		select {
		case c.events <- msg:
		default:
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	leader := c.leader
	c.leader = nil
	c.mu.Unlock()

	if leader != nil {
		leader.Close()
	}

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *Client) send(name string, payload any) error {
	data, err := hub.Encode(name, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) currentRoom() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roomId == "" {
		return "", ErrNotJoined
	}

	return c.roomId, nil
}
