package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/pkg/ctxlogger"
	"github.com/melodex/server/pkg/wsrouter"
)

var errMissingRoomId = errors.New("roomId is required")

type roomScoped interface {
	GetRoomId() string
}

func (c controller) wsRequestIdWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.DebugContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"failed", err != nil,
			)

			return err
		}
	}
}

// roomMemberWSMw rejects room-scoped messages for rooms the session has not joined.
func (c controller) roomMemberWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[any]) wsrouter.HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			scoped, ok := payload.(roomScoped)
			if !ok {
				return next(ctx, conn, payload)
			}

			roomId := scoped.GetRoomId()
			if roomId == "" {
				return errMissingRoomId
			}

			session := c.getSessionFromCtx(ctx)
			if session == nil {
				return hub.ErrSessionNotFound
			}

			isMember, err := c.hub.IsMember(ctx, session.Id(), roomId)
			if err != nil {
				return fmt.Errorf("failed to check membership: %w", err)
			}
			if !isMember {
				return hub.ErrNotMember
			}

			ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomId))
			return next(ctx, conn, payload)
		}
	}
}
