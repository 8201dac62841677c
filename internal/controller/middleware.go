package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/ctxlogger"
)

const (
	participantIdHeader = "X-Participant-Id"
	participantIdQuery  = "participant-id"
	tokenQuery          = "token"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"processing_time_us", time.Since(start).Microseconds(),
		)
	})
}

// authMw resolves the caller identity from a bearer token or a guest
// participant id. Requests without either continue anonymously.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get(tokenQuery)
		}

		participantId := r.Header.Get(participantIdHeader)
		if participantId == "" {
			participantId = r.URL.Query().Get(participantIdQuery)
		}

		auth, err := c.roomService.Authenticate(&service.AuthenticateParams{
			Token:         token,
			ParticipantId: participantId,
		})
		if err != nil {
			c.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), authCtxKey, auth)
		if !auth.Identity.IsZero() {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("identity", auth.Identity.String()))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
