package controller

import (
	"context"

	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/service"
)

type contextKey int

const (
	authCtxKey contextKey = iota
	sessionCtxKey
)

func (c controller) getAuthFromCtx(ctx context.Context) service.AuthenticateResponse {
	auth, ok := ctx.Value(authCtxKey).(service.AuthenticateResponse)
	if !ok {
		return service.AuthenticateResponse{}
	}

	return auth
}

func (c controller) getSessionFromCtx(ctx context.Context) *hub.Session {
	session, ok := ctx.Value(sessionCtxKey).(*hub.Session)
	if !ok {
		return nil
	}

	return session
}
