package wsrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetInput struct {
	Name string `json:"name"`
}

func TestDispatch(t *testing.T) {
	r := New()

	var trace []string
	r.Use(func(next HandlerFunc[any]) HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			trace = append(trace, "mw:"+GetMessageTypeFromCtx(ctx))
			return next(ctx, conn, payload)
		}
	})

	var errs []error
	r.OnError(func(_ context.Context, _ *websocket.Conn, err error) {
		errs = append(errs, err)
	})

	Handle(r, "greet", func(_ context.Context, _ *websocket.Conn, input greetInput) error {
		trace = append(trace, "greet:"+input.Name)
		return nil
	})
	Handle(r, "fail", func(_ context.Context, _ *websocket.Conn, _ struct{}) error {
		return assert.AnError
	})

	ctx := context.Background()
	r.dispatch(ctx, nil, []byte(`{"type":"greet","payload":{"name":"alex"}}`))
	assert.Equal(t, []string{"mw:greet", "greet:alex"}, trace)
	assert.Empty(t, errs)

	r.dispatch(ctx, nil, []byte(`{"type":"fail"}`))
	r.dispatch(ctx, nil, []byte(`not json`))
	r.dispatch(ctx, nil, []byte(`{"type":"unknown"}`))
	r.dispatch(ctx, nil, []byte(`{"type":"greet","payload":{"name":1}}`))

	require.Len(t, errs, 4)
	assert.ErrorIs(t, errs[0], assert.AnError)
	assert.ErrorIs(t, errs[1], ErrMalformedMessage)
	assert.ErrorIs(t, errs[2], ErrUnknownMessageType)
	assert.ErrorIs(t, errs[3], ErrInvalidPayload)
}

func TestServeConn(t *testing.T) {
	received := make(chan string, 1)
	r := New()
	Handle(r, "greet", func(_ context.Context, _ *websocket.Conn, input greetInput) error {
		received <- input.Name
		return nil
	})

	done := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		done <- r.ServeConn(context.Background(), conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`garbage`)))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "greet", "payload": map[string]string{"name": "sam"}}))
	assert.Equal(t, "sam", <-received)

	conn.Close()
	assert.Error(t, <-done)
}
