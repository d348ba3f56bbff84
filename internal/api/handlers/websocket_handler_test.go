package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	ws "github.com/isdelr/usercache/internal/websocket"
	"gotest.tools/v3/assert"
)

func TestWebSocketClosesWhenHubStopped(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub()
	hub.Stop()
	srv := httptest.NewServer(http.HandlerFunc(NewWebSocketHandler(hub, nil).Serve))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?topic=users", nil)
	assert.NilError(t, err)
	defer conn.Close()

	assert.NilError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	assert.Assert(t, errors.As(err, &closeErr), "err = %v", err)
	assert.Equal(t, closeErr.Code, websocket.CloseGoingAway)
}

func TestWebSocketRejectsUnknownTopic(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws?topic=events", nil)
	NewWebSocketHandler(ws.NewHub(), nil).Serve(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}
