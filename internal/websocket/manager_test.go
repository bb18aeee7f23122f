package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-album-center/internal/logger"
)

func TestManagerBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewManager(logger.Nop())
	go m.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.Serve(w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return m.Clients() == 1 }, time.Second, 10*time.Millisecond)

	m.Notify(Notification{Type: Created, Kind: "album", ID: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Notification
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Notification{Type: Created, Kind: "album", ID: 3}, got)

	conn.Close()
	require.Eventually(t, func() bool { return m.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestNotifyWithoutClients(t *testing.T) {
	m := NewManager(logger.Nop())
	assert.NotPanics(t, func() { m.Notify(Notification{Type: Deleted, Kind: "media", ID: 1}) })
}
