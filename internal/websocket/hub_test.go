package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopback/internal/util"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "feed-secret"

func startFeed(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	srv := httptest.NewServer(ServeWS(hub, testSecret, []string{"http://localhost:3000"}))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestFeed_AnonymousClientReceivesEvents(t *testing.T) {
	hub, url := startFeed(t)

	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastCatalogEvent("item_deleted", map[string]interface{}{"item_id": 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "item_deleted", msg.Type)
	assert.Equal(t, float64(7), msg.Payload["item_id"])
}

func TestFeed_Ping(t *testing.T) {
	hub, url := startFeed(t)

	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestFeed_Auth(t *testing.T) {
	_, url := startFeed(t)

	t.Run("valid token", func(t *testing.T) {
		token, err := util.GenerateToken(3, "a@shop.test", "USER", testSecret, time.Minute)
		require.NoError(t, err)

		conn, _, err := gws.DefaultDialer.Dial(url+"?token="+token, nil)
		require.NoError(t, err)
		conn.Close()
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		_, resp, err := gws.DefaultDialer.Dial(url+"?token=garbage", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("foreign origin is rejected", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.test"}}
		_, resp, err := gws.DefaultDialer.Dial(url, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
