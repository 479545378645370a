package push

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID string) *Client {
	return &Client{hub: h, send: make(chan []byte, 4), userID: userID}
}

func TestHubDeliversToAllUserSessions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Close()

	first := newTestClient(hub, "user-1")
	second := newTestClient(hub, "user-1")
	hub.register <- first
	hub.register <- second

	require.Eventually(t, func() bool { return hub.Connected("user-1") == 2 },
		time.Second, 10*time.Millisecond)

	payload := map[string]string{"title": "New announcement"}
	require.NoError(t, hub.PushToUser("user-1", payload))

	for _, client := range []*Client{first, second} {
		select {
		case raw := <-client.send:
			var got map[string]string
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, "New announcement", got["title"])
		case <-time.After(time.Second):
			t.Fatal("session did not receive push")
		}
	}
}

func TestHubPushToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Close()

	assert.NoError(t, hub.PushToUser("nobody", "hello"))
}

func TestHubUnregisterRemovesSession(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Close()

	client := newTestClient(hub, "user-1")
	hub.register <- client
	require.Eventually(t, func() bool { return hub.Connected("user-1") == 1 },
		time.Second, 10*time.Millisecond)

	hub.unregister <- client
	require.Eventually(t, func() bool { return hub.Connected("user-1") == 0 },
		time.Second, 10*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHubFullBufferDoesNotBlockPush(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Close()

	client := &Client{hub: hub, send: make(chan []byte), userID: "user-1"}
	hub.register <- client
	require.Eventually(t, func() bool { return hub.Connected("user-1") == 1 },
		time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = hub.PushToUser("user-1", "dropped")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full session buffer")
	}
}
