package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func receive(t *testing.T, ch <-chan []byte) Message {
	t.Helper()

	select {
	case data, ok := <-ch:
		assert.Assert(t, ok, "client channel closed")
		var msg Message
		assert.NilError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHubDeliversByTopic(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	usersOnly := NewClient(hub, nil, "users")
	everything := NewClient(hub, nil, "")
	hub.Register <- usersOnly
	hub.Register <- everything

	hub.Observe("posts.loading", map[string]string{"state": "loading"})
	hub.Observe("users.populated", map[string]string{"state": "populated"})

	assert.Equal(t, receive(t, everything.Send).Action, "posts.loading")
	assert.Equal(t, receive(t, everything.Send).Action, "users.populated")

	msg := receive(t, usersOnly.Send)
	assert.Equal(t, msg.Action, "users.populated")
	assert.Equal(t, msg.Topic(), "users")
}

func TestHubUnregisterClosesSend(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	client := NewClient(hub, nil, "")
	hub.Register <- client
	hub.Unregister <- client

	select {
	case _, ok := <-client.Send:
		assert.Assert(t, !ok)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubAddAfterStop(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	go hub.Run()

	assert.Assert(t, hub.Add(NewClient(hub, nil, "")))
	hub.Stop()

	added := make(chan bool, 1)
	go func() { added <- hub.Add(NewClient(hub, nil, "users")) }()
	select {
	case ok := <-added:
		assert.Assert(t, !ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Add blocked on a stopped hub")
	}
}
