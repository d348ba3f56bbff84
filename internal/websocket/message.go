package websocket

import "strings"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// Topic is the action prefix up to the first dot, e.g. "users" for "users.populated".
func (m Message) Topic() string {
	topic, _, _ := strings.Cut(m.Action, ".")
	return topic
}
