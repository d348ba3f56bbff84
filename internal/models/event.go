package models

import "time"

// Event represents a recorded sync activity, such as a cache hit or a failed fetch.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "users.load.cache", "users.fetch.fail"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
