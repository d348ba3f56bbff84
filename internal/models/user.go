package models

// User represents a directory entry fetched from the remote API and cached locally.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"` // Unique within the local store
	Phone string `json:"phone"`
}
