package views

import (
	"context"
	"sync"

	"github.com/isdelr/usercache/internal/models"
	"github.com/isdelr/usercache/internal/services"
)

// UserLoader is the cache-or-fetch source behind the user list.
type UserLoader interface {
	LoadUsers(ctx context.Context) (services.LoadResult, error)
}

// UserListSnapshot is a read-only copy of the user list state.
type UserListSnapshot struct {
	State        State           `json:"state"`
	Outcome      Outcome         `json:"outcome,omitempty"`
	Source       services.Source `json:"source,omitempty"`
	Cached       bool            `json:"cached"`                 // users are held in the local store
	PersistError string          `json:"persistError,omitempty"` // fetched users shown but not stored
	Query        string          `json:"query,omitempty"`
	Total        int             `json:"total"`
	Users        []models.User   `json:"users"`
}

// UserList is the state machine of the user list screen: loading, then populated or empty.
// The name filter narrows the visible users without changing the state.
type UserList struct {
	mu       sync.Mutex
	loader   UserLoader
	observer Observer

	state      State
	outcome    Outcome
	source     services.Source
	users      []models.User
	cached     bool
	persistErr error
	query      string
	closed     bool
}

// NewUserList creates a user list in the loading state. observer may be nil.
func NewUserList(loader UserLoader, observer Observer) *UserList {
	return &UserList{
		loader:   loader,
		observer: observer,
		state:    StateLoading,
	}
}

// Enter runs the load for one appearance of the screen. If ctx is cancelled or the view is
// closed before the load completes, the result is discarded and ctx.Err() (or
// context.Canceled) is returned. Load failures are not returned; they end in StateEmpty
// with the matching Outcome.
func (v *UserList) Enter(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return context.Canceled
	}
	v.state = StateLoading
	v.outcome = OutcomePending
	v.persistErr = nil
	v.mu.Unlock()
	v.notify("users.loading")

	res, err := v.loader.LoadUsers(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return context.Canceled
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		v.mu.Unlock()
		return ctxErr
	}
	switch {
	case err != nil:
		v.state = StateEmpty
		v.outcome = Classify(err)
		v.users = nil
		v.source = ""
		v.cached = false
	case len(res.Users) == 0:
		v.state = StateEmpty
		v.outcome = OutcomeEmpty
		v.users = nil
		v.source = res.Source
		v.cached = false
	default:
		v.state = StatePopulated
		v.outcome = OutcomeSuccess
		v.users = res.Users
		v.source = res.Source
		v.cached = res.PersistErr == nil
		v.persistErr = res.PersistErr
	}
	action := "users." + string(v.state)
	v.mu.Unlock()

	v.notify(action)
	return nil
}

// SetQuery updates the live name filter.
func (v *UserList) SetQuery(q string) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

// Visible returns the loaded users that match the current filter.
func (v *UserList) Visible() []models.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visibleLocked()
}

// Snapshot returns the current state.
func (v *UserList) Snapshot() UserListSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close marks the screen as dismissed. Later load completions are discarded.
func (v *UserList) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *UserList) visibleLocked() []models.User {
	visible := FilterByName(v.users, v.query)
	out := make([]models.User, len(visible))
	copy(out, visible)
	return out
}

func (v *UserList) snapshotLocked() UserListSnapshot {
	snap := UserListSnapshot{
		State:   v.state,
		Outcome: v.outcome,
		Source:  v.source,
		Cached:  v.cached,
		Query:   v.query,
		Total:   len(v.users),
		Users:   v.visibleLocked(),
	}
	if v.persistErr != nil {
		snap.PersistError = v.persistErr.Error()
	}
	return snap
}

func (v *UserList) notify(action string) {
	if v.observer == nil {
		return
	}
	v.observer.Observe(action, v.Snapshot())
}
