package views

import (
	"context"
	"sync"

	"github.com/isdelr/usercache/internal/models"
)

// PostLoader fetches the posts of one user.
type PostLoader interface {
	LoadPosts(ctx context.Context, userID int64) ([]models.Post, error)
}

// PostListSnapshot is a read-only copy of the posts screen state.
type PostListSnapshot struct {
	State   State         `json:"state"`
	Outcome Outcome       `json:"outcome,omitempty"`
	User    models.User   `json:"user"`
	Posts   []models.Post `json:"posts"`
}

// PostList is the posts screen of a single user. It always fetches and never retries.
type PostList struct {
	mu       sync.Mutex
	loader   PostLoader
	observer Observer
	user     models.User

	state   State
	outcome Outcome
	posts   []models.Post
	closed  bool
}

// NewPostList creates a posts view for user. observer may be nil.
func NewPostList(loader PostLoader, user models.User, observer Observer) *PostList {
	return &PostList{
		loader:   loader,
		observer: observer,
		user:     user,
		state:    StateLoading,
	}
}

// Enter fetches the posts once. The loading state is cleared whatever the result,
// unless ctx is cancelled or the view was closed first.
func (v *PostList) Enter(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return context.Canceled
	}
	v.state = StateLoading
	v.outcome = OutcomePending
	v.mu.Unlock()
	v.notify("posts.loading")

	posts, err := v.loader.LoadPosts(ctx, v.user.ID)

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
		v.posts = nil
	case len(posts) == 0:
		v.state = StateEmpty
		v.outcome = OutcomeEmpty
		v.posts = nil
	default:
		v.state = StatePopulated
		v.outcome = OutcomeSuccess
		v.posts = posts
	}
	action := "posts." + string(v.state)
	v.mu.Unlock()

	v.notify(action)
	return nil
}

// Snapshot returns the current state.
func (v *PostList) Snapshot() PostListSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	posts := make([]models.Post, len(v.posts))
	copy(posts, v.posts)
	return PostListSnapshot{
		State:   v.state,
		Outcome: v.outcome,
		User:    v.user,
		Posts:   posts,
	}
}

// Close marks the screen as dismissed.
func (v *PostList) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

func (v *PostList) notify(action string) {
	if v.observer == nil {
		return
	}
	v.observer.Observe(action, v.Snapshot())
}
