package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/usercache/internal/database"
	"github.com/isdelr/usercache/internal/models"
	"gotest.tools/v3/assert"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "cache.db"))
	assert.NilError(t, err)
	assert.NilError(t, database.Migrate(db))
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

// fakeFetcher serves canned responses and counts invocations.
type fakeFetcher struct {
	mu         sync.Mutex
	users      []models.User
	usersErr   error
	posts      map[int64][]models.Post
	postsErr   error
	userCalls  int
	postCalls  int
	beforeUser func(ctx context.Context)
}

func (f *fakeFetcher) FetchUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	f.userCalls++
	hook := f.beforeUser
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	out := make([]models.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeFetcher) FetchPosts(ctx context.Context, userID int64) ([]models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postCalls++
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts[userID], nil
}

func (f *fakeFetcher) UserCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userCalls
}
