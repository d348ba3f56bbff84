package services

import (
	"context"
	"errors"
	"testing"

	"github.com/isdelr/usercache/internal/models"
	"github.com/isdelr/usercache/internal/remote"
	"gotest.tools/v3/assert"
)

func newTestDirectory(t *testing.T, fetcher *fakeFetcher) (*DirectoryService, *UserService, *EventService) {
	t.Helper()

	db := openTestDB(t)
	users := NewUserService(db)
	events := NewEventService(db)
	return NewDirectoryService(users, fetcher, events), users, events
}

func TestLoadUsersFetchesAndCachesWhenEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetched := []models.User{
		{ID: 11, Name: "Ana", Email: "ana@x.com", Phone: "1"},
		{ID: 12, Name: "Bob", Email: "bob@x.com", Phone: "2"},
		{ID: 13, Name: "Cy", Email: "cy@x.com", Phone: "3"},
	}
	fetcher := &fakeFetcher{users: fetched}
	dir, users, events := newTestDirectory(t, fetcher)

	res, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, res.Source, SourceNetwork)
	assert.Equal(t, res.Cached, len(fetched))
	assert.NilError(t, res.PersistErr)
	// The displayed list is the fetched one, remote IDs included.
	assert.DeepEqual(t, res.Users, fetched)

	count, err := users.CountUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, count, len(fetched))

	recent, err := events.GetRecentEvents(ctx, 1)
	assert.NilError(t, err)
	assert.Equal(t, recent[0].Type, "users.fetch.success")
}

func TestLoadUsersNeverFetchesWhenCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{users: []models.User{{ID: 1, Name: "Remote", Email: "r@x.com"}}}
	dir, users, _ := newTestDirectory(t, fetcher)
	cached, err := users.InsertUser(ctx, "Local", "l@x.com", "9")
	assert.NilError(t, err)

	res, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, res.Source, SourceCache)
	assert.DeepEqual(t, res.Users, []models.User{cached})
	assert.Equal(t, fetcher.UserCalls(), 0)
}

func TestLoadUsersEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ana := models.User{ID: 1, Name: "Ana", Email: "ana@x.com", Phone: "1"}
	fetcher := &fakeFetcher{users: []models.User{ana}}
	dir, users, _ := newTestDirectory(t, fetcher)

	first, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, first.Users, []models.User{ana})
	count, err := users.CountUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, count, 1)

	second, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, second.Source, SourceCache)
	assert.DeepEqual(t, second.Users, []models.User{ana})
	assert.Equal(t, fetcher.UserCalls(), 1)
}

func TestLoadUsersCacheAnswersToRemoteIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetched := []models.User{
		{ID: 5, Name: "Ana", Email: "ana@x.com", Phone: "1"},
		{ID: 9, Name: "Bob", Email: "bob@x.com", Phone: "2"},
	}
	fetcher := &fakeFetcher{
		users: fetched,
		posts: map[int64][]models.Post{5: {{ID: 50, UserID: 5, Title: "Ana's post"}}},
	}
	dir, _, _ := newTestDirectory(t, fetcher)

	first, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, first.Source, SourceNetwork)

	second, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, second.Source, SourceCache)
	assert.DeepEqual(t, second.Users, first.Users)

	ana, err := dir.GetUser(ctx, 5)
	assert.NilError(t, err)
	assert.Equal(t, ana.Name, "Ana")

	posts, err := dir.LoadPosts(ctx, second.Users[0].ID)
	assert.NilError(t, err)
	assert.DeepEqual(t, posts, fetcher.posts[5])
}

func TestLoadUsersReportsPersistFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetched := []models.User{{ID: 1, Name: "Ana", Email: "ana@x.com", Phone: "1"}}
	fetcher := &fakeFetcher{users: fetched}
	dir, users, events := newTestDirectory(t, fetcher)
	_, err := users.db.Exec(`CREATE TRIGGER reject_users BEFORE INSERT ON users
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	assert.NilError(t, err)

	res, err := dir.LoadUsers(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, res.Users, fetched)
	assert.Equal(t, res.Cached, 0)
	var storageErr *StorageError
	assert.Assert(t, errors.As(res.PersistErr, &storageErr), "persist err = %v", res.PersistErr)

	count, err := users.CountUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, count, 0)

	recent, err := events.GetRecentEvents(ctx, 1)
	assert.NilError(t, err)
	assert.Equal(t, recent[0].Type, "users.cache.fail")

	assert.Assert(t, errors.As(dir.WarmCache(ctx), &storageErr))
}

func TestLoadUsersFetchFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	netErr := &remote.NetworkError{URL: "http://api.test/users", StatusCode: 500}
	dir, users, events := newTestDirectory(t, &fakeFetcher{usersErr: netErr})

	_, err := dir.LoadUsers(ctx)
	var got *remote.NetworkError
	assert.Assert(t, errors.As(err, &got), "err = %v", err)

	count, err := users.CountUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, count, 0)

	recent, err := events.GetRecentEvents(ctx, 1)
	assert.NilError(t, err)
	assert.Equal(t, recent[0].Type, "users.fetch.fail")
}

func TestLoadUsersEmptyResponse(t *testing.T) {
	t.Parallel()

	dir, _, _ := newTestDirectory(t, &fakeFetcher{users: []models.User{}})
	res, err := dir.LoadUsers(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, res.Source, SourceNetwork)
	assert.Equal(t, len(res.Users), 0)
}

func TestLoadUsersCancelledDuringFetchDoesNotCache(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &fakeFetcher{
		users:      []models.User{{ID: 1, Name: "Ana", Email: "ana@x.com", Phone: "1"}},
		beforeUser: func(context.Context) { cancel() },
	}
	dir, users, _ := newTestDirectory(t, fetcher)

	_, err := dir.LoadUsers(ctx)
	assert.Assert(t, errors.Is(err, context.Canceled), "err = %v", err)

	count, err := users.CountUsers(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, count, 0)
}

func TestWarmCacheSkipsPopulatedStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{users: []models.User{{ID: 1, Name: "Ana", Email: "ana@x.com", Phone: "1"}}}
	dir, users, _ := newTestDirectory(t, fetcher)

	assert.NilError(t, dir.WarmCache(ctx))
	assert.Equal(t, fetcher.UserCalls(), 1)
	assert.NilError(t, dir.WarmCache(ctx))
	assert.Equal(t, fetcher.UserCalls(), 1)

	count, err := users.CountUsers(ctx)
	assert.NilError(t, err)
	assert.Equal(t, count, 1)
}

func TestLoadPostsAlwaysFetches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fetcher := &fakeFetcher{posts: map[int64][]models.Post{
		3: {{ID: 30, UserID: 3, Title: "Hello", Body: "World"}},
	}}
	dir, _, _ := newTestDirectory(t, fetcher)

	for i := 0; i < 2; i++ {
		posts, err := dir.LoadPosts(ctx, 3)
		assert.NilError(t, err)
		assert.Equal(t, len(posts), 1)
	}
	assert.Equal(t, fetcher.postCalls, 2)
}

func TestLoadPostsFailure(t *testing.T) {
	t.Parallel()

	decodeErr := &remote.DecodeError{URL: "http://api.test/posts", Err: errors.New("bad json")}
	dir, _, _ := newTestDirectory(t, &fakeFetcher{postsErr: decodeErr})

	_, err := dir.LoadPosts(context.Background(), 1)
	var got *remote.DecodeError
	assert.Assert(t, errors.As(err, &got), "err = %v", err)
}
