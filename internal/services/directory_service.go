package services

import (
	"context"
	"fmt"

	"github.com/isdelr/usercache/internal/models"
	"github.com/isdelr/usercache/internal/remote"
	"github.com/rs/zerolog/log"
)

// Source tells where a loaded user list came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// LoadResult is the outcome of a successful cache-or-fetch load.
type LoadResult struct {
	Users  []models.User
	Source Source
	// Cached is the number of fetched users written to the store. Only set for network loads.
	Cached int
	// PersistErr is set when the fetched list could not be written to the store.
	// The fetched users are still returned.
	PersistErr error
}

// DirectoryServiceProvider defines the interface for the user directory flows.
type DirectoryServiceProvider interface {
	LoadUsers(ctx context.Context) (LoadResult, error)
	LoadPosts(ctx context.Context, userID int64) ([]models.Post, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	WarmCache(ctx context.Context) error
}

// DirectoryService implements the cache-or-fetch policy over the local store and the remote API.
type DirectoryService struct {
	users        UserServiceProvider
	fetcher      remote.Fetcher
	eventService EventServiceProvider
}

// NewDirectoryService creates a new DirectoryService.
func NewDirectoryService(users UserServiceProvider, fetcher remote.Fetcher, eventService EventServiceProvider) *DirectoryService {
	return &DirectoryService{
		users:        users,
		fetcher:      fetcher,
		eventService: eventService,
	}
}

// LoadUsers returns the cached users when the store has any rows; the remote API is not
// consulted in that case. Otherwise it fetches the list, writes it to the store in one
// batch, and returns the fetched list as received.
func (s *DirectoryService) LoadUsers(ctx context.Context) (LoadResult, error) {
	cached, err := s.users.ListUsers(ctx)
	if err != nil {
		s.record(ctx, "users.load.fail", "error", fmt.Sprintf("Failed to read cached users: %v", err))
		return LoadResult{}, fmt.Errorf("read cache: %w", err)
	}
	if len(cached) > 0 {
		log.Info().Int("count", len(cached)).Msg("Serving users from local cache")
		s.record(ctx, "users.load.cache", "info", fmt.Sprintf("Served %d users from cache.", len(cached)))
		return LoadResult{Users: cached, Source: SourceCache}, nil
	}

	log.Info().Msg("Local cache is empty, fetching users from remote API")
	fetched, err := s.fetcher.FetchUsers(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return LoadResult{}, ctx.Err()
		}
		log.Error().Err(err).Msg("Failed to fetch users")
		s.record(ctx, "users.fetch.fail", "error", fmt.Sprintf("Failed to fetch users: %v", err))
		return LoadResult{}, fmt.Errorf("fetch users: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{Users: fetched, Source: SourceNetwork}
	if len(fetched) == 0 {
		s.record(ctx, "users.fetch.empty", "warn", "Remote API returned no users.")
		return result, nil
	}

	result.Cached, result.PersistErr = s.users.InsertUsers(ctx, fetched)
	if result.PersistErr != nil {
		log.Error().Err(result.PersistErr).Int("count", len(fetched)).Msg("Failed to cache fetched users")
		s.record(ctx, "users.cache.fail", "error", fmt.Sprintf("Failed to cache %d fetched users: %v", len(fetched), result.PersistErr))
		return result, nil
	}

	log.Info().Int("fetched", len(fetched)).Int("cached", result.Cached).Msg("Fetched users and populated local cache")
	s.record(ctx, "users.fetch.success", "info", fmt.Sprintf("Fetched %d users, cached %d.", len(fetched), result.Cached))
	return result, nil
}

// LoadPosts fetches the posts of a user. Posts are never cached.
func (s *DirectoryService) LoadPosts(ctx context.Context, userID int64) ([]models.Post, error) {
	posts, err := s.fetcher.FetchPosts(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to fetch posts")
		s.record(ctx, "posts.fetch.fail", "error", fmt.Sprintf("Failed to fetch posts for user %d: %v", userID, err))
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return posts, nil
}

// GetUser looks up a single cached user.
func (s *DirectoryService) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// WarmCache runs the cache-or-fetch flow only when the store is still empty,
// so a populated cache is never refreshed.
func (s *DirectoryService) WarmCache(ctx context.Context) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	res, err := s.LoadUsers(ctx)
	if err != nil {
		return err
	}
	return res.PersistErr
}

func (s *DirectoryService) record(ctx context.Context, eventType, level, message string) {
	if s.eventService == nil {
		return
	}
	// Journal writes must not be lost to a cancelled request.
	if err := s.eventService.CreateEvent(context.WithoutCancel(ctx), eventType, level, message); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
