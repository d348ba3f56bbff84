package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/isdelr/usercache/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrInvalidURL is returned when the API base URL cannot be used to build requests.
var ErrInvalidURL = errors.New("invalid api url")

// NetworkError reports a transport failure or a non-2xx response.
type NetworkError struct {
	URL        string
	StatusCode int // Zero when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not the expected JSON array.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fetcher is the read side of the remote API used by the services.
type Fetcher interface {
	FetchUsers(ctx context.Context) ([]models.User, error)
	FetchPosts(ctx context.Context, userID int64) ([]models.Post, error)
}

// Client wraps an http.Client to talk to the remote JSON API.
type Client struct {
	base  *url.URL
	http  *http.Client
	calls atomic.Int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{base: u, http: &http.Client{Timeout: 15 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Calls reports how many requests the client has issued.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// FetchUsers retrieves the full user list.
func (c *Client) FetchUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.getJSON(ctx, c.endpoint("users", nil), &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// FetchPosts retrieves the posts written by userID.
func (c *Client) FetchPosts(ctx context.Context, userID int64) ([]models.Post, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))

	var posts []models.Post
	if err := c.getJSON(ctx, c.endpoint("posts", q), &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	for i := range posts {
		posts[i].UserID = userID
	}
	return posts, nil
}

func (c *Client) endpoint(resource string, query url.Values) string {
	u := *c.base
	u.Path = u.Path + "/" + resource
	u.RawQuery = query.Encode()
	return u.String()
}

// getJSON issues a GET and decodes the response body into dst.
func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "application/json")

	c.calls.Add(1)
	log.Debug().Str("url", endpoint).Msg("Fetching from remote API")
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &NetworkError{URL: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{URL: endpoint, Err: err}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &DecodeError{URL: endpoint, Err: err}
	}
	return nil
}
