package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/usercache/internal/models"
	"github.com/rs/zerolog/log"
)

// UserServiceProvider defines the interface for the local user cache.
type UserServiceProvider interface {
	InsertUser(ctx context.Context, name, email, phone string) (models.User, error)
	InsertUsers(ctx context.Context, users []models.User) (int, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// UserService reads and appends users in the local SQLite store.
// Rows are never updated or deleted.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const insertUserStmt = "INSERT INTO users(name, email, phone) VALUES(?, ?, ?)"

// A NULL id lets SQLite assign the next rowid.
const insertFetchedUserStmt = "INSERT INTO users(id, name, email, phone) VALUES(?, ?, ?, ?)"

// InsertUser appends a single user and returns it with its assigned ID.
func (s *UserService) InsertUser(ctx context.Context, name, email, phone string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.User{}, fmt.Errorf("email is required")
	}

	res, err := s.db.ExecContext(ctx, insertUserStmt, name, email, phone)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("insert %s: %w", email, ErrDuplicateEmail)
		}
		return models.User{}, storageErr("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, storageErr("insert user", err)
	}
	return models.User{ID: id, Name: name, Email: email, Phone: phone}, nil
}

// InsertUsers writes a fetched batch in a single transaction and returns how many rows were added.
// Remote IDs are kept so cached rows answer to the same IDs the API handed out.
// Users without an email, or whose ID or email is already cached, are skipped;
// any other failure rolls back the whole batch.
func (s *UserService) InsertUsers(ctx context.Context, users []models.User) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertFetchedUserStmt)
	if err != nil {
		return 0, storageErr("prepare batch", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, u := range users {
		email := strings.TrimSpace(u.Email)
		if email == "" {
			log.Warn().Int64("id", u.ID).Str("name", u.Name).Msg("Skipping user without email")
			continue
		}
		var id any
		if u.ID > 0 {
			id = u.ID
		}
		if _, err := stmt.ExecContext(ctx, id, u.Name, email, u.Phone); err != nil {
			if isUniqueViolation(err) {
				log.Warn().Int64("id", u.ID).Str("email", email).Msg("Skipping user already cached")
				continue
			}
			return 0, storageErr("insert batch", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit batch", err)
	}
	return inserted, nil
}

// ListUsers returns every cached user ordered by ascending ID.
// An empty store yields an empty, non-nil slice; read failures are returned as errors.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, phone FROM users ORDER BY id ASC")
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone); err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

// CountUsers returns the number of cached users.
func (s *UserService) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, storageErr("count users", err)
	}
	return count, nil
}

// GetUserByID retrieves a single cached user.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	row := s.db.QueryRowContext(ctx, "SELECT id, name, email, phone FROM users WHERE id = ?", id)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with ID %d: %w", id, ErrUserNotFound)
		}
		return models.User{}, storageErr("get user", err)
	}
	return u, nil
}
