package services

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/isdelr/usercache/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService journals sync activity in the database.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string) error {
	event := models.Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Level:   level,
		Message: message,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message) VALUES (?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message,
	)
	if err != nil {
		return storageErr("create event", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var message sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &message, &event.CreatedAt); err != nil {
			return nil, storageErr("scan event", err)
		}
		event.Message = message.String
		events = append(events, event)
	}
	return events, rows.Err()
}
