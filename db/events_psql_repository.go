package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"qrmang/entity"
)

type EventsPostgresRepository struct {
	db *sqlx.DB
}

func NewEventsPostgresRepository(db *sqlx.DB) EventsPostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return EventsPostgresRepository{db: db}
}

func (r EventsPostgresRepository) Store(ctx context.Context, event entity.Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, title, venue, event_start, venue_timezone)
		VALUES (:event_id, :title, :venue, :event_start, :venue_timezone)
		ON CONFLICT DO NOTHING -- ignore if already exists
	`, event)
	if err != nil {
		return fmt.Errorf("could not store event %s: %w", event.EventID, err)
	}

	return nil
}

func (r EventsPostgresRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, title, venue, event_start, venue_timezone
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Event{}, fmt.Errorf("could not get event %s: %w", eventID, err)
	}

	return event, nil
}
