package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"qrmang/pubsub/outbox"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id VARCHAR(255) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			venue VARCHAR(255) NOT NULL,
			event_start TIMESTAMPTZ NOT NULL,
			venue_timezone VARCHAR(64) NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS bookings (
			booking_id VARCHAR(255) PRIMARY KEY,
			booking_reference VARCHAR(64) NOT NULL UNIQUE,
			event_id VARCHAR(255) NOT NULL REFERENCES events(event_id),
			payment_status VARCHAR(16) NOT NULL,
			attendees JSONB NOT NULL DEFAULT '[]',
			ticket_type VARCHAR(64) NOT NULL DEFAULT '',
			quantity INT NOT NULL DEFAULT 1,
			total_amount VARCHAR(32) NOT NULL DEFAULT '',
			total_currency VARCHAR(3) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(255) PRIMARY KEY,
			booking_id VARCHAR(255) NOT NULL UNIQUE REFERENCES bookings(booking_id),
			event_id VARCHAR(255) NOT NULL REFERENCES events(event_id),
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS data_lake (
			event_id VARCHAR(255) PRIMARY KEY,
			published_at TIMESTAMPTZ NOT NULL,
			event_name VARCHAR(255) NOT NULL,
			event_payload JSONB NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return outbox.InitializeSchema(db.DB)
}
