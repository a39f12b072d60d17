package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQL connection and owns schema creation
type Database struct {
	db *sql.DB
}

// NewDatabase opens the SQLite database at the given DSN and ensures the
// schema exists
func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("enable foreign keys failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL,
			phone TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL REFERENCES profiles(id),
			attendant_id TEXT REFERENCES profiles(id),
			channel TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			priority TEXT NOT NULL DEFAULT 'medium',
			subject TEXT,
			created_at DATETIME NOT NULL,
			last_message_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			sender_id TEXT REFERENCES profiles(id),
			content TEXT NOT NULL,
			channel TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'text',
			status TEXT NOT NULL DEFAULT 'sent',
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS appointments (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL REFERENCES profiles(id),
			attendant_id TEXT REFERENCES profiles(id),
			scheduled_at DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			title TEXT NOT NULL,
			description TEXT,
			notes TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_last_message
			ON conversations(last_message_at);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_appointments_patient
			ON appointments(patient_id, scheduled_at);
	`)
	return err
}

// GetDB exposes the underlying connection for repository construction
func (d *Database) GetDB() *sql.DB {
	if d == nil {
		return nil
	}
	return d.db
}

// Close closes the underlying connection
func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}
	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}
