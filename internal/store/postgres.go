// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and identity queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements.
package store

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the durable identity store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and pings it.
// Call once at startup; the returned store is safe for concurrent use.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings Postgres.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

// UpsertIdentity records a sign-in for (provider, subject) and returns the user id.
// A new identity gets a fresh UUID v7; a known one keeps its id and has name and
// emails refreshed from the latest profile. emails may be empty.
func (s *PostgresStore) UpsertIdentity(ctx context.Context, provider, subject string, name *string, emails []string) (uuid.UUID, error) {
	newID, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating user id: %w", err)
	}
	var email *string
	if len(emails) > 0 {
		email = &emails[0]
	}
	if emails == nil {
		emails = []string{}
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (id, provider, subject, name, email, emails)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, subject) DO UPDATE
		SET name = EXCLUDED.name,
			email = EXCLUDED.email,
			emails = EXCLUDED.emails,
			updated_at = now(),
			last_login_at = now()
		RETURNING id
	`, newID, provider, subject, name, email, emails).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting identity: %w", err)
	}
	return id, nil
}

// GetUserByID fetches a user. Returns pgx.ErrNoRows (wrapped) when absent.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, provider, subject, name, email, emails, created_at, updated_at, last_login_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Provider, &u.Subject, &u.Name, &u.Email, &u.Emails,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &u, nil
}
