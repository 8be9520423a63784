// models.go -- Shared domain types for the store package.
// Used by both Postgres (identity store) and Redis (session cache).
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrCacheMiss is returned by GetSession when the key is not in Redis.
// Callers use errors.Is to distinguish a true miss from a Redis infrastructure failure.
var ErrCacheMiss = errors.New("cache miss")

// User represents a row in the users table: one external identity, keyed by the
// issuing provider and the provider's subject id.
// Nullable columns are pointers, nil means SQL NULL.
type User struct {
	ID        uuid.UUID
	Provider  string
	Subject   string
	Name      *string
	Email     *string
	Emails    []string
	CreatedAt time.Time
	UpdatedAt time.Time
	LastLogin time.Time
}

// Claim is one (type, value) identity fact kept with a cached session.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Session is the JSON shape stored in Redis under the session token hash.
// There is no durable session table; expiry is the Redis TTL.
type Session struct {
	UserID             uuid.UUID `json:"user_id"`
	AuthenticationType string    `json:"authentication_type"`
	Name               string    `json:"name,omitempty"`
	Emails             []string  `json:"emails,omitempty"`
	Claims             []Claim   `json:"claims,omitempty"`
	ExpiresAt          time.Time `json:"expires_at"`
}
