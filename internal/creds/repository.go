// Package creds caches the upstream API key per browser session.
//
// This is a session-validity affordance, not a security boundary: the key
// must be replayed verbatim to the reporting service, so it is stored as
// given. A 401 from the reporting service invalidates the cached key.
package creds

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Session binds a browser session to its cached API key. The API key is
// also the scope every status flag is filed under.
type Session struct {
	ID        string
	APIKey    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new session for the given API key
func (r *Repository) Create(apiKey string, ttl time.Duration) (*Session, error) {
	s := &Session{
		ID:        uuid.New().String(),
		APIKey:    apiKey,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	_, err := r.db.Exec(`
		INSERT INTO sessions (id, api_key, created_at, expires_at)
		VALUES (?, ?, ?, ?)`,
		s.ID, s.APIKey, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a session by id, or nil if it does not exist or has expired
func (r *Repository) Get(id string) (*Session, error) {
	s := &Session{}
	err := r.db.QueryRow(`
		SELECT id, api_key, created_at, expires_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.APIKey, &s.CreatedAt, &s.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

// Delete removes a session (logout, or upstream 401)
func (r *Repository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteByAPIKey removes every session caching the given key; used when the
// reporting service rejects it so no other tab keeps replaying it.
func (r *Repository) DeleteByAPIKey(apiKey string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE api_key = ?", apiKey)
	return err
}

// DeleteExpired removes expired sessions and returns how many were deleted
func (r *Repository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
