package models

import "time"

// Session binds a bearer token to one principal within one variant namespace.
type Session struct {
	Token       string    `json:"-"`
	PrincipalID string    `json:"principal_id"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute deadline.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
