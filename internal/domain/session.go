package domain

import (
	"maps"
	"time"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserData  map[string]any
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Clone copies the session so callers cannot mutate the registry's user data.
func (s Session) Clone() Session {
	s.UserData = maps.Clone(s.UserData)
	if s.UserData == nil {
		s.UserData = map[string]any{}
	}

	return s
}
