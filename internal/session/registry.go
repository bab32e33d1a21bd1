package session

import (
	"maps"
	"sync"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/google/uuid"
)

// Registry is the process-wide session table. Expired records are dropped
// lazily on lookup and by Sweep; nothing runs in the background.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(ttl time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	return &Registry{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		now:      now,
	}
}

func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Create stores a new session with a fresh id.
func (r *Registry) Create(userData map[string]any) domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(userData)
}

func (r *Registry) insertLocked(userData map[string]any) domain.Session {
	now := r.now()

	s := domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
		UserData:  maps.Clone(userData),
	}
	if s.UserData == nil {
		s.UserData = map[string]any{}
	}

	r.sessions[s.ID] = s

	return s.Clone()
}

// Lookup returns the live session for id. An expired record is removed and
// reported as missing.
func (r *Registry) Lookup(id string) (domain.Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return domain.Session{}, false
	}

	if s.Expired(r.now()) {
		r.mu.Lock()
		if current, ok := r.sessions[id]; ok && current.Expired(r.now()) {
			delete(r.sessions, id)
		}
		r.mu.Unlock()

		return domain.Session{}, false
	}

	return s.Clone(), true
}

// Delete removes id whether or not it has expired and reports whether a
// record was present.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)

	return true
}

// Rotate replaces a live session with a new one carrying the same user
// data. The old id stops resolving in the same critical section.
func (r *Registry) Rotate(id string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, false
	}

	delete(r.sessions, id)

	if old.Expired(r.now()) {
		return domain.Session{}, false
	}

	return r.insertLocked(old.UserData), true
}

// Sweep evicts every expired record and returns how many remain.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
		}
	}

	return len(r.sessions)
}
