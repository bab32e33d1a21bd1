package session

import (
	"context"
	"maps"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/internal/metrics"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"go.uber.org/zap"
)

// Token is an issued bearer token together with the session it opens.
type Token struct {
	AccessToken string
	SessionID   string
	ExpiresAt   time.Time
}

type Manager struct {
	registry *Registry
	codec    *TokenCodec
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewManager(registry *Registry, codec *TokenCodec, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		registry: registry,
		codec:    codec,
		metrics:  m,
		logger:   logger,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.registry.TTL()
}

func (m *Manager) CreateSession(ctx context.Context, userData map[string]any) (Token, error) {
	s := m.registry.Create(userData)

	token, err := m.issue(s)
	if err != nil {
		m.registry.Delete(s.ID)

		mylogger.Error(ctx, m.logger, "Failed to sign session token", zap.Error(err))

		return Token{}, domain.Internal("Failed to create session", err)
	}

	m.metrics.SessionCreated()

	mylogger.Debug(ctx, m.logger, "Session created", zap.String("session_id", s.ID))

	return token, nil
}

// VerifyToken resolves a bearer token to its live session. Any failure is
// reported as Unauthorized.
func (m *Manager) VerifyToken(ctx context.Context, token string) (domain.Session, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		mylogger.Debug(ctx, m.logger, "Token rejected", zap.Error(err))

		return domain.Session{}, domain.Unauthorized("Invalid or expired token")
	}

	s, ok := m.registry.Lookup(claims.SessionID)
	if !ok {
		return domain.Session{}, domain.Unauthorized("Invalid or expired token")
	}

	return s, nil
}

// InvalidateSession removes the token's session and reports whether it was
// still registered. An expired token with a valid signature still removes
// its record.
func (m *Manager) InvalidateSession(ctx context.Context, token string) bool {
	claims, err := m.codec.DecodeIgnoringExpiry(token)
	if err != nil {
		mylogger.Debug(ctx, m.logger, "Logout with unreadable token", zap.Error(err))

		return false
	}

	if !m.registry.Delete(claims.SessionID) {
		return false
	}

	m.metrics.SessionInvalidated()

	mylogger.Debug(ctx, m.logger, "Session invalidated", zap.String("session_id", claims.SessionID))

	return true
}

// RefreshSession swaps the token's session for a new one with the same user
// data. The old token stops verifying immediately.
func (m *Manager) RefreshSession(ctx context.Context, token string) (Token, error) {
	claims, err := m.codec.Decode(token)
	if err != nil {
		return Token{}, domain.Unauthorized("Invalid or expired token")
	}

	s, ok := m.registry.Rotate(claims.SessionID)
	if !ok {
		return Token{}, domain.Unauthorized("Invalid or expired token")
	}

	m.metrics.SessionInvalidated()

	refreshed, err := m.issue(s)
	if err != nil {
		m.registry.Delete(s.ID)

		mylogger.Error(ctx, m.logger, "Failed to sign refreshed token", zap.Error(err))

		return Token{}, domain.Internal("Failed to refresh session", err)
	}

	m.metrics.SessionCreated()

	return refreshed, nil
}

// CountActiveSessions sweeps expired records and counts the rest.
func (m *Manager) CountActiveSessions() int {
	return m.registry.Sweep()
}

func (m *Manager) issue(s domain.Session) (Token, error) {
	signed, err := m.codec.Encode(s)
	if err != nil {
		return Token{}, err
	}

	return Token{
		AccessToken: signed,
		SessionID:   s.ID,
		ExpiresAt:   s.ExpiresAt,
	}, nil
}

// MergeUserData builds a session's user data from the login body: metadata
// first, then user_id when given.
func MergeUserData(userID string, metadata map[string]any) map[string]any {
	data := maps.Clone(metadata)
	if data == nil {
		data = map[string]any{}
	}
	if userID != "" {
		data["user_id"] = userID
	}

	return data
}
