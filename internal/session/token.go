package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies bearer tokens with an HMAC secret. Token
// expiry is checked against the codec's own clock, independently of the
// registry.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenCodec(secret, algorithm string, now func() time.Time) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}

	if now == nil {
		now = time.Now
	}

	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		now:    now,
	}, nil
}

func (c *TokenCodec) Encode(s domain.Session) (string, error) {
	claims := Claims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return signed, nil
}

// Decode verifies signature and expiry.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	return c.parse(token,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
}

// DecodeIgnoringExpiry verifies only the signature. Logout uses it so that a
// record can be removed after its token has lapsed.
func (c *TokenCodec) DecodeIgnoringExpiry(token string) (*Claims, error) {
	return c.parse(token, jwt.WithoutClaimsValidation())
}

func (c *TokenCodec) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{c.method.Alg()}))

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !parsed.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
