package state

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long a persisted bearer token is kept.
const TokenTTL = 5 * 24 * time.Hour

// TokenStore persists the bearer token between runs. Token returns "" when
// nothing is stored or the stored token has expired.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// MemoryTokens is a TokenStore that lives only as long as the process.
type MemoryTokens struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokens returns a store seeded with token.
func NewMemoryTokens(token string) *MemoryTokens {
	return &MemoryTokens{token: token}
}

func (m *MemoryTokens) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokens) SetToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokens) ClearToken() error {
	return m.SetToken("")
}

// tokenExpired reports whether token is a JWT whose exp claim is in the past.
// Opaque or unparsable tokens are left for the user service to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
