package resettoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
)

const (
	DefaultTTL = time.Hour
	tokenBytes = 16
)

var ErrInvalidToken = errors.New("invalid reset token")

type Accounts interface {
	FindByResetToken(ctx context.Context, token string) (*models.Account, error)
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
}

// Store issues and checks password-reset tokens kept on the account record.
// Expiry is checked lazily on Validate; nothing sweeps expired tokens.
type Store struct {
	accounts Accounts
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(accounts Accounts, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{accounts: accounts, ttl: ttl, now: time.Now}
}

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Generate replaces any pending reset on a and persists it.
func (s *Store) Generate(ctx context.Context, a *models.Account) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	exp := s.now().Add(s.ttl).UTC()
	if err := s.accounts.SetResetToken(ctx, a.ID, token, exp); err != nil {
		return "", fmt.Errorf("persist reset token: %w", err)
	}
	a.ResetToken = &token
	a.ResetExpires = &exp
	return token, nil
}

// Validate does not consume the token.
func (s *Store) Validate(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	a, err := s.accounts.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !a.HasPendingReset(s.now()) {
		return nil, ErrInvalidToken
	}
	return a, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
