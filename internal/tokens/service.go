package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
)

// SubjectLookup resolves a token subject to a live account.
type SubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

type Config struct {
	Secret []byte
	TTL    time.Duration
}

type TokenService struct {
	cfg      Config
	accounts SubjectLookup
	now      func() time.Time
}

func NewTokenService(cfg Config, accounts SubjectLookup) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret must be provided")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &TokenService{cfg: cfg, accounts: accounts, now: time.Now}, nil
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) Issue(accountID, email, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	return s.sign(accountID, email, role, s.now().Add(ttl))
}

func (s *TokenService) sign(accountID, email, role string, exp time.Time) (string, error) {
	claims := SessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) Verify(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	return ClaimsFromToken(token, s.cfg.Secret)
}

// Refresh reissues token with the same claims. The new expiry is at least one
// second past the old one, since exp is encoded in whole seconds.
func (s *TokenService) Refresh(ctx context.Context, token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}

	if s.accounts != nil {
		if _, err := s.accounts.FindByID(ctx, claims.Subject); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", errors.Join(ErrUnauthorized, err)
			}
			return "", fmt.Errorf("lookup subject: %w", err)
		}
	}

	exp := s.now().Add(s.cfg.TTL).Truncate(time.Second)
	if floor := claims.ExpiresAt.Time.Add(time.Second); !exp.After(claims.ExpiresAt.Time) {
		exp = floor
	}
	return s.sign(claims.Subject, claims.Email, claims.Role, exp)
}
