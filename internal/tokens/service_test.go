package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
)

type fakeLookup struct {
	known map[string]bool
	err   error
}

func (f *fakeLookup) FindByID(_ context.Context, id string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.known[id] {
		return nil, repo.ErrNotFound
	}
	return &models.Account{ID: id}, nil
}

func newTestTokenService(t *testing.T, known ...string) *TokenService {
	t.Helper()

	lookup := &fakeLookup{known: map[string]bool{}}
	for _, id := range known {
		lookup.known[id] = true
	}
	svc, err := NewTokenService(Config{Secret: []byte("test-jwt-secret"), TTL: time.Hour}, lookup)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(Config{}, nil)
	require.Error(t, err)
}

func TestTokenService_IssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	tests := []struct {
		name  string
		email string
		role  string
		ttl   time.Duration
	}{
		{name: "user", email: "valid@email.com", role: "user", ttl: time.Hour},
		{name: "admin", email: "admin@example.com", role: "admin", ttl: 5 * time.Minute},
		{name: "default ttl", email: "x@example.com", role: "user", ttl: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := uuid.NewString()
			before := time.Now()
			token, err := svc.Issue(id, tt.email, tt.role, tt.ttl)
			require.NoError(t, err)

			claims, err := svc.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, id, claims.Subject)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.role, claims.Role)

			want := tt.ttl
			if want == 0 {
				want = time.Hour
			}
			require.NotNil(t, claims.ExpiresAt)
			assert.WithinDuration(t, before.Add(want), claims.ExpiresAt.Time, 2*time.Second)
			assert.Nil(t, claims.IssuedAt)
			assert.Empty(t, claims.ID)
		})
	}
}

func TestTokenService_Verify_Rejects(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	valid, err := svc.Issue(uuid.NewString(), "a@example.com", "user", time.Hour)
	require.NoError(t, err)

	expired, err := svc.sign(uuid.NewString(), "a@example.com", "user", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	other, err := NewTokenService(Config{Secret: []byte("other-secret")}, nil)
	require.NoError(t, err)
	foreign, err := other.Issue(uuid.NewString(), "a@example.com", "user", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email:            "a@example.com",
		Role:             "user",
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	}).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"malformed":      "not-a-valid-jwt",
		"expired":        expired,
		"wrong secret":   foreign,
		"tampered":       tampered,
		"missing expiry": noExp,
		"alg none":       noneAlg,
	}

	for name, token := range tests {
		claims, err := svc.Verify(token)
		assert.Nil(t, claims, name)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestTokenService_Refresh_StrictlyLaterExpiry(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	svc := newTestTokenService(t, id)
	fixed := time.Now().Truncate(time.Second)
	svc.WithClock(func() time.Time { return fixed })

	token, err := svc.Issue(id, "a@example.com", "admin", time.Hour)
	require.NoError(t, err)
	first, err := svc.Verify(token)
	require.NoError(t, err)

	prev := first
	current := token
	for i := 0; i < 3; i++ {
		refreshed, err := svc.Refresh(context.Background(), current)
		require.NoError(t, err)

		claims, err := svc.Verify(refreshed)
		require.NoError(t, err)
		assert.True(t, claims.ExpiresAt.Time.After(prev.ExpiresAt.Time))
		assert.Equal(t, first.Subject, claims.Subject)
		assert.Equal(t, first.Email, claims.Email)
		assert.Equal(t, first.Role, claims.Role)

		prev = claims
		current = refreshed
	}
}

func TestTokenService_Refresh_LongerOriginalTTL(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	svc := newTestTokenService(t, id)

	token, err := svc.Issue(id, "a@example.com", "user", 24*time.Hour)
	require.NoError(t, err)
	orig, err := svc.Verify(token)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), token)
	require.NoError(t, err)
	claims, err := svc.Verify(refreshed)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.After(orig.ExpiresAt.Time))
}

func TestTokenService_Refresh_DeletedSubject(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	token, err := svc.Issue(uuid.NewString(), "gone@example.com", "user", time.Hour)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenService_Refresh_InvalidToken(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	_, err := svc.Refresh(context.Background(), "not-a-valid-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
