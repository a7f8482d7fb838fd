package resettoken

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/accounts/internal/db"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
)

func newTestStore(t *testing.T) (*Store, *repo.GormRepo) {
	t.Helper()

	gdb, err := db.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	return NewStore(r, 0), r
}

func createAccount(t *testing.T, r *repo.GormRepo, email string) *models.Account {
	t.Helper()

	a := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: "hash", Role: models.RoleUser}
	require.NoError(t, r.Create(context.Background(), a))
	return a
}

func TestStore_GenerateAndValidate(t *testing.T) {
	s, r := newTestStore(t)
	ctx := context.Background()
	a := createAccount(t, r, "reset@example.com")

	before := time.Now()
	token, err := s.Generate(ctx, a)
	require.NoError(t, err)
	assert.Len(t, token, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", token)
	require.NotNil(t, a.ResetExpires)
	assert.WithinDuration(t, before.Add(time.Hour), *a.ResetExpires, 2*time.Second)

	got, err := s.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// validation alone does not consume
	_, err = s.Validate(ctx, token)
	require.NoError(t, err)
}

func TestStore_Generate_SupersedesPendingToken(t *testing.T) {
	s, r := newTestStore(t)
	ctx := context.Background()
	a := createAccount(t, r, "twice@example.com")

	first, err := s.Generate(ctx, a)
	require.NoError(t, err)
	second, err := s.Generate(ctx, a)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = s.Validate(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.Validate(ctx, second)
	assert.NoError(t, err)
}

func TestStore_Validate_Expired(t *testing.T) {
	s, r := newTestStore(t)
	ctx := context.Background()
	a := createAccount(t, r, "late@example.com")

	token, err := s.Generate(ctx, a)
	require.NoError(t, err)

	s.WithClock(func() time.Time { return time.Now().Add(time.Hour + time.Minute) })
	_, err = s.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStore_Validate_Unknown(t *testing.T) {
	s, _ := newTestStore(t)

	for _, token := range []string{"", "invalid_token", "00000000000000000000000000000000"} {
		_, err := s.Validate(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestStore_Generate_MissingAccount(t *testing.T) {
	s, _ := newTestStore(t)
	a := &models.Account{ID: uuid.NewString(), Email: "ghost@example.com", PasswordHash: "hash"}

	_, err := s.Generate(context.Background(), a)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.Nil(t, a.ResetToken)
	assert.Nil(t, a.ResetExpires)
}

func TestStore_Generate_KeepsPasswordWrittenAfterRead(t *testing.T) {
	s, r := newTestStore(t)
	ctx := context.Background()
	a := createAccount(t, r, "stale@example.com")

	require.NoError(t, r.SetPassword(ctx, a.ID, "changed-hash"))

	// a still carries the old hash
	_, err := s.Generate(ctx, a)
	require.NoError(t, err)

	got, err := r.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed-hash", got.PasswordHash)
}
