package directory

import (
	"context"

	"github.com/Skotchmaster/accounts/internal/models"
)

type AccountSearcher interface {
	Search(ctx context.Context, q string, offset, limit int) (int64, []models.Account, error)
}

// Store searches the account table directly. Index and Remove are no-ops since
// the table is already the source of truth.
type Store struct {
	accounts AccountSearcher
}

func NewStore(accounts AccountSearcher) *Store {
	return &Store{accounts: accounts}
}

func (s *Store) Index(context.Context, *models.Account) error { return nil }

func (s *Store) Remove(context.Context, string) error { return nil }

func (s *Store) Search(ctx context.Context, query string, from, size int) (Result, error) {
	total, accounts, err := s.accounts.Search(ctx, query, from, size)
	if err != nil {
		return Result{}, err
	}
	entries := make([]Entry, len(accounts))
	for i := range accounts {
		entries[i] = EntryFromAccount(&accounts[i])
	}
	return Result{Total: total, Entries: entries}, nil
}
