// Package directory answers admin lookups over the account base. The
// Elasticsearch backend keeps a denormalized copy of each account; the store
// backend queries the account table directly.
package directory

import (
	"context"

	"github.com/Skotchmaster/accounts/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Entry struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Role    models.Role    `json:"role"`
	Profile models.Profile `json:"profile"`
}

func EntryFromAccount(a *models.Account) Entry {
	return Entry{ID: a.ID, Email: a.Email, Role: a.Role, Profile: a.Profile}
}

type Result struct {
	Total   int64
	Entries []Entry
}

type Directory interface {
	Index(ctx context.Context, a *models.Account) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, from, size int) (Result, error)
}

// Page turns a 1-based page number and size into an offset and limit.
func Page(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	from = (page - 1) * size
	return from, size
}
