// Package store defines the transaction store contract shared by its
// backends: serialized id assignment, logical deletion, and filtered, sorted
// retrieval.
package store

import (
	"context"
	"strings"

	"github.com/dvoronin/ledgerline/internal/ledger"
)

// SortOrder orders query results by transaction date.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query selects and orders transactions. The contract is permissive: an empty
// parameter means no filter (or default order), and a non-empty parameter is
// normalized and matched literally, so an unknown category or type yields an
// empty result rather than an error. Ties on date break by ascending id so
// ordering is deterministic.
type Query struct {
	SortOrder       string
	Category        string
	TransactionType string
	IncludeDeleted  bool
}

// Sort resolves the requested order; anything but "asc" is descending.
func (q Query) Sort() SortOrder {
	if strings.EqualFold(strings.TrimSpace(q.SortOrder), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// Matches reports whether a transaction passes the query's filters.
func (q Query) Matches(tx *ledger.Transaction) bool {
	if !q.IncludeDeleted && tx.UsingType == ledger.UsingDeleted {
		return false
	}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, string(tx.Category)) {
		return false
	}
	if tt := strings.TrimSpace(q.TransactionType); tt != "" && !strings.EqualFold(tt, string(tx.Type)) {
		return false
	}
	return true
}

// Less is the ordering predicate for the query: by date in the requested
// direction, then by ascending id.
func (q Query) Less(a, b *ledger.Transaction) bool {
	if a.Date != b.Date {
		if q.Sort() == SortAsc {
			return a.Date.Before(b.Date)
		}
		return b.Date.Before(a.Date)
	}
	return a.ID < b.ID
}

// TransactionStore persists transactions. Implementations serialize id
// assignment; reads running concurrently with a save may or may not observe
// the new record.
type TransactionStore interface {
	// Save assigns a fresh id, persists the transaction, and returns the id.
	// Ids are never reused and existing records are never overwritten.
	Save(ctx context.Context, tx *ledger.Transaction) (int64, error)

	// GetAll returns the transactions selected by q, ordered per q. Logically
	// deleted records are excluded unless q opts in.
	GetAll(ctx context.Context, q Query) ([]*ledger.Transaction, error)

	// Delete flips the record's lifecycle flag to deleted. It returns
	// ledger.ErrNotFound for an id that was never assigned and succeeds as a
	// no-op for an id that is already deleted.
	Delete(ctx context.Context, id int64) error
}
