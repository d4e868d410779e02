// Package memory is the in-memory TransactionStore backend. It backs tests
// and single-process deployments; data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/store"
)

// Store holds transactions in memory and is safe for concurrent use. The id
// counter lives behind the same mutex as the map, so concurrent saves cannot
// race on assignment.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	txs    map[int64]*ledger.Transaction
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID: 1,
		txs:    make(map[int64]*ledger.Transaction),
	}
}

// Save implements store.TransactionStore.
func (s *Store) Save(ctx context.Context, tx *ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	// Store a copy so the caller cannot mutate persisted state.
	record := *tx
	record.ID = id
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.txs[id] = &record

	return id, nil
}

// GetAll implements store.TransactionStore.
func (s *Store) GetAll(ctx context.Context, q store.Query) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ledger.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if !q.Matches(tx) {
			continue
		}
		record := *tx
		result = append(result, &record)
	}

	sort.Slice(result, func(i, j int) bool {
		return q.Less(result[i], result[j])
	})

	return result, nil
}

// Delete implements store.TransactionStore.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.txs[id]
	if !exists {
		return ledger.ErrNotFound
	}
	tx.UsingType = ledger.UsingDeleted

	return nil
}

var _ store.TransactionStore = (*Store)(nil)
