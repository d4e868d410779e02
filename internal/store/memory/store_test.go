package memory

import (
	"context"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/store"
)

func newTx(amount float64, date civil.Date, category ledger.Category, txType ledger.TransactionType) *ledger.Transaction {
	return &ledger.Transaction{
		Amount:      amount,
		Type:        txType,
		Date:        date,
		Description: "test",
		Category:    category,
		UsingType:   ledger.UsingActive,
	}
}

func TestSaveThenGetAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx := newTx(72.50, civil.Date{Year: 2024, Month: 8, Day: 15}, ledger.CategoryShopping, ledger.TypeOutcome)
	tx.Description = "groceries"

	id, err := s.Save(ctx, tx)
	require.NoError(t, err)
	assert.NotZero(t, id)

	all, err := s.GetAll(ctx, store.Query{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 72.50, got.Amount)
	assert.Equal(t, ledger.CategoryShopping, got.Category)
	assert.Equal(t, "groceries", got.Description)
	assert.Equal(t, ledger.UsingActive, got.UsingType)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveDoesNotAliasCallerValue(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx := newTx(10, civil.Date{Year: 2024, Month: 1, Day: 1}, ledger.CategoryFood, ledger.TypeOutcome)
	_, err := s.Save(ctx, tx)
	require.NoError(t, err)

	tx.Amount = 999

	all, err := s.GetAll(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, float64(10), all[0].Amount)
}

func TestIDsAreUniqueAndMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()

	var last int64
	for i := 0; i < 10; i++ {
		id, err := s.Save(ctx, newTx(1, civil.Date{Year: 2024, Month: 1, Day: 1}, ledger.CategoryOther, ledger.TypeOutcome))
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestConcurrentSavesDoNotRaceOnIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Save(ctx, newTx(1, civil.Date{Year: 2024, Month: 1, Day: 1}, ledger.CategoryOther, ledger.TypeOutcome))
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Save(ctx, newTx(5, civil.Date{Year: 2024, Month: 2, Day: 2}, ledger.CategoryFood, ledger.TypeOutcome))
	require.NoError(t, err)

	t.Run("hides record from default queries", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, id))

		all, err := s.GetAll(ctx, store.Query{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("record stays visible with IncludeDeleted", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{IncludeDeleted: true})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ledger.UsingDeleted, all[0].UsingType)
	})

	t.Run("idempotent on deleted id", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, id))
	})

	t.Run("not found for unknown id", func(t *testing.T) {
		err := s.Delete(ctx, 999)
		assert.ErrorIs(t, err, ledger.ErrNotFound)

		all, err := s.GetAll(ctx, store.Query{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Len(t, all, 1, "failed delete must not change the store")
	})
}

func TestGetAllSorting(t *testing.T) {
	s := New()
	ctx := context.Background()

	dates := []civil.Date{
		{Year: 2024, Month: 3, Day: 10},
		{Year: 2024, Month: 1, Day: 5},
		{Year: 2024, Month: 7, Day: 20},
	}
	for _, d := range dates {
		_, err := s.Save(ctx, newTx(1, d, ledger.CategoryOther, ledger.TypeOutcome))
		require.NoError(t, err)
	}

	t.Run("ascending", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Date.Before(all[i-1].Date))
		}
	})

	t.Run("default is descending", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i-1].Date.Before(all[i].Date))
		}
	})

	t.Run("unrecognized order falls back to descending", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{SortOrder: "sideways"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, civil.Date{Year: 2024, Month: 7, Day: 20}, all[0].Date)
	})
}

func TestGetAllTieBreaksByID(t *testing.T) {
	s := New()
	ctx := context.Background()

	date := civil.Date{Year: 2024, Month: 5, Day: 5}
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.Save(ctx, newTx(float64(i), date, ledger.CategoryOther, ledger.TypeOutcome))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, order := range []string{"asc", "desc"} {
		all, err := s.GetAll(ctx, store.Query{SortOrder: order})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, tx := range all {
			assert.Equal(t, ids[i], tx.ID, "order %q", order)
		}
	}
}

func TestGetAllFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Save(ctx, newTx(10, civil.Date{Year: 2024, Month: 1, Day: 1}, ledger.CategoryFood, ledger.TypeOutcome))
	require.NoError(t, err)
	_, err = s.Save(ctx, newTx(20, civil.Date{Year: 2024, Month: 1, Day: 2}, ledger.CategoryShopping, ledger.TypeOutcome))
	require.NoError(t, err)
	_, err = s.Save(ctx, newTx(3000, civil.Date{Year: 2024, Month: 1, Day: 3}, ledger.CategorySalary, ledger.TypeIncome))
	require.NoError(t, err)

	t.Run("category filter", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{Category: "FOOD"})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ledger.CategoryFood, all[0].Category)
	})

	t.Run("category filter is case-insensitive", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{Category: "shopping"})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("unknown category matches nothing", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{Category: "UNKNOWN_CATEGORY"})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("transaction type filter", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{TransactionType: "income"})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ledger.TypeIncome, all[0].Type)
	})

	t.Run("combined filters", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{Category: "SALARY", TransactionType: "outcome"})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("empty parameters mean no filter", func(t *testing.T) {
		all, err := s.GetAll(ctx, store.Query{Category: "  ", TransactionType: ""})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
