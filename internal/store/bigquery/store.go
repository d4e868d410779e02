// Package bigquery is the BigQuery-backed TransactionStore. Transactions live
// in a single table; deletes are UPDATEs of the lifecycle flag, never DML
// deletes. Id assignment is serialized in-process behind a mutex seeded from
// the current MAX(transaction_id).
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/store"
)

// Config locates the transactions table.
type Config struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// DefaultTableID is used when Config leaves TableID empty.
const DefaultTableID = "transactions"

// Store implements store.TransactionStore on BigQuery.
type Store struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string

	mu     sync.Mutex
	nextID int64 // 0 until seeded from the table
}

// New creates a BigQuery-backed store with a shared client.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" || cfg.DatasetID == "" {
		return nil, fmt.Errorf("New: project and dataset are required")
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("New: bigquery client: %w", err)
	}

	table := cfg.TableID
	if table == "" {
		table = DefaultTableID
	}

	return &Store{
		client:  client,
		project: cfg.ProjectID,
		dataset: cfg.DatasetID,
		table:   table,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

type transactionRow struct {
	TransactionID   int64      `bigquery:"transaction_id"`
	Amount          *big.Rat   `bigquery:"amount"` // NUMERIC
	TransactionType string     `bigquery:"transaction_type"`
	TransactionDate civil.Date `bigquery:"transaction_date"`
	Description     string     `bigquery:"description"`
	Category        string     `bigquery:"category"`
	UsingType       int64      `bigquery:"using_type"`
	CreatedTS       time.Time  `bigquery:"created_ts"`
}

func (s *Store) qualifiedTable() string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, s.table)
}

// Save implements store.TransactionStore. Ids keep climbing even when an
// insert fails, so a retried request can never reuse one.
func (s *Store) Save(ctx context.Context, tx *ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextID == 0 {
		seed, err := s.maxAssignedID(ctx)
		if err != nil {
			return 0, fmt.Errorf("Save: seeding id counter: %w", err)
		}
		s.nextID = seed + 1
	}

	id := s.nextID
	s.nextID++

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	amount := new(big.Rat)
	amount.SetFloat64(tx.Amount)

	row := &transactionRow{
		TransactionID:   id,
		Amount:          amount,
		TransactionType: string(tx.Type),
		TransactionDate: tx.Date,
		Description:     tx.Description,
		Category:        string(tx.Category),
		UsingType:       int64(tx.UsingType),
		CreatedTS:       createdAt,
	}

	inserter := s.client.DatasetInProject(s.project, s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return 0, fmt.Errorf("Save: inserting row: %w", err)
	}

	return id, nil
}

func (s *Store) maxAssignedID(ctx context.Context) (int64, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT IFNULL(MAX(transaction_id), 0) AS max_id
		FROM %s
	`, s.qualifiedTable()))

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("maxAssignedID: query read: %w", err)
	}

	var row struct {
		MaxID int64 `bigquery:"max_id"`
	}
	if err := it.Next(&row); err != nil {
		return 0, fmt.Errorf("maxAssignedID: iter next: %w", err)
	}

	return row.MaxID, nil
}

// GetAll implements store.TransactionStore. Filtering happens in SQL so the
// permissive query contract (unknown values match nothing) falls out of the
// literal equality predicates.
func (s *Store) GetAll(ctx context.Context, query store.Query) ([]*ledger.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT
			transaction_id,
			amount,
			transaction_type,
			transaction_date,
			description,
			category,
			using_type,
			created_ts
		FROM %s
		WHERE 1 = 1
	`, s.qualifiedTable())

	var params []bigquery.QueryParameter

	if !query.IncludeDeleted {
		sql += fmt.Sprintf("\n\t\t  AND using_type != %d", ledger.UsingDeleted)
	}
	if c := query.Category; c != "" {
		sql += "\n\t\t  AND UPPER(category) = UPPER(TRIM(@category))"
		params = append(params, bigquery.QueryParameter{Name: "category", Value: c})
	}
	if tt := query.TransactionType; tt != "" {
		sql += "\n\t\t  AND LOWER(transaction_type) = LOWER(TRIM(@transaction_type))"
		params = append(params, bigquery.QueryParameter{Name: "transaction_type", Value: tt})
	}

	direction := "DESC"
	if query.Sort() == store.SortAsc {
		direction = "ASC"
	}
	sql += fmt.Sprintf("\n\t\tORDER BY transaction_date %s, transaction_id ASC", direction)

	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAll: query read: %w", err)
	}

	var result []*ledger.Transaction
	for {
		var row transactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GetAll: iter next: %w", err)
		}
		result = append(result, rowToTransaction(&row))
	}

	return result, nil
}

func rowToTransaction(row *transactionRow) *ledger.Transaction {
	amount := 0.0
	if row.Amount != nil {
		amount, _ = row.Amount.Float64()
	}
	return &ledger.Transaction{
		ID:          row.TransactionID,
		Amount:      amount,
		Type:        ledger.TransactionType(row.TransactionType),
		Date:        row.TransactionDate,
		Description: row.Description,
		Category:    ledger.Category(row.Category),
		UsingType:   ledger.UsingType(row.UsingType),
		CreatedAt:   row.CreatedTS,
	}
}

// Delete implements store.TransactionStore.
func (s *Store) Delete(ctx context.Context, id int64) error {
	current, err := s.lookupUsingType(ctx, id)
	if err != nil {
		return err
	}
	if current == ledger.UsingDeleted {
		// Already deleted; idempotent no-op.
		return nil
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET using_type = @deleted
		WHERE transaction_id = @transaction_id
	`, s.qualifiedTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "deleted", Value: int64(ledger.UsingDeleted)},
		{Name: "transaction_id", Value: id},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("Delete: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("Delete: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("Delete: job error: %w", err)
	}

	return nil
}

func (s *Store) lookupUsingType(ctx context.Context, id int64) (ledger.UsingType, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT using_type
		FROM %s
		WHERE transaction_id = @transaction_id
	`, s.qualifiedTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("lookupUsingType: query read: %w", err)
	}

	var row struct {
		UsingType int64 `bigquery:"using_type"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, ledger.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookupUsingType: iter next: %w", err)
	}

	return ledger.UsingType(row.UsingType), nil
}

var _ store.TransactionStore = (*Store)(nil)
