// Package ingest composes the AI gateway, the extractor, and the transaction
// store into the three ingestion modalities: manual, text-assisted, and
// image-assisted. A transaction is persisted iff every step before the save
// succeeded; a failed gateway call or extraction never touches the store.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvoronin/ledgerline/internal/extract"
	"github.com/dvoronin/ledgerline/internal/gateway"
	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/store"
)

// Archiver keeps an audit copy of ingested material. Implementations are
// best-effort collaborators: the service logs archive failures and moves on.
type Archiver interface {
	ArchiveReceipt(ctx context.Context, data []byte, mimeType string) (string, error)
	ArchiveReply(ctx context.Context, reply string) (string, error)
}

// Service is the ingestion orchestrator.
type Service struct {
	gateway gateway.Client
	store   store.TransactionStore
	archive Archiver // nil disables archiving
	log     zerolog.Logger
	now     func() time.Time
}

// NewService wires the orchestrator. archiver may be nil.
func NewService(gw gateway.Client, st store.TransactionStore, archiver Archiver, log zerolog.Logger) *Service {
	return &Service{
		gateway: gw,
		store:   st,
		archive: archiver,
		log:     log,
		now:     time.Now,
	}
}

// CreateManual validates a fully-formed transaction and saves it. No AI call.
func (s *Service) CreateManual(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, error) {
	if tx.UsingType == 0 {
		tx.UsingType = ledger.UsingActive
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	return s.save(ctx, tx)
}

// CreateFromText sends the user's message through the model and persists the
// extracted transaction.
func (s *Service) CreateFromText(ctx context.Context, message string) (*ledger.Transaction, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ledger.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	return s.ingest(ctx, gateway.TextPrompt(buildTextPrompt(message)), nil, "")
}

// CreateFromImage sends a receipt photo through the model and persists the
// extracted transaction. Payload size and MIME type are checked here so a bad
// upload is reported as the caller's mistake, not a gateway failure.
func (s *Service) CreateFromImage(ctx context.Context, image []byte, mimeType string) (*ledger.Transaction, error) {
	if len(image) == 0 {
		return nil, &ledger.ValidationError{Field: "image", Reason: "must not be empty"}
	}
	if len(image) > gateway.MaxImageBytes {
		return nil, &ledger.ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("is %d bytes, limit is %d", len(image), gateway.MaxImageBytes),
		}
	}
	if !gateway.ValidImageMIME(mimeType) {
		return nil, &ledger.ValidationError{
			Field:  "image",
			Reason: fmt.Sprintf("unsupported MIME type %q", mimeType),
		}
	}

	return s.ingest(ctx, gateway.ImagePrompt(buildReceiptPrompt(), image, mimeType), image, mimeType)
}

// ingest is the shared gateway → extract → save path. Gateway and extraction
// failures propagate untouched so callers can tell "AI unavailable" from "AI
// replied but could not be understood".
func (s *Service) ingest(ctx context.Context, prompt gateway.Prompt, image []byte, mimeType string) (*ledger.Transaction, error) {
	raw, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	tx, err := extract.Extract(raw, civil.DateOf(s.now()))
	if err != nil {
		return nil, err
	}

	s.archiveArtifacts(ctx, raw, image, mimeType)

	return s.save(ctx, tx)
}

// save persists the transaction. The store call is shielded from caller
// cancellation: once extraction has produced a complete record, abandoning
// the request must not drop it.
func (s *Service) save(ctx context.Context, tx *ledger.Transaction) (*ledger.Transaction, error) {
	id, err := s.store.Save(context.WithoutCancel(ctx), tx)
	if err != nil {
		return nil, fmt.Errorf("saving transaction: %w", err)
	}
	tx.ID = id

	s.log.Info().
		Int64("transaction_id", id).
		Str("category", string(tx.Category)).
		Str("transaction_type", string(tx.Type)).
		Msg("Transaction saved")

	return tx, nil
}

func (s *Service) archiveArtifacts(ctx context.Context, raw string, image []byte, mimeType string) {
	if s.archive == nil {
		return
	}

	if uri, err := s.archive.ArchiveReply(ctx, raw); err != nil {
		s.log.Warn().Err(err).Msg("Failed to archive model reply")
	} else {
		s.log.Debug().Str("uri", uri).Msg("Model reply archived")
	}

	if len(image) > 0 {
		if uri, err := s.archive.ArchiveReceipt(ctx, image, mimeType); err != nil {
			s.log.Warn().Err(err).Msg("Failed to archive receipt image")
		} else {
			s.log.Debug().Str("uri", uri).Msg("Receipt image archived")
		}
	}
}

// Query lists transactions per the store's permissive query contract.
func (s *Service) Query(ctx context.Context, q store.Query) ([]*ledger.Transaction, error) {
	return s.store.GetAll(ctx, q)
}

// Delete logically deletes a transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
