package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvoronin/ledgerline/internal/archive"
	"github.com/dvoronin/ledgerline/internal/config"
	"github.com/dvoronin/ledgerline/internal/gateway"
	"github.com/dvoronin/ledgerline/internal/ingest"
	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/logger"
	"github.com/dvoronin/ledgerline/internal/store"
	storeBQ "github.com/dvoronin/ledgerline/internal/store/bigquery"
	"github.com/dvoronin/ledgerline/internal/store/memory"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		runAdd()
	case "text":
		runText()
	case "image":
		runImage()
	case "list":
		runList()
	case "delete":
		runDelete()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledgerline CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add      Record a transaction with explicit fields")
	fmt.Println("  text     Record a transaction from a free-text description")
	fmt.Println("  image    Record a transaction from a receipt photo")
	fmt.Println("  list     List recorded transactions")
	fmt.Println("  delete   Logically delete a transaction by id")
	fmt.Println("  help     Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// buildService wires the full ingestion stack from the environment. Without
// a configured BigQuery project the store is in-memory and forgets everything
// at exit, so that mode only gets a warning, not an error.
func buildService(ctx context.Context, log zerolog.Logger) (*ingest.Service, func()) {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var txStore store.TransactionStore
	cleanup := func() {}
	if cfg.BigQueryProject == "" {
		log.Warn().Msg("Using in-memory store - transactions will not survive this run")
		txStore = memory.New()
	} else {
		bq, err := storeBQ.New(ctx, storeBQ.Config{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
			TableID:   cfg.BigQueryTable,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		txStore = bq
		cleanup = func() { bq.Close() }
	}

	gw, err := gateway.NewGemini(ctx, gateway.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini gateway")
	}

	var archiver ingest.Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCS(cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS archiver")
		}
		archiver = gcs
	}

	return ingest.NewService(gw, txStore, archiver, log), cleanup
}

func runAdd() {
	log := logger.New("")
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	amount := fs.Float64("amount", 0, "Transaction amount (non-negative)")
	txType := fs.String("type", "outcome", "Transaction type: income or outcome")
	date := fs.String("date", "", "Transaction date, YYYY-MM-DD (defaults to today)")
	description := fs.String("description", "", "Transaction description")
	category := fs.String("category", "OTHER", "Transaction category")
	fs.Parse(os.Args[2:])

	if *description == "" {
		log.Fatal().Msg("Error: --description is required")
	}

	day := civil.DateOf(time.Now())
	if *date != "" {
		parsed, err := civil.ParseDate(*date)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --date, expected YYYY-MM-DD")
		}
		day = parsed
	}

	typ, ok := ledger.ParseTransactionType(*txType)
	if !ok {
		log.Fatal().Msg("Error: --type must be income or outcome")
	}
	cat, _ := ledger.ParseCategory(*category)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, cleanup := buildService(ctx, log)
	defer cleanup()

	tx, err := svc.CreateManual(ctx, &ledger.Transaction{
		Amount:      *amount,
		Type:        typ,
		Date:        day,
		Description: *description,
		Category:    cat,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}

	fmt.Printf("Recorded transaction %d.\n", tx.ID)
}

func runText() {
	log := logger.New("")
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	message := fs.String("message", "", "Free-text transaction description, e.g. \"coffee 4.50 yesterday\"")
	fs.Parse(os.Args[2:])

	if *message == "" {
		log.Fatal().Msg("Error: --message is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, cleanup := buildService(ctx, log)
	defer cleanup()

	tx, err := svc.CreateFromText(ctx, *message)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}

	printTransaction(tx)
}

func runImage() {
	log := logger.New("")
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the receipt image (jpeg, png or webp)")
	mimeType := fs.String("mime", "", "Image MIME type (detected from content when empty)")
	fs.Parse(os.Args[2:])

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read image file")
	}
	if *mimeType == "" {
		*mimeType = http.DetectContentType(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, cleanup := buildService(ctx, log)
	defer cleanup()

	tx, err := svc.CreateFromImage(ctx, data, *mimeType)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to record transaction")
	}

	printTransaction(tx)
}

func runList() {
	log := logger.New("")
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sortOrder := fs.String("sort", "desc", "Sort order by date: asc or desc")
	category := fs.String("category", "", "Filter by category")
	txType := fs.String("type", "", "Filter by transaction type")
	includeDeleted := fs.Bool("deleted", false, "Include logically deleted transactions")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, cleanup := buildService(ctx, log)
	defer cleanup()

	txs, err := svc.Query(ctx, store.Query{
		SortOrder:       *sortOrder,
		Category:        *category,
		TransactionType: *txType,
		IncludeDeleted:  *includeDeleted,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("=== Transactions (%d) ===\n", len(txs))
	for _, tx := range txs {
		printTransaction(tx)
	}
}

func runDelete() {
	log := logger.New("")
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "Transaction id to delete")
	fs.Parse(os.Args[2:])

	if *id <= 0 {
		log.Fatal().Msg("Error: --id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, cleanup := buildService(ctx, log)
	defer cleanup()

	if err := svc.Delete(ctx, *id); err != nil {
		log.Fatal().Err(err).Msg("Failed to delete transaction")
	}

	fmt.Printf("Transaction %d deleted.\n", *id)
}

func printTransaction(tx *ledger.Transaction) {
	status := ""
	if tx.UsingType == ledger.UsingDeleted {
		status = " (deleted)"
	}
	fmt.Printf("\n%d. %s%s\n", tx.ID, tx.Description, status)
	fmt.Printf("   Date:     %s\n", tx.Date)
	fmt.Printf("   Amount:   %.2f (%s)\n", tx.Amount, tx.Type)
	fmt.Printf("   Category: %s\n", tx.Category)
}
