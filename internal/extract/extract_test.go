package extract

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/dvoronin/ledgerline/internal/ledger"
)

var ingestDate = civil.Date{Year: 2024, Month: 9, Day: 1}

func TestExtractFullReply(t *testing.T) {
	raw := `{
		"amount": 72.50,
		"date": "2024-08-15",
		"description": "groceries at superstore",
		"category": "SHOPPING",
		"transactionType": "outcome"
	}`

	tx, err := Extract(raw, ingestDate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if tx.Amount != 72.50 {
		t.Errorf("amount = %v, want 72.50", tx.Amount)
	}
	if tx.Type != ledger.TypeOutcome {
		t.Errorf("type = %q, want outcome", tx.Type)
	}
	if (tx.Date != civil.Date{Year: 2024, Month: 8, Day: 15}) {
		t.Errorf("date = %v, want 2024-08-15", tx.Date)
	}
	if tx.Description != "groceries at superstore" {
		t.Errorf("description = %q", tx.Description)
	}
	if tx.Category != ledger.CategoryShopping {
		t.Errorf("category = %q, want SHOPPING", tx.Category)
	}
	if tx.UsingType != ledger.UsingActive {
		t.Errorf("using type = %d, want active", tx.UsingType)
	}
	if tx.ID != 0 {
		t.Errorf("id must be unassigned, got %d", tx.ID)
	}
}

func TestExtractDeterministic(t *testing.T) {
	raw := "```json\n" + `{"amount": "1,250.00", "date": "08/15/2024", "category": "food"}` + "\n```"

	first, err := Extract(raw, ingestDate)
	if err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	second, err := Extract(raw, ingestDate)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical replies produced different transactions:\n%+v\n%+v", first, second)
	}
}

func TestExtractMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n{\"amount\": 10, \"date\": \"2024-01-02\"}\n```"},
		{"bare fence", "```\n{\"amount\": 10, \"date\": \"2024-01-02\"}\n```"},
		{"leading prose", "Here is the transaction:\n{\"amount\": 10, \"date\": \"2024-01-02\"}\nLet me know!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Extract(tt.raw, ingestDate)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if tx.Amount != 10 {
				t.Errorf("amount = %v, want 10", tx.Amount)
			}
		})
	}
}

func TestExtractFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"not json", "sorry, I could not read that receipt", ErrMalformedReply},
		{"truncated json", `{"amount": 12.5, "date":`, ErrMalformedReply},
		{"no amount", `{"date": "2024-08-15", "description": "groceries"}`, ErrMissingAmount},
		{"null amount", `{"amount": null, "date": "2024-08-15"}`, ErrMissingAmount},
		{"non-numeric amount", `{"amount": "a lot"}`, ErrMissingAmount},
		{"amount wrong type", `{"amount": [72.5]}`, ErrMissingAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.raw, ingestDate)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractExplicitZeroAmount(t *testing.T) {
	tx, err := Extract(`{"amount": 0, "description": "fee waived"}`, ingestDate)
	if err != nil {
		t.Fatalf("explicit zero amount must not fail: %v", err)
	}
	if tx.Amount != 0 {
		t.Errorf("amount = %v, want 0", tx.Amount)
	}
}

func TestExtractDateFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want civil.Date
	}{
		{"iso date", `{"amount": 5, "date": "2024-08-15"}`, civil.Date{Year: 2024, Month: 8, Day: 15}},
		{"us slash date", `{"amount": 5, "date": "08/15/2024"}`, civil.Date{Year: 2024, Month: 8, Day: 15}},
		{"absent date", `{"amount": 5}`, ingestDate},
		{"unparseable date", `{"amount": 5, "date": "mid August"}`, ingestDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Extract(tt.raw, ingestDate)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if tx.Date != tt.want {
				t.Errorf("date = %v, want %v", tx.Date, tt.want)
			}
		})
	}
}

func TestExtractCategoryCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ledger.Category
	}{
		{"exact", `{"amount": 5, "category": "HOUSING"}`, ledger.CategoryHousing},
		{"lowercase", `{"amount": 5, "category": "food"}`, ledger.CategoryFood},
		{"padded", `{"amount": 5, "category": "  Transport "}`, ledger.CategoryTransport},
		{"unknown falls back", `{"amount": 5, "category": "GROCERIES"}`, ledger.CategoryOther},
		{"absent falls back", `{"amount": 5}`, ledger.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Extract(tt.raw, ingestDate)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if tx.Category != tt.want {
				t.Errorf("category = %q, want %q", tx.Category, tt.want)
			}
		})
	}
}

func TestExtractDescriptionFallback(t *testing.T) {
	t.Run("merchant stands in", func(t *testing.T) {
		tx, err := Extract(`{"amount": 5, "merchant": "Superstore"}`, ingestDate)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if tx.Description != "Superstore" {
			t.Errorf("description = %q, want merchant name", tx.Description)
		}
	})

	t.Run("raw reply truncated", func(t *testing.T) {
		long := `{"amount": 5, "note": "` + strings.Repeat("x", 400) + `"}`
		tx, err := Extract(long, ingestDate)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if len([]rune(tx.Description)) != maxDescriptionLen {
			t.Errorf("description length = %d, want %d", len([]rune(tx.Description)), maxDescriptionLen)
		}
		if !strings.HasPrefix(long, tx.Description) {
			t.Error("description must be a prefix of the raw reply")
		}
	})
}

func TestExtractNegativeAmountBecomesOutcome(t *testing.T) {
	tx, err := Extract(`{"amount": -42.10}`, ingestDate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if tx.Amount != 42.10 {
		t.Errorf("amount = %v, want absolute value 42.10", tx.Amount)
	}
	if tx.Type != ledger.TypeOutcome {
		t.Errorf("type = %q, want outcome", tx.Type)
	}
}

func TestExtractDeclaredIncome(t *testing.T) {
	tx, err := Extract(`{"amount": 3000, "category": "salary", "transaction_type": "INCOME"}`, ingestDate)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if tx.Type != ledger.TypeIncome {
		t.Errorf("type = %q, want income", tx.Type)
	}
	if tx.Category != ledger.CategorySalary {
		t.Errorf("category = %q, want SALARY", tx.Category)
	}
}
