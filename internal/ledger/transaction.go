package ledger

import (
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// TransactionType encodes the direction of a transaction. It is the single
// source of truth for income vs outcome; Amount is always stored as an
// absolute value.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeOutcome TransactionType = "outcome"
)

// UsingType is the lifecycle flag of a transaction. Deleted records stay in
// storage and are excluded from default queries.
type UsingType int64

const (
	UsingActive   UsingType = 1
	UsingReserved UsingType = 2
	UsingDeleted  UsingType = 3
)

// Category is the closed set of spending categories. Model output that does
// not map onto this set is coerced to CategoryOther, never passed through raw.
type Category string

const (
	CategoryShopping      Category = "SHOPPING"
	CategoryHousing       Category = "HOUSING"
	CategoryFood          Category = "FOOD"
	CategoryTransport     Category = "TRANSPORT"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryHealth        Category = "HEALTH"
	CategoryEducation     Category = "EDUCATION"
	CategoryTravel        Category = "TRAVEL"
	CategorySalary        Category = "SALARY"
	CategoryOther         Category = "OTHER"
)

// Categories lists every member of the closed enumeration, in display order.
func Categories() []Category {
	return []Category{
		CategoryShopping,
		CategoryHousing,
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryHealth,
		CategoryEducation,
		CategoryTravel,
		CategorySalary,
		CategoryOther,
	}
}

// ParseCategory maps a free-form category name onto the closed enumeration.
// Matching is case-insensitive; anything unrecognized resolves to
// CategoryOther with ok=false.
func ParseCategory(name string) (Category, bool) {
	normalized := Category(strings.ToUpper(strings.TrimSpace(name)))
	for _, c := range Categories() {
		if c == normalized {
			return c, true
		}
	}
	return CategoryOther, false
}

// ParseTransactionType maps a free-form direction name onto income/outcome.
func ParseTransactionType(name string) (TransactionType, bool) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(name))) {
	case TypeIncome:
		return TypeIncome, true
	case TypeOutcome:
		return TypeOutcome, true
	}
	return "", false
}

// Transaction is the canonical financial record.
type Transaction struct {
	ID          int64           `json:"id"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"transaction_type"`
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	UsingType   UsingType       `json:"using_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the fields a caller must supply for a manual save. The
// store assigns ID and CreatedAt, so both are ignored here. UsingType zero
// means unset and is left for the service to default; a record cannot be
// created deleted or with a flag outside the enumeration.
func (t *Transaction) Validate() error {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return &ValidationError{Field: "amount", Reason: "must be a finite number"}
	}
	if t.Amount < 0 {
		return &ValidationError{Field: "amount", Reason: "must not be negative; direction is carried by transaction_type"}
	}
	if t.Type != TypeIncome && t.Type != TypeOutcome {
		return &ValidationError{Field: "transaction_type", Reason: "must be income or outcome"}
	}
	if _, ok := ParseCategory(string(t.Category)); !ok {
		return &ValidationError{Field: "category", Reason: "not a known category"}
	}
	if !t.Date.IsValid() {
		return &ValidationError{Field: "date", Reason: "must be a valid calendar date"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if t.UsingType != 0 && t.UsingType != UsingActive && t.UsingType != UsingReserved {
		return &ValidationError{Field: "using_type", Reason: "must be active (1) or reserved (2)"}
	}
	return nil
}
