// Package extract turns a raw AI model reply into a well-typed transaction.
// Extraction is deterministic: the same reply and fallback date always yield
// the same transaction, and it never calls out to anything.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvoronin/ledgerline/internal/ledger"
)

var (
	// ErrMalformedReply means the reply could not be reduced to a JSON object.
	ErrMalformedReply = errors.New("malformed model reply")

	// ErrMissingAmount means the reply parsed but carries no usable amount.
	// Extraction fails rather than defaulting to zero.
	ErrMissingAmount = errors.New("model reply carries no amount")
)

// maxDescriptionLen bounds the description fallback copied from the raw reply.
const maxDescriptionLen = 120

// dateFormats is the accepted format family for the reply's date field.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02 Jan 2006",
}

// Extract parses a raw model reply into a transaction ready for the store:
// UsingType is active and the ID is unassigned. fallbackDate is the ingestion
// date, used when the reply has no parseable date; passing it in keeps the
// function free of clock reads.
func Extract(raw string, fallbackDate civil.Date) (*ledger.Transaction, error) {
	clean := cleanReplyJSON(raw)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("Extract: reply is not a JSON object: %v: %w", err, ErrMalformedReply)
	}

	amount, ok, err := numberField(obj, "amount")
	if err != nil {
		return nil, fmt.Errorf("Extract: %v: %w", err, ErrMissingAmount)
	}
	if !ok {
		return nil, fmt.Errorf("Extract: %w", ErrMissingAmount)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("Extract: amount is not finite: %w", ErrMissingAmount)
	}

	// The transaction_type field is authoritative for direction. Amount is
	// stored as an absolute value either way.
	txType := directionOf(obj)
	amount = math.Abs(amount)

	date := fallbackDate
	if s, found := stringField(obj, "date"); found {
		if parsed, ok := parseDate(s); ok {
			date = parsed
		}
	}

	catName, _ := stringField(obj, "category")
	category, _ := ledger.ParseCategory(catName)

	description, found := stringField(obj, "description")
	if !found {
		description, found = stringField(obj, "merchant")
	}
	if !found {
		description = truncate(strings.TrimSpace(raw), maxDescriptionLen)
	}

	return &ledger.Transaction{
		Amount:      amount,
		Type:        txType,
		Date:        date,
		Description: description,
		Category:    category,
		UsingType:   ledger.UsingActive,
	}, nil
}

// cleanReplyJSON strips Markdown fences and surrounding prose the model may
// emit despite instructions, keeping the outermost JSON object.
func cleanReplyJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// directionOf resolves income vs outcome from a recognizable
// transaction_type field. Without one the transaction is an outcome: receipts
// and bills are the dominant modality, and a bare sign on the amount is too
// ambiguous to promote a record to income.
func directionOf(obj map[string]interface{}) ledger.TransactionType {
	for _, key := range []string{"transactionType", "transaction_type", "type"} {
		if s, found := stringField(obj, key); found {
			if t, ok := ledger.ParseTransactionType(s); ok {
				return t
			}
		}
	}
	return ledger.TypeOutcome
}

func parseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// stringField returns a non-empty trimmed string value for key.
func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// numberField reads key as a number. Models sometimes render amounts as
// strings ("$72.50", "1,250.00"), so those are coerced too. A present but
// unusable value is an error; an absent value is ok=false.
func numberField(m map[string]interface{}, key string) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		return val, true, nil
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.TrimPrefix(cleaned, "$")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %q is not numeric: %q", key, val)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
