package ingest

import (
	"strings"

	"github.com/dvoronin/ledgerline/internal/ledger"
)

// replySchemaPrompt instructs the model to answer with one strict JSON
// object in the shape the extractor understands.
func replySchemaPrompt() string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant that turns a purchase into one structured transaction.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object, not an array.\n\n")
	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"amount\": number (the transaction amount, always positive)\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\", or null if unknown\n")
	b.WriteString("- \"description\": string (short summary of what was bought or received)\n")
	b.WriteString("- \"category\": string (one of the categories below)\n")
	b.WriteString("- \"transactionType\": string, \"income\" or \"outcome\"\n\n")

	b.WriteString("Use ONLY the following categories:\n")
	for _, c := range ledger.Categories() {
		b.WriteString("  - " + string(c) + "\n")
	}
	b.WriteString("If none fits, use \"" + string(ledger.CategoryOther) + "\".\n\n")

	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Do NOT use ```json or any Markdown.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}

// buildTextPrompt wraps a user's free-text description of a purchase.
func buildTextPrompt(message string) string {
	return replySchemaPrompt() + "\nThe user's message is:\n" + message + "\n"
}

// buildReceiptPrompt accompanies an attached receipt photo.
func buildReceiptPrompt() string {
	return replySchemaPrompt() + "\nParse the attached receipt photo. Use the receipt total as the amount.\n"
}
