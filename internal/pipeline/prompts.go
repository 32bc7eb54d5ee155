package pipeline

import (
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/domain"
)

// buildReceiptPrompt constructs the extraction instructions, including the
// canonical category names the ledger understands.
func buildReceiptPrompt() string {
	var b strings.Builder
	b.WriteString("You read Colombian payslips (desprendibles de nómina) and purchase receipts.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract EVERY concept line of the attached document.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object.\n\n")
	b.WriteString("The object must have these fields:\n")
	b.WriteString("- \"date\": string, pay or purchase date as \"YYYY-MM-DD\", or \"\" if the document shows none\n")
	b.WriteString("- \"currency\": string, ISO code (e.g. \"COP\"), or \"\" if unknown\n")
	b.WriteString("- \"rows\": array of objects with:\n")
	b.WriteString("    - \"concept\": string, the line label exactly as printed\n")
	b.WriteString("    - \"earnings\": string, the earnings (devengado) column as printed, \"\" if empty\n")
	b.WriteString("    - \"deductions\": string, the deductions (deducido) column as printed, \"\" if empty\n\n")
	b.WriteString("For a purchase receipt, put each item total under \"deductions\".\n\n")

	b.WriteString("Known ledger categories, for reference only (do not classify, keep concepts verbatim):\n")
	for _, c := range domain.Categories() {
		b.WriteString("  - " + string(c) + "\n")
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Never invent a date. If no date is printed, use \"\".\n")
	b.WriteString("- Keep amounts as printed, with their thousands separators.\n")
	b.WriteString("- Skip subtotal and total lines.\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}
