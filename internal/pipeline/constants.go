package pipeline

// Defaults for receipt ingestion. The model can be overridden with the
// gemini.model setting.
const (
	// DefaultModelName is the default Gemini model used to read receipts.
	DefaultModelName = "gemini-2.5-flash"

	// MaxReceiptRows bounds how many rows a single receipt may carry.
	MaxReceiptRows = 200
)
