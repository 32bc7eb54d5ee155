package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dvloznov/pfm-ledger/internal/logger"
	"google.golang.org/genai"
)

// GeminiExtractor is the Extractor backed by a Gemini vision model.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates a Gemini client. An empty apiKey lets the SDK
// read GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// ExtractReceipt sends the document to the model and decodes its rows.
func (g *GeminiExtractor) ExtractReceipt(ctx context.Context, data []byte, mimeType string) (*Receipt, error) {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildReceiptPrompt()},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("ExtractReceipt: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ExtractReceipt: empty response from model")
	}

	receipt, err := decodeReceipt(rawText)
	if err != nil {
		return nil, fmt.Errorf("ExtractReceipt: %w", err)
	}
	logger.FromContext(ctx).Debug().Str("model", g.model).Int("rows", len(receipt.Rows)).Msg("Receipt extracted")
	return receipt, nil
}

// decodeReceipt parses the model answer, tolerating Markdown fences.
func decodeReceipt(raw string) (*Receipt, error) {
	var receipt Receipt
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return &receipt, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
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

	// Keep only the outermost object if there is junk around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
