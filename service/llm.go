package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/InfradynAB/infradyn1-sub003/config"
	"github.com/InfradynAB/infradyn1-sub003/model"
)

// maxPromptChars caps how much document text goes into one prompt.
const maxPromptChars = 15000

// LLMService turns parsed document text into structured procurement
// records via a chat-completions API.
type LLMService struct {
	config     *config.LLMConfig
	httpClient *http.Client
}

func NewLLMService(cfg *config.LLMConfig) *LLMService {
	return &LLMService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const extractionSystemPrompt = "You are a document extraction assistant. Always respond with valid JSON only. No explanations or markdown."

const poPromptTemplate = `Analyze this Purchase Order document and extract structured data.
Return a JSON object with these fields (use null for missing values):

{
    "po_number": "string or null",
    "vendor_name": "string or null",
    "date": "YYYY-MM-DD or null",
    "total_value": number or null,
    "currency": "3-letter code like USD, EUR, KES or null",
    "scope": "brief description of work scope or null",
    "payment_terms": "e.g., Net 30, 50%% advance or null",
    "incoterms": "e.g., FOB, CIF, EXW or null",
    "retention_percentage": number (0-100) or null,
    "milestones": [
        {
            "title": "string",
            "description": "string or null",
            "expected_date": "YYYY-MM-DD or null",
            "payment_percentage": number
        }
    ],
    "boq_items": [
        {
            "item_number": "string",
            "description": "string",
            "unit": "string",
            "quantity": number,
            "unit_price": number,
            "total_price": number
        }
    ],
    "confidence": number between 0 and 1
}

Document text:
%s
`

const invoicePromptTemplate = `Analyze this Invoice document and extract structured data.
Return a JSON object with these fields (use null for missing values):

{
    "invoice_number": "string or null",
    "vendor_name": "string or null",
    "date": "YYYY-MM-DD or null",
    "due_date": "YYYY-MM-DD or null",
    "total_amount": number or null,
    "currency": "3-letter code or null",
    "subtotal": number or null,
    "tax_amount": number or null,
    "line_items": [
        {
            "description": "string",
            "quantity": number or null,
            "unit_price": number or null,
            "amount": number
        }
    ],
    "confidence": number between 0 and 1
}

Document text:
%s
`

const milestonePromptTemplate = `Extract payment milestones from this document.
Return a JSON array of milestones:

[
    {
        "title": "string",
        "description": "string or null",
        "expected_date": "YYYY-MM-DD or null",
        "payment_percentage": number (should sum to 100)
    }
]

Document text:
%s
`

// ExtractPurchaseOrder structures purchase order fields out of raw
// document text. The raw text is kept (truncated) for the review UI.
func (s *LLMService) ExtractPurchaseOrder(ctx context.Context, rawText string) (*model.ExtractedPurchaseOrder, error) {
	content, err := s.complete(ctx, fmt.Sprintf(poPromptTemplate, truncate(rawText, maxPromptChars)), s.config.MaxTokens)
	if err != nil {
		return nil, err
	}

	var result model.ExtractedPurchaseOrder
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	if result.Milestones == nil {
		result.Milestones = []model.ExtractedMilestone{}
	}
	if result.BOQItems == nil {
		result.BOQItems = []model.ExtractedBOQItem{}
	}
	result.RawText = truncate(rawText, 5000)
	return &result, nil
}

// ExtractInvoice structures invoice fields out of raw document text.
func (s *LLMService) ExtractInvoice(ctx context.Context, rawText string) (*model.ExtractedInvoice, error) {
	content, err := s.complete(ctx, fmt.Sprintf(invoicePromptTemplate, truncate(rawText, maxPromptChars)), s.config.MaxTokens)
	if err != nil {
		return nil, err
	}

	var result model.ExtractedInvoice
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	if result.LineItems == nil {
		result.LineItems = []model.ExtractedInvoiceLine{}
	}
	result.RawText = truncate(rawText, 5000)
	return &result, nil
}

// ExtractMilestones structures a milestone schedule out of raw document
// text.
func (s *LLMService) ExtractMilestones(ctx context.Context, rawText string) ([]model.ExtractedMilestone, error) {
	content, err := s.complete(ctx, fmt.Sprintf(milestonePromptTemplate, truncate(rawText, maxPromptChars)), 2000)
	if err != nil {
		return nil, err
	}

	var result []model.ExtractedMilestone
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	return result, nil
}

func (s *LLMService) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: s.config.Temperature,
		MaxTokens:   maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	if result.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// stripCodeFences removes a surrounding markdown code block, which some
// models emit despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
