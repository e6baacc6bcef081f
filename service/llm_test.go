package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfradynAB/infradyn1-sub003/config"
)

func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestLLM(serverURL string) *LLMService {
	return NewLLMService(&config.LLMConfig{
		APIURL:      serverURL,
		APIKey:      "test-key",
		Model:       "test-model",
		Temperature: 0.1,
		MaxTokens:   4000,
	})
}

func TestLLMExtractPurchaseOrder(t *testing.T) {
	server := newChatServer(t, `{
		"po_number": "PO-2024-001",
		"vendor_name": "Steel Supplies Ltd",
		"currency": "USD",
		"total_value": 125000.50,
		"retention_percentage": 10,
		"milestones": [
			{"title": "Advance", "payment_percentage": 30},
			{"title": "Delivery", "payment_percentage": 70}
		],
		"boq_items": [
			{"item_number": "1.1", "description": "Rebar", "unit": "t", "quantity": 50, "unit_price": 2500, "total_price": 125000}
		],
		"confidence": 0.92
	}`)
	defer server.Close()

	svc := newTestLLM(server.URL)
	result, err := svc.ExtractPurchaseOrder(context.Background(), "PO document text")

	require.NoError(t, err)
	assert.Equal(t, "PO-2024-001", result.PONumber)
	assert.Equal(t, "Steel Supplies Ltd", result.VendorName)
	assert.Equal(t, "USD", result.Currency)
	require.NotNil(t, result.TotalValue)
	assert.Equal(t, "125000.5", result.TotalValue.String())
	assert.Len(t, result.Milestones, 2)
	assert.Len(t, result.BOQItems, 1)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, "PO document text", result.RawText)
}

func TestLLMExtractPurchaseOrderStripsCodeFences(t *testing.T) {
	server := newChatServer(t, "```json\n{\"po_number\": \"PO-7\", \"confidence\": 0.5}\n```")
	defer server.Close()

	svc := newTestLLM(server.URL)
	result, err := svc.ExtractPurchaseOrder(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, "PO-7", result.PONumber)
	// Nil slices normalize to empty for the API response.
	assert.NotNil(t, result.Milestones)
	assert.NotNil(t, result.BOQItems)
}

func TestLLMExtractInvoice(t *testing.T) {
	server := newChatServer(t, `{
		"invoice_number": "INV-42",
		"total_amount": 5000,
		"currency": "EUR",
		"line_items": [{"description": "Freight", "amount": 5000}],
		"confidence": 0.8
	}`)
	defer server.Close()

	svc := newTestLLM(server.URL)
	result, err := svc.ExtractInvoice(context.Background(), "invoice text")

	require.NoError(t, err)
	assert.Equal(t, "INV-42", result.InvoiceNumber)
	require.NotNil(t, result.TotalAmount)
	assert.Equal(t, "5000", result.TotalAmount.String())
	assert.Len(t, result.LineItems, 1)
}

func TestLLMExtractMilestones(t *testing.T) {
	server := newChatServer(t, `[
		{"title": "Mobilization", "expected_date": "2025-03-01", "payment_percentage": 20},
		{"title": "Completion", "expected_date": "2025-09-01", "payment_percentage": 80}
	]`)
	defer server.Close()

	svc := newTestLLM(server.URL)
	milestones, err := svc.ExtractMilestones(context.Background(), "schedule text")

	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, "Mobilization", milestones[0].Title)
	assert.Equal(t, "20", milestones[0].PaymentPercentage.String())
}

func TestLLMExtractInvalidJSON(t *testing.T) {
	server := newChatServer(t, "this is not json")
	defer server.Close()

	svc := newTestLLM(server.URL)
	_, err := svc.ExtractPurchaseOrder(context.Background(), "text")
	assert.Error(t, err)
}

func TestLLMAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded"},
		})
	}))
	defer server.Close()

	svc := newTestLLM(server.URL)
	_, err := svc.ExtractPurchaseOrder(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestLLMNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	svc := newTestLLM(server.URL)
	_, err := svc.ExtractInvoice(context.Background(), "text")
	assert.Error(t, err)
}

func TestLLMNetworkError(t *testing.T) {
	svc := newTestLLM("http://invalid-host-that-does-not-exist:9999")
	_, err := svc.ExtractMilestones(context.Background(), "text")
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n[1, 2]\n```", `[1, 2]`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		got := stripCodeFences(tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
