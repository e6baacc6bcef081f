package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document is an uploaded procurement document going through the
// parse-and-extract pipeline. Records are scratch state feeding the PO
// wizard; they live in the in-memory job store, not the database.
type Document struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	Organization string       `json:"organization"`
	DocumentType DocumentType `json:"document_type"`
	FileURL      string       `json:"file_url"`
	Status       string       `json:"status"` // pending, processing, completed, failed
	ParseTaskID  string       `json:"parse_task_id,omitempty"`
	Extracted    any          `json:"extracted,omitempty"`
	ErrorMsg     string       `json:"error_msg,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Document status constants.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DocumentType selects which extraction schema the LLM is asked for.
type DocumentType string

const (
	DocTypePurchaseOrder DocumentType = "purchase_order"
	DocTypeInvoice       DocumentType = "invoice"
	DocTypeMilestone     DocumentType = "milestone"
)

// ExtractedMilestone is a milestone row pulled out of a document.
type ExtractedMilestone struct {
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	ExpectedDate      string          `json:"expected_date,omitempty"` // YYYY-MM-DD
	PaymentPercentage decimal.Decimal `json:"payment_percentage"`
}

// ExtractedBOQItem is a BOQ line pulled out of a document.
type ExtractedBOQItem struct {
	ItemNumber  string          `json:"item_number"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ExtractedPurchaseOrder is the structured result of PO extraction. All
// scalar fields may be absent when the document doesn't carry them; the
// wizard pre-fills its draft from whatever is present.
type ExtractedPurchaseOrder struct {
	PONumber            string               `json:"po_number,omitempty"`
	VendorName          string               `json:"vendor_name,omitempty"`
	Date                string               `json:"date,omitempty"`
	TotalValue          *decimal.Decimal     `json:"total_value,omitempty"`
	Currency            string               `json:"currency,omitempty"`
	Scope               string               `json:"scope,omitempty"`
	PaymentTerms        string               `json:"payment_terms,omitempty"`
	Incoterms           string               `json:"incoterms,omitempty"`
	RetentionPercentage *decimal.Decimal     `json:"retention_percentage,omitempty"`
	Milestones          []ExtractedMilestone `json:"milestones"`
	BOQItems            []ExtractedBOQItem   `json:"boq_items"`
	Confidence          float64              `json:"confidence"`
	RawText             string               `json:"raw_text,omitempty"`
}

// ExtractedInvoiceLine is one invoice line item.
type ExtractedInvoiceLine struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
}

// ExtractedInvoice is the structured result of invoice extraction.
type ExtractedInvoice struct {
	InvoiceNumber string                 `json:"invoice_number,omitempty"`
	VendorName    string                 `json:"vendor_name,omitempty"`
	Date          string                 `json:"date,omitempty"`
	DueDate       string                 `json:"due_date,omitempty"`
	TotalAmount   *decimal.Decimal       `json:"total_amount,omitempty"`
	Currency      string                 `json:"currency,omitempty"`
	Subtotal      *decimal.Decimal       `json:"subtotal,omitempty"`
	TaxAmount     *decimal.Decimal       `json:"tax_amount,omitempty"`
	LineItems     []ExtractedInvoiceLine `json:"line_items"`
	Confidence    float64                `json:"confidence"`
	RawText       string                 `json:"raw_text,omitempty"`
}
