package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor the organization buys from.
type Supplier struct {
	ID             string          `db:"id" json:"id"`
	OrganizationID string          `db:"organization_id" json:"organization_id"`
	Name           string          `db:"name" json:"name"`
	Status         string          `db:"status" json:"status"`
	ReadinessScore decimal.Decimal `db:"readiness_score" json:"readiness_score"`
	ContactEmail   string          `db:"contact_email" json:"contact_email,omitempty"`
	Country        string          `db:"country" json:"country,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	SupplierStatusActive   = "ACTIVE"
	SupplierStatusInactive = "INACTIVE"
)

// NCR is a non-conformance report against delivered material or work.
type NCR struct {
	ID              string    `db:"id" json:"id"`
	PurchaseOrderID string    `db:"purchase_order_id" json:"purchase_order_id"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description,omitempty"`
	Severity        string    `db:"severity" json:"severity"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

const (
	NCRStatusOpen   = "OPEN"
	NCRStatusClosed = "CLOSED"

	NCRSeverityLow      = "LOW"
	NCRSeverityMedium   = "MEDIUM"
	NCRSeverityHigh     = "HIGH"
	NCRSeverityCritical = "CRITICAL"
)

// Shipment tracks a delivery against a purchase order.
type Shipment struct {
	ID                 string     `db:"id" json:"id"`
	PurchaseOrderID    string     `db:"purchase_order_id" json:"purchase_order_id"`
	Reference          string     `db:"reference" json:"reference"`
	Status             string     `db:"status" json:"status"`
	LogisticsETA       *time.Time `db:"logistics_eta" json:"logistics_eta,omitempty"`
	ActualDeliveryDate *time.Time `db:"actual_delivery_date" json:"actual_delivery_date,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

const (
	ShipmentStatusPending   = "PENDING"
	ShipmentStatusInTransit = "IN_TRANSIT"
	ShipmentStatusDelivered = "DELIVERED"
)

// Invoice is a payment request raised against a purchase order.
type Invoice struct {
	ID              string          `db:"id" json:"id"`
	PurchaseOrderID string          `db:"purchase_order_id" json:"purchase_order_id"`
	InvoiceNumber   string          `db:"invoice_number" json:"invoice_number"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	InvoiceDate     *time.Time      `db:"invoice_date" json:"invoice_date,omitempty"`
	DueDate         *time.Time      `db:"due_date" json:"due_date,omitempty"`
	PaidAt          *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

const (
	InvoiceStatusPendingApproval = "PENDING_APPROVAL"
	InvoiceStatusApproved        = "APPROVED"
	InvoiceStatusPaid            = "PAID"
)
