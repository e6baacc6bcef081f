package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/InfradynAB/infradyn1-sub003/pkg/compliance"
)

// PurchaseOrder status constants. Drafts are freely editable; publishing
// requires a passing compliance evaluation and is done through the store
// so the transition can't skip the gate.
const (
	POStatusDraft     = "DRAFT"
	POStatusPublished = "PUBLISHED"
	POStatusClosed    = "CLOSED"
)

// Milestone is a scheduled partial-payment trigger on a purchase order.
type Milestone struct {
	ID                string          `db:"id" json:"id"`
	PurchaseOrderID   string          `db:"purchase_order_id" json:"purchase_order_id"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description,omitempty"`
	ExpectedDate      *time.Time      `db:"expected_date" json:"expected_date,omitempty"`
	PaymentPercentage decimal.Decimal `db:"payment_percentage" json:"payment_percentage"`
	Status            string          `db:"status" json:"status"`
}

// Milestone status constants.
const (
	MilestoneStatusPending   = "PENDING"
	MilestoneStatusCompleted = "COMPLETED"
)

// BOQItem is one bill-of-quantities line. BOQ lines live as a JSONB
// document on the purchase order row: they are edited as a unit in the
// wizard and never joined against in queries.
type BOQItem struct {
	ItemNumber  string               `json:"item_number"`
	Description string               `json:"description"`
	Unit        string               `json:"unit"`
	Quantity    decimal.Decimal      `json:"quantity"`
	UnitPrice   decimal.Decimal      `json:"unit_price"`
	TotalPrice  decimal.Decimal      `json:"total_price"`
	Critical    bool                 `json:"is_critical"`
	ROSDate     string               `json:"ros_date,omitempty"` // YYYY-MM-DD
	ROSStatus   compliance.ROSStatus `json:"ros_status"`
}

// BOQItemList stores BOQ lines as a JSONB column.
type BOQItemList []BOQItem

// Value implements driver.Valuer for JSONB storage.
func (l BOQItemList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return json.Marshal([]BOQItem(l))
}

// Scan implements sql.Scanner for JSONB retrieval.
func (l *BOQItemList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("cannot scan non-string/[]byte value into BOQItemList")
	}

	var items []BOQItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = BOQItemList(items)
	return nil
}

// PurchaseOrder is the procurement commitment record. Text fields use ""
// for "not provided"; the nullable monetary total uses NullDecimal so a
// draft without a value is distinguishable from a zero value.
type PurchaseOrder struct {
	ID                  string              `db:"id" json:"id"`
	OrganizationID      string              `db:"organization_id" json:"organization_id"`
	ProjectID           string              `db:"project_id" json:"project_id"`
	SupplierID          string              `db:"supplier_id" json:"supplier_id,omitempty"`
	PONumber            string              `db:"po_number" json:"po_number,omitempty"`
	Title               string              `db:"title" json:"title"`
	Currency            string              `db:"currency" json:"currency,omitempty"`
	TotalValue          decimal.NullDecimal `db:"total_value" json:"total_value"`
	RetentionPercentage decimal.Decimal     `db:"retention_percentage" json:"retention_percentage"`
	PaymentTerms        string              `db:"payment_terms" json:"payment_terms,omitempty"`
	Incoterms           string              `db:"incoterms" json:"incoterms,omitempty"`
	Status              string              `db:"status" json:"status"`
	BOQItems            BOQItemList         `db:"boq_items" json:"boq_items"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at" json:"updated_at"`

	// Milestones are loaded from their own table, not a column.
	Milestones []Milestone `db:"-" json:"milestones"`
}

// ComplianceSnapshot flattens the purchase order into the immutable view
// the rule engine evaluates. projectCurrency comes from the owning
// project; pass "" when the project has none.
func (po *PurchaseOrder) ComplianceSnapshot(projectCurrency string) compliance.Snapshot {
	snap := compliance.Snapshot{
		PONumber:            optional(po.PONumber),
		Currency:            optional(po.Currency),
		Incoterms:           optional(po.Incoterms),
		PaymentTerms:        optional(po.PaymentTerms),
		RetentionPercentage: &po.RetentionPercentage,
		ProjectCurrency:     optional(projectCurrency),
	}
	if po.TotalValue.Valid {
		v := po.TotalValue.Decimal
		snap.TotalValue = &v
	}
	for _, m := range po.Milestones {
		snap.Milestones = append(snap.Milestones, compliance.MilestoneLine{
			PaymentPercentage: m.PaymentPercentage,
		})
	}
	for _, item := range po.BOQItems {
		snap.BOQItems = append(snap.BOQItems, compliance.BOQLine{
			TotalPrice: item.TotalPrice,
			Critical:   item.Critical,
			ROSStatus:  item.ROSStatus,
		})
	}
	return snap
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Project owns purchase orders and fixes their reporting currency.
type Project struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	Currency       string    `db:"currency" json:"currency"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
