package compliance

import "github.com/shopspring/decimal"

// ROSStatus tracks whether a BOQ line has a required-on-site date.
type ROSStatus string

const (
	ROSNotSet ROSStatus = "NOT_SET"
	ROSSet    ROSStatus = "SET"
	ROSTBD    ROSStatus = "TBD"
)

// MilestoneLine is the slice of a milestone the engine cares about.
type MilestoneLine struct {
	PaymentPercentage decimal.Decimal `json:"payment_percentage"`
}

// BOQLine is the slice of a BOQ item the engine cares about.
type BOQLine struct {
	TotalPrice decimal.Decimal `json:"total_price"`
	Critical   bool            `json:"is_critical"`
	ROSStatus  ROSStatus       `json:"ros_status"`
}

// Snapshot is an immutable view of a purchase order draft at evaluation
// time. The caller owns it; Evaluate neither mutates it nor retains a
// reference. All monetary and percentage fields are decimals so that the
// exact-equality milestone rule cannot be flipped by float rounding.
//
// Nil pointer fields mean "not provided". Nil slices are empty
// sequences; Go draws no undefined/empty distinction worth guarding.
type Snapshot struct {
	PONumber            *string          `json:"po_number"`
	TotalValue          *decimal.Decimal `json:"total_value"`
	Currency            *string          `json:"currency"`
	Incoterms           *string          `json:"incoterms"`
	RetentionPercentage *decimal.Decimal `json:"retention_percentage"`
	PaymentTerms        *string          `json:"payment_terms"`
	Milestones          []MilestoneLine  `json:"milestones"`
	BOQItems            []BOQLine        `json:"boq_items"`
	ProjectCurrency     *string          `json:"project_currency"`
}

func (s *Snapshot) milestoneTotal() decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.Milestones {
		total = total.Add(m.PaymentPercentage)
	}
	return total
}

func (s *Snapshot) boqTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.BOQItems {
		total = total.Add(item.TotalPrice)
	}
	return total
}

func (s *Snapshot) criticalItems() (total, missingROS int) {
	for _, item := range s.BOQItems {
		if !item.Critical {
			continue
		}
		total++
		if item.ROSStatus == ROSNotSet {
			missingROS++
		}
	}
	return total, missingROS
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}
