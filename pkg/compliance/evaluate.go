// Package compliance decides whether a purchase order draft is eligible
// for publishing. Evaluate runs a fixed, ordered table of business rules
// against a snapshot of the draft and returns one verdict per applicable
// rule, with enough remediation metadata for a caller to route the user
// to the offending step or apply a one-click fix. The engine is a pure
// function: no I/O, no retained state, safe for concurrent use.
package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	maxRetention = decimal.NewFromInt(20)
	// boqTolerance is the allowed relative gap between the BOQ sum and
	// the PO total: 1% of the PO total.
	boqTolerance = decimal.New(1, -2)
)

// ruleSpec is one row of the rule table: static metadata, an optional
// applicability predicate, and the check itself. Rules whose predicate
// returns false are absent from the output entirely, which is how
// "rule inapplicable" stays distinguishable from "rule satisfied".
type ruleSpec struct {
	id          string
	name        string
	description string
	severity    Severity
	applies     func(*Snapshot) bool
	check       func(*Snapshot, *Rule)
}

var ruleTable = []ruleSpec{
	{
		id:          "po-number",
		name:        "PO Number",
		description: "Every purchase order needs a reference number for supplier correspondence and invoicing.",
		severity:    SeverityCritical,
		check: func(s *Snapshot, r *Rule) {
			if hasText(s.PONumber) {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = "PO number is missing"
			r.TargetStep = StepDetails
			r.FixType = FixNavigate
			r.FixLabel = "Enter a PO number in the details step"
			r.Field = "po_number"
		},
	},
	{
		id:          "total-value",
		name:        "Total Value",
		description: "The PO must carry a positive total value.",
		severity:    SeverityCritical,
		check: func(s *Snapshot, r *Rule) {
			if s.TotalValue != nil && s.TotalValue.IsPositive() {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.TargetStep = StepDetails
			r.FixType = FixNavigate
			r.FixLabel = "Set the total value in the details step"
			r.Field = "total_value"
			if s.TotalValue == nil {
				r.Message = "Total value is missing"
				return
			}
			r.Message = "Total value must be greater than zero"
			r.CurrentValue = s.TotalValue.String()
		},
	},
	{
		id:          "incoterms",
		name:        "Incoterms",
		description: "Incoterms define who carries shipping risk; POs without them cause disputes at delivery.",
		severity:    SeverityWarning,
		check: func(s *Snapshot, r *Rule) {
			if hasText(s.Incoterms) {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = "No incoterms specified"
			r.TargetStep = StepDetails
			r.FixType = FixEditValue
			r.FixLabel = "Choose incoterms (e.g. FOB, CIF, DDP)"
			r.Field = "incoterms"
		},
	},
	{
		id:          "retention",
		name:        "Retention Percentage",
		description: "Retention above 20% is unusual and worth a second look before committing.",
		severity:    SeverityWarning,
		check: func(s *Snapshot, r *Rule) {
			retention := decimal.Zero
			if s.RetentionPercentage != nil {
				retention = *s.RetentionPercentage
			}
			if !retention.IsNegative() && retention.LessThanOrEqual(maxRetention) {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = fmt.Sprintf("Retention of %s%% is outside the usual 0–20%% range", retention)
			r.CurrentValue = retention.String() + "%"
			r.ExpectedValue = "0–20%"
			r.TargetStep = StepDetails
			r.FixType = FixEditValue
			r.Field = "retention_percentage"
		},
	},
	{
		id:          "currency-match",
		name:        "Currency Match",
		description: "A PO priced in a different currency than its project distorts budget roll-ups.",
		severity:    SeverityWarning,
		applies: func(s *Snapshot) bool {
			return hasText(s.Currency) && hasText(s.ProjectCurrency)
		},
		check: func(s *Snapshot, r *Rule) {
			if *s.Currency == *s.ProjectCurrency {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = fmt.Sprintf("PO currency %s differs from project currency %s", *s.Currency, *s.ProjectCurrency)
			r.CurrentValue = *s.Currency
			r.ExpectedValue = *s.ProjectCurrency
			r.TargetStep = StepDetails
			r.FixType = FixEditValue
			r.Field = "currency"
		},
	},
	{
		id:          "milestone-sum",
		name:        "Milestone Payment Sum",
		description: "Payment milestones must cover exactly 100% of the PO value, or the payment schedule has gaps.",
		severity:    SeverityCritical,
		applies: func(s *Snapshot) bool {
			return len(s.Milestones) > 0
		},
		check: func(s *Snapshot, r *Rule) {
			total := s.milestoneTotal()
			if total.Equal(hundred) {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = fmt.Sprintf("Milestone payments sum to %s%%, must equal exactly 100%%", total)
			r.CurrentValue = total.String() + "%"
			r.ExpectedValue = "100%"
			r.TargetStep = StepMilestones
			r.FixType = FixNavigate
			r.FixLabel = "Adjust milestone percentages to total 100%"
		},
	},
	{
		id:          "boq-match",
		name:        "BOQ Total Match",
		description: "The BOQ line items should add up to the PO total (within 1%).",
		severity:    SeverityCritical,
		applies: func(s *Snapshot) bool {
			return len(s.BOQItems) > 0 && s.TotalValue != nil
		},
		check: func(s *Snapshot, r *Rule) {
			boqTotal := s.boqTotal()
			tolerance := s.TotalValue.Mul(boqTolerance)
			if boqTotal.Sub(*s.TotalValue).Abs().LessThanOrEqual(tolerance) {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = fmt.Sprintf("BOQ items sum to %s but the PO total is %s", boqTotal, s.TotalValue)
			r.CurrentValue = boqTotal.String()
			r.ExpectedValue = s.TotalValue.String()
			r.TargetStep = StepBOQ
			r.FixType = FixAuto
			r.FixLabel = "Set the PO total to the BOQ sum"
			r.Field = "total_value"
			fix := boqTotal
			r.FixValue = &fix
		},
	},
	{
		id:          "critical-ros",
		name:        "Critical Item ROS Dates",
		description: "Critical BOQ items need required-on-site dates so delivery tracking can flag slippage.",
		severity:    SeverityCritical,
		applies: func(s *Snapshot) bool {
			total, _ := s.criticalItems()
			return total > 0
		},
		check: func(s *Snapshot, r *Rule) {
			_, missing := s.criticalItems()
			if missing == 0 {
				r.Status = StatusPass
				return
			}
			r.Status = StatusFail
			r.Message = fmt.Sprintf("%d critical items have no required-on-site date", missing)
			r.CurrentValue = fmt.Sprintf("%d items without dates", missing)
			r.TargetStep = StepBOQ
			r.FixType = FixNavigate
			r.FixLabel = "Set ROS dates on the flagged items"
		},
	},
	{
		id:          "payment-terms",
		name:        "Payment Terms",
		description: "Documenting payment terms up front avoids invoice disputes later.",
		severity:    SeverityInfo,
		check: func(s *Snapshot, r *Rule) {
			if hasText(s.PaymentTerms) {
				r.Status = StatusPass
				return
			}
			// Info-severity rules never block; a missing value is
			// surfaced as a warning rather than a failure.
			r.Status = StatusWarning
			r.Message = "No payment terms recorded"
			r.FixType = FixInfoOnly
		},
	},
}

// Evaluate runs every applicable rule against the snapshot and returns
// the verdicts in fixed table order. The same snapshot always produces
// the same list; rules are never reordered by severity or status.
func Evaluate(s Snapshot) []Rule {
	rules := make([]Rule, 0, len(ruleTable))
	for _, spec := range ruleTable {
		if spec.applies != nil && !spec.applies(&s) {
			continue
		}
		r := Rule{
			ID:          spec.id,
			Name:        spec.name,
			Description: spec.description,
			Severity:    spec.severity,
		}
		spec.check(&s, &r)
		rules = append(rules, r)
	}
	return rules
}
