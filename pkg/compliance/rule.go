package compliance

import "github.com/shopspring/decimal"

// Severity grades how serious a rule violation is. Only critical
// failures block publishing.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Status is the outcome of evaluating one rule against a snapshot.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusWarning Status = "warning"
)

// FixType tells the caller which remediation affordance to offer for a
// non-passing rule. The engine never applies a fix itself.
type FixType string

const (
	FixNavigate  FixType = "navigate"
	FixEditValue FixType = "edit_value"
	FixAuto      FixType = "auto_fix"
	FixInfoOnly  FixType = "info_only"
)

// Step names the wizard step where a human would resolve the issue.
type Step string

const (
	StepUpload     Step = "upload"
	StepDetails    Step = "details"
	StepMilestones Step = "milestones"
	StepBOQ        Step = "boq"
)

// Rule is one evaluated compliance check. A fresh list is produced on
// every call to Evaluate; rules carry no identity across evaluations.
type Rule struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Status      Status   `json:"status"`

	// Message explains a non-pass outcome. Empty when the rule passed.
	Message string `json:"message,omitempty"`

	TargetStep    Step    `json:"target_step,omitempty"`
	CurrentValue  string  `json:"current_value,omitempty"`
	ExpectedValue string  `json:"expected_value,omitempty"`
	FixType       FixType `json:"fix_type,omitempty"`
	FixLabel      string  `json:"fix_label,omitempty"`
	Field         string  `json:"field,omitempty"`

	// FixValue carries the canonical replacement amount for auto_fix
	// rules, so callers don't re-parse the display value.
	FixValue *decimal.Decimal `json:"fix_value,omitempty"`
}

// Blocking reports whether this rule, in its current state, prevents
// the purchase order from being published.
func (r Rule) Blocking() bool {
	return r.Severity == SeverityCritical && r.Status == StatusFail
}

// CanPublish is the single externally consumed invariant: a purchase
// order may be published iff no critical rule failed.
func CanPublish(rules []Rule) bool {
	for _, r := range rules {
		if r.Blocking() {
			return false
		}
	}
	return true
}

// Blockers returns the rules that currently prevent publishing, in
// evaluation order.
func Blockers(rules []Rule) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Blocking() {
			out = append(out, r)
		}
	}
	return out
}
