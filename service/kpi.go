package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// KPIFilter scopes dashboard aggregations. OrganizationID is always
// required; the rest narrow the purchase order population.
type KPIFilter struct {
	OrganizationID string
	ProjectID      string
	DateFrom       *time.Time
	DateTo         *time.Time
}

// conditions renders the filter as a WHERE fragment over the aliased
// purchase_order table, with positional args starting at $1.
func (f KPIFilter) conditions() (string, []interface{}) {
	clauses := []string{"po.organization_id = $1"}
	args := []interface{}{f.OrganizationID}

	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		clauses = append(clauses, fmt.Sprintf("po.project_id = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, *f.DateFrom)
		clauses = append(clauses, fmt.Sprintf("po.created_at >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, *f.DateTo)
		clauses = append(clauses, fmt.Sprintf("po.created_at <= $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// FinancialKPIs summarize committed versus paid value.
type FinancialKPIs struct {
	TotalCommitted     decimal.Decimal `json:"totalCommitted"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	TotalUnpaid        decimal.Decimal `json:"totalUnpaid"`
	RetentionHeld      decimal.Decimal `json:"retentionHeld"`
	ForecastToComplete decimal.Decimal `json:"forecastToComplete"`
}

// ProgressKPIs summarize milestone completion across purchase orders.
type ProgressKPIs struct {
	PhysicalProgress    float64 `json:"physicalProgress"`
	FinancialProgress   float64 `json:"financialProgress"`
	MilestonesCompleted int     `json:"milestonesCompleted"`
	MilestonesTotal     int     `json:"milestonesTotal"`
	OnTrackCount        int     `json:"onTrackCount"`
	AtRiskCount         int     `json:"atRiskCount"`
	DelayedCount        int     `json:"delayedCount"`
	PublishedPOs        int     `json:"publishedPOs"`
	TotalPOs            int     `json:"totalPOs"`
}

// QualityKPIs summarize non-conformance reports.
type QualityKPIs struct {
	TotalNCRs    int     `json:"totalNCRs"`
	OpenNCRs     int     `json:"openNCRs"`
	ClosedNCRs   int     `json:"closedNCRs"`
	CriticalNCRs int     `json:"criticalNCRs"`
	NCRRate      float64 `json:"ncrRate"`
}

// SupplierExposure is one supplier's committed value.
type SupplierExposure struct {
	SupplierID   string          `json:"supplierId" db:"supplier_id"`
	SupplierName string          `json:"supplierName" db:"supplier_name"`
	Exposure     decimal.Decimal `json:"exposure" db:"total_exposure"`
}

// SupplierKPIs summarize supplier exposure and readiness.
type SupplierKPIs struct {
	TotalSuppliers    int                `json:"totalSuppliers"`
	ActiveSuppliers   int                `json:"activeSuppliers"`
	AvgReadinessScore float64            `json:"avgReadinessScore"`
	TopExposure       []SupplierExposure `json:"topExposure"`
}

// PaymentKPIs summarize invoice aging.
type PaymentKPIs struct {
	AvgPaymentCycleDays float64         `json:"avgPaymentCycleDays"`
	PendingInvoiceCount int             `json:"pendingInvoiceCount"`
	OverdueInvoiceCount int             `json:"overdueInvoiceCount"`
	OverdueAmount       decimal.Decimal `json:"overdueAmount"`
}

// LogisticsKPIs summarize shipment delivery performance.
type LogisticsKPIs struct {
	TotalShipments   int     `json:"totalShipments"`
	DeliveredOnTime  int     `json:"deliveredOnTime"`
	DelayedShipments int     `json:"delayedShipments"`
	InTransit        int     `json:"inTransit"`
	OnTimeRate       float64 `json:"onTimeRate"`
}

// SCurvePoint is one month of planned versus actual cumulative spend.
type SCurvePoint struct {
	Month             string          `json:"month"`
	PlannedCumulative decimal.Decimal `json:"plannedCumulative"`
	ActualCumulative  decimal.Decimal `json:"actualCumulative"`
}

// DashboardKPIs bundles every KPI group in one response.
type DashboardKPIs struct {
	Financial *FinancialKPIs `json:"financial"`
	Progress  *ProgressKPIs  `json:"progress"`
	Quality   *QualityKPIs   `json:"quality"`
	Suppliers *SupplierKPIs  `json:"suppliers"`
	Payments  *PaymentKPIs   `json:"payments"`
	Logistics *LogisticsKPIs `json:"logistics"`
	Timestamp time.Time      `json:"timestamp"`
}

// KPIService computes dashboard aggregations directly in Postgres.
type KPIService struct {
	db *sqlx.DB
}

// NewKPIService creates a KPI service on an existing connection pool.
func NewKPIService(db *sqlx.DB) *KPIService {
	return &KPIService{db: db}
}

// Dashboard runs every KPI group for one response payload.
func (k *KPIService) Dashboard(ctx context.Context, f KPIFilter) (*DashboardKPIs, error) {
	financial, err := k.Financial(ctx, f)
	if err != nil {
		return nil, err
	}
	progress, err := k.Progress(ctx, f)
	if err != nil {
		return nil, err
	}
	quality, err := k.Quality(ctx, f)
	if err != nil {
		return nil, err
	}
	suppliers, err := k.Suppliers(ctx, f)
	if err != nil {
		return nil, err
	}
	payments, err := k.Payments(ctx, f)
	if err != nil {
		return nil, err
	}
	logistics, err := k.Logistics(ctx, f)
	if err != nil {
		return nil, err
	}

	return &DashboardKPIs{
		Financial: financial,
		Progress:  progress,
		Quality:   quality,
		Suppliers: suppliers,
		Payments:  payments,
		Logistics: logistics,
		Timestamp: time.Now(),
	}, nil
}

// Financial computes committed, paid and retention totals.
func (k *KPIService) Financial(ctx context.Context, f KPIFilter) (*FinancialKPIs, error) {
	where, args := f.conditions()

	var po struct {
		TotalValue   decimal.Decimal `db:"total_value"`
		AvgRetention decimal.Decimal `db:"avg_retention"`
	}
	err := k.db.GetContext(ctx, &po, `
		SELECT
			COALESCE(SUM(po.total_value), 0) AS total_value,
			COALESCE(AVG(po.retention_percentage), 0) AS avg_retention
		FROM purchase_order po
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate purchase order values: %w", err)
	}

	var paid decimal.Decimal
	err = k.db.GetContext(ctx, &paid, `
		SELECT COALESCE(SUM(inv.amount), 0)
		FROM invoice inv
		INNER JOIN purchase_order po ON inv.purchase_order_id = po.id
		WHERE inv.status = 'PAID' AND `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate paid invoices: %w", err)
	}

	return &FinancialKPIs{
		TotalCommitted:     po.TotalValue,
		TotalPaid:          paid,
		TotalUnpaid:        po.TotalValue.Sub(paid),
		RetentionHeld:      paid.Mul(po.AvgRetention).Div(decimal.NewFromInt(100)),
		ForecastToComplete: po.TotalValue,
	}, nil
}

// Progress computes milestone completion and schedule health. A
// milestone is at risk when it is due within seven days and not yet
// completed, and delayed once its expected date has passed.
func (k *KPIService) Progress(ctx context.Context, f KPIFilter) (*ProgressKPIs, error) {
	where, args := f.conditions()

	var po struct {
		Total     int `db:"total_pos"`
		Published int `db:"published_pos"`
	}
	err := k.db.GetContext(ctx, &po, `
		SELECT
			COUNT(*) AS total_pos,
			COUNT(*) FILTER (WHERE po.status = 'PUBLISHED') AS published_pos
		FROM purchase_order po
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchase orders: %w", err)
	}

	var ms struct {
		Total        int             `db:"total_milestones"`
		Completed    int             `db:"completed"`
		Delayed      int             `db:"delayed"`
		AtRisk       int             `db:"at_risk"`
		CompletedPct decimal.Decimal `db:"completed_pct"`
	}
	err = k.db.GetContext(ctx, &ms, `
		SELECT
			COUNT(*) AS total_milestones,
			COUNT(*) FILTER (WHERE m.status = 'COMPLETED') AS completed,
			COUNT(*) FILTER (WHERE m.status != 'COMPLETED' AND m.expected_date < NOW()) AS delayed,
			COUNT(*) FILTER (WHERE m.status != 'COMPLETED' AND m.expected_date >= NOW() AND m.expected_date <= NOW() + INTERVAL '7 days') AS at_risk,
			COALESCE(SUM(CASE WHEN m.status = 'COMPLETED' THEN m.payment_percentage ELSE 0 END), 0) AS completed_pct
		FROM milestone m
		INNER JOIN purchase_order po ON m.purchase_order_id = po.id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate milestones: %w", err)
	}

	onTrack := ms.Total - ms.Completed - ms.Delayed - ms.AtRisk
	if onTrack < 0 {
		onTrack = 0
	}

	physical := 0.0
	if ms.Total > 0 {
		physical = ms.CompletedPct.InexactFloat64()
	}

	return &ProgressKPIs{
		PhysicalProgress:    physical,
		MilestonesCompleted: ms.Completed,
		MilestonesTotal:     ms.Total,
		OnTrackCount:        onTrack,
		AtRiskCount:         ms.AtRisk,
		DelayedCount:        ms.Delayed,
		PublishedPOs:        po.Published,
		TotalPOs:            po.Total,
	}, nil
}

// Quality computes NCR counts and the NCR-per-PO rate.
func (k *KPIService) Quality(ctx context.Context, f KPIFilter) (*QualityKPIs, error) {
	where, args := f.conditions()

	var row struct {
		Total    int `db:"total_ncrs"`
		Open     int `db:"open_ncrs"`
		Closed   int `db:"closed_ncrs"`
		Critical int `db:"critical_ncrs"`
	}
	err := k.db.GetContext(ctx, &row, `
		SELECT
			COUNT(*) AS total_ncrs,
			COUNT(*) FILTER (WHERE n.status = 'OPEN') AS open_ncrs,
			COUNT(*) FILTER (WHERE n.status = 'CLOSED') AS closed_ncrs,
			COUNT(*) FILTER (WHERE n.severity = 'CRITICAL') AS critical_ncrs
		FROM ncr n
		INNER JOIN purchase_order po ON n.purchase_order_id = po.id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate NCRs: %w", err)
	}

	var poCount int
	err = k.db.GetContext(ctx, &poCount,
		`SELECT COUNT(*) FROM purchase_order po WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchase orders: %w", err)
	}

	rate := 0.0
	if poCount > 0 {
		rate = float64(row.Total) / float64(poCount) * 100
	}

	return &QualityKPIs{
		TotalNCRs:    row.Total,
		OpenNCRs:     row.Open,
		ClosedNCRs:   row.Closed,
		CriticalNCRs: row.Critical,
		NCRRate:      rate,
	}, nil
}

// Suppliers computes exposure per supplier, largest first.
func (k *KPIService) Suppliers(ctx context.Context, f KPIFilter) (*SupplierKPIs, error) {
	where, args := f.conditions()

	var rows []struct {
		SupplierExposure
		ReadinessScore decimal.Decimal `db:"readiness_score"`
		Status         string          `db:"status"`
	}
	err := k.db.SelectContext(ctx, &rows, `
		SELECT
			s.id AS supplier_id,
			s.name AS supplier_name,
			COALESCE(s.readiness_score, 0) AS readiness_score,
			s.status,
			SUM(po.total_value) AS total_exposure
		FROM supplier s
		INNER JOIN purchase_order po ON s.id = po.supplier_id
		WHERE `+where+`
		GROUP BY s.id, s.name, s.readiness_score, s.status
		ORDER BY total_exposure DESC
		LIMIT 10`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate supplier exposure: %w", err)
	}

	kpis := &SupplierKPIs{TopExposure: []SupplierExposure{}}
	if len(rows) == 0 {
		return kpis, nil
	}

	scoreSum := decimal.Zero
	for i, r := range rows {
		if r.Status == "ACTIVE" {
			kpis.ActiveSuppliers++
		}
		scoreSum = scoreSum.Add(r.ReadinessScore)
		if i < 5 {
			kpis.TopExposure = append(kpis.TopExposure, r.SupplierExposure)
		}
	}

	kpis.TotalSuppliers = len(rows)
	kpis.AvgReadinessScore = scoreSum.Div(decimal.NewFromInt(int64(len(rows)))).InexactFloat64()

	return kpis, nil
}

// Payments computes invoice aging and the average payment cycle in days.
func (k *KPIService) Payments(ctx context.Context, f KPIFilter) (*PaymentKPIs, error) {
	where, args := f.conditions()

	var row struct {
		Pending       int             `db:"pending_count"`
		Overdue       int             `db:"overdue_count"`
		OverdueAmount decimal.Decimal `db:"overdue_amount"`
		AvgCycle      *float64        `db:"avg_cycle"`
	}
	err := k.db.GetContext(ctx, &row, `
		SELECT
			COUNT(*) FILTER (WHERE inv.status IN ('PENDING_APPROVAL', 'APPROVED')) AS pending_count,
			COUNT(*) FILTER (WHERE inv.status != 'PAID' AND inv.due_date < NOW()) AS overdue_count,
			COALESCE(SUM(CASE WHEN inv.status != 'PAID' AND inv.due_date < NOW() THEN inv.amount ELSE 0 END), 0) AS overdue_amount,
			AVG(EXTRACT(EPOCH FROM (inv.paid_at - inv.invoice_date)) / 86400) FILTER (WHERE inv.status = 'PAID') AS avg_cycle
		FROM invoice inv
		INNER JOIN purchase_order po ON inv.purchase_order_id = po.id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}

	kpis := &PaymentKPIs{
		PendingInvoiceCount: row.Pending,
		OverdueInvoiceCount: row.Overdue,
		OverdueAmount:       row.OverdueAmount,
	}
	if row.AvgCycle != nil {
		kpis.AvgPaymentCycleDays = *row.AvgCycle
	}
	return kpis, nil
}

// Logistics computes shipment delivery performance. The on-time rate is
// 100 when nothing has been delivered yet.
func (k *KPIService) Logistics(ctx context.Context, f KPIFilter) (*LogisticsKPIs, error) {
	where, args := f.conditions()

	var row struct {
		Total     int `db:"total_shipments"`
		InTransit int `db:"in_transit"`
		Delivered int `db:"delivered"`
		OnTime    int `db:"on_time"`
		Delayed   int `db:"delayed"`
	}
	err := k.db.GetContext(ctx, &row, `
		SELECT
			COUNT(*) AS total_shipments,
			COUNT(*) FILTER (WHERE sh.status = 'IN_TRANSIT') AS in_transit,
			COUNT(*) FILTER (WHERE sh.status = 'DELIVERED') AS delivered,
			COUNT(*) FILTER (WHERE sh.status = 'DELIVERED' AND sh.actual_delivery_date <= sh.logistics_eta) AS on_time,
			COUNT(*) FILTER (WHERE sh.status = 'DELIVERED' AND sh.actual_delivery_date > sh.logistics_eta) AS delayed
		FROM shipment sh
		INNER JOIN purchase_order po ON sh.purchase_order_id = po.id
		WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shipments: %w", err)
	}

	rate := 100.0
	if row.Delivered > 0 {
		rate = float64(row.OnTime) / float64(row.Delivered) * 100
	}

	return &LogisticsKPIs{
		TotalShipments:   row.Total,
		DeliveredOnTime:  row.OnTime,
		DelayedShipments: row.Delayed,
		InTransit:        row.InTransit,
		OnTimeRate:       rate,
	}, nil
}

// SCurve returns monthly planned versus actual cumulative spend, based
// on milestone payment percentages against purchase order value.
func (k *KPIService) SCurve(ctx context.Context, f KPIFilter) ([]SCurvePoint, error) {
	where, args := f.conditions()

	var rows []struct {
		Month   time.Time       `db:"month"`
		Planned decimal.Decimal `db:"planned_amount"`
		Actual  decimal.Decimal `db:"actual_amount"`
	}
	err := k.db.SelectContext(ctx, &rows, `
		SELECT
			DATE_TRUNC('month', m.expected_date) AS month,
			SUM(po.total_value * m.payment_percentage / 100) AS planned_amount,
			SUM(CASE WHEN m.status = 'COMPLETED' THEN po.total_value * m.payment_percentage / 100 ELSE 0 END) AS actual_amount
		FROM milestone m
		INNER JOIN purchase_order po ON m.purchase_order_id = po.id
		WHERE m.expected_date IS NOT NULL AND `+where+`
		GROUP BY DATE_TRUNC('month', m.expected_date)
		ORDER BY month`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate s-curve data: %w", err)
	}

	points := make([]SCurvePoint, 0, len(rows))
	plannedCum := decimal.Zero
	actualCum := decimal.Zero
	for _, r := range rows {
		plannedCum = plannedCum.Add(r.Planned)
		actualCum = actualCum.Add(r.Actual)
		points = append(points, SCurvePoint{
			Month:             r.Month.Format("2006-01"),
			PlannedCumulative: plannedCum,
			ActualCumulative:  actualCum,
		})
	}
	return points, nil
}
