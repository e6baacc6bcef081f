package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/InfradynAB/infradyn1-sub003/model"
)

// CreateSupplier inserts a new supplier for the organization.
func (s *Store) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	if sup.ID == "" {
		sup.ID = uuid.New().String()
	}
	if sup.Status == "" {
		sup.Status = model.SupplierStatusActive
	}
	now := time.Now()
	sup.CreatedAt = now
	sup.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO supplier (id, organization_id, name, status, readiness_score, contact_email, country, created_at, updated_at)
		 VALUES (:id, :organization_id, :name, :status, :readiness_score, :contact_email, :country, :created_at, :updated_at)`, sup)
	if err != nil {
		return fmt.Errorf("failed to insert supplier: %w", err)
	}
	return nil
}

// GetSupplier loads one supplier scoped to the organization.
func (s *Store) GetSupplier(ctx context.Context, organizationID, id string) (*model.Supplier, error) {
	var sup model.Supplier
	err := s.db.GetContext(ctx, &sup,
		`SELECT id, organization_id, name, status, readiness_score, contact_email, country, created_at, updated_at
		 FROM supplier WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return &sup, nil
}

// ListSuppliers returns the organization's suppliers ordered by name.
func (s *Store) ListSuppliers(ctx context.Context, organizationID string) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := s.db.SelectContext(ctx, &suppliers,
		`SELECT id, organization_id, name, status, readiness_score, contact_email, country, created_at, updated_at
		 FROM supplier WHERE organization_id = $1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

// UpdateSupplier rewrites a supplier's mutable fields.
func (s *Store) UpdateSupplier(ctx context.Context, sup *model.Supplier) error {
	sup.UpdatedAt = time.Now()
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE supplier SET name = :name, status = :status, readiness_score = :readiness_score,
		   contact_email = :contact_email, country = :country, updated_at = :updated_at
		 WHERE id = :id AND organization_id = :organization_id`, sup)
	if err != nil {
		return fmt.Errorf("failed to update supplier: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateNCR records a non-conformance report against a purchase order.
// The purchase order must belong to the organization.
func (s *Store) CreateNCR(ctx context.Context, organizationID string, ncr *model.NCR) error {
	if _, err := s.GetPurchaseOrder(ctx, organizationID, ncr.PurchaseOrderID); err != nil {
		return err
	}

	if ncr.ID == "" {
		ncr.ID = uuid.New().String()
	}
	if ncr.Status == "" {
		ncr.Status = model.NCRStatusOpen
	}
	now := time.Now()
	ncr.CreatedAt = now
	ncr.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO ncr (id, purchase_order_id, title, description, severity, status, created_at, updated_at)
		 VALUES (:id, :purchase_order_id, :title, :description, :severity, :status, :created_at, :updated_at)`, ncr)
	if err != nil {
		return fmt.Errorf("failed to insert NCR: %w", err)
	}
	return nil
}

// ListNCRs returns NCRs for one purchase order, newest first.
func (s *Store) ListNCRs(ctx context.Context, organizationID, purchaseOrderID string) ([]model.NCR, error) {
	var ncrs []model.NCR
	err := s.db.SelectContext(ctx, &ncrs,
		`SELECT n.id, n.purchase_order_id, n.title, n.description, n.severity, n.status, n.created_at, n.updated_at
		 FROM ncr n
		 INNER JOIN purchase_order po ON n.purchase_order_id = po.id
		 WHERE n.purchase_order_id = $1 AND po.organization_id = $2
		 ORDER BY n.created_at DESC`, purchaseOrderID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list NCRs: %w", err)
	}
	return ncrs, nil
}

// CloseNCR marks an open NCR as closed.
func (s *Store) CloseNCR(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ncr SET status = 'CLOSED', updated_at = $3
		 FROM purchase_order po
		 WHERE ncr.purchase_order_id = po.id AND ncr.id = $1 AND po.organization_id = $2`,
		id, organizationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close NCR: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read close result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateShipment records a shipment against a purchase order.
func (s *Store) CreateShipment(ctx context.Context, organizationID string, sh *model.Shipment) error {
	if _, err := s.GetPurchaseOrder(ctx, organizationID, sh.PurchaseOrderID); err != nil {
		return err
	}

	if sh.ID == "" {
		sh.ID = uuid.New().String()
	}
	if sh.Status == "" {
		sh.Status = model.ShipmentStatusPending
	}
	sh.CreatedAt = time.Now()

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO shipment (id, purchase_order_id, reference, status, logistics_eta, actual_delivery_date, created_at)
		 VALUES (:id, :purchase_order_id, :reference, :status, :logistics_eta, :actual_delivery_date, :created_at)`, sh)
	if err != nil {
		return fmt.Errorf("failed to insert shipment: %w", err)
	}
	return nil
}

// ListShipments returns shipments for one purchase order, newest first.
func (s *Store) ListShipments(ctx context.Context, organizationID, purchaseOrderID string) ([]model.Shipment, error) {
	var shipments []model.Shipment
	err := s.db.SelectContext(ctx, &shipments,
		`SELECT sh.id, sh.purchase_order_id, sh.reference, sh.status, sh.logistics_eta, sh.actual_delivery_date, sh.created_at
		 FROM shipment sh
		 INNER JOIN purchase_order po ON sh.purchase_order_id = po.id
		 WHERE sh.purchase_order_id = $1 AND po.organization_id = $2
		 ORDER BY sh.created_at DESC`, purchaseOrderID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	return shipments, nil
}

// UpdateShipmentStatus moves a shipment to a new status, recording the
// actual delivery date when it is delivered.
func (s *Store) UpdateShipmentStatus(ctx context.Context, organizationID, id, status string, deliveredAt *time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shipment SET status = $3, actual_delivery_date = COALESCE($4, actual_delivery_date)
		 FROM purchase_order po
		 WHERE shipment.purchase_order_id = po.id AND shipment.id = $1 AND po.organization_id = $2`,
		id, organizationID, status, deliveredAt)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateInvoice records an invoice against a purchase order.
func (s *Store) CreateInvoice(ctx context.Context, organizationID string, inv *model.Invoice) error {
	if _, err := s.GetPurchaseOrder(ctx, organizationID, inv.PurchaseOrderID); err != nil {
		return err
	}

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceStatusPendingApproval
	}
	inv.CreatedAt = time.Now()

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO invoice (id, purchase_order_id, invoice_number, amount, status, invoice_date, due_date, paid_at, created_at)
		 VALUES (:id, :purchase_order_id, :invoice_number, :amount, :status, :invoice_date, :due_date, :paid_at, :created_at)`, inv)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// ListInvoices returns invoices for one purchase order, newest first.
func (s *Store) ListInvoices(ctx context.Context, organizationID, purchaseOrderID string) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := s.db.SelectContext(ctx, &invoices,
		`SELECT inv.id, inv.purchase_order_id, inv.invoice_number, inv.amount, inv.status, inv.invoice_date, inv.due_date, inv.paid_at, inv.created_at
		 FROM invoice inv
		 INNER JOIN purchase_order po ON inv.purchase_order_id = po.id
		 WHERE inv.purchase_order_id = $1 AND po.organization_id = $2
		 ORDER BY inv.created_at DESC`, purchaseOrderID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// MarkInvoicePaid transitions an invoice to PAID and stamps paid_at.
func (s *Store) MarkInvoicePaid(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoice SET status = 'PAID', paid_at = $3
		 FROM purchase_order po
		 WHERE invoice.purchase_order_id = po.id AND invoice.id = $1 AND po.organization_id = $2 AND invoice.status != 'PAID'`,
		id, organizationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
