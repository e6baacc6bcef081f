package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/InfradynAB/infradyn1-sub003/config"
	"github.com/InfradynAB/infradyn1-sub003/model"
)

// Store errors. Handlers map these to HTTP statuses.
var (
	ErrNotFound = errors.New("record not found")
	ErrNotDraft = errors.New("purchase order is not a draft")
)

// Store wraps the Postgres connection for all durable procurement data.
type Store struct {
	db *sqlx.DB
}

// NewStore connects to Postgres and configures the pool.
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection (used by tests).
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for the KPI service, which runs
// its own aggregate queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// GetProject loads a project scoped to the organization.
func (s *Store) GetProject(ctx context.Context, organizationID, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p,
		`SELECT id, organization_id, name, currency, created_at
		 FROM project WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return &p, nil
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO project (id, organization_id, name, currency, created_at)
		 VALUES (:id, :organization_id, :name, :currency, :created_at)`, p)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// ListProjects returns the organization's projects.
func (s *Store) ListProjects(ctx context.Context, organizationID string) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects,
		`SELECT id, organization_id, name, currency, created_at
		 FROM project WHERE organization_id = $1 ORDER BY name`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

const poColumns = `id, organization_id, project_id, supplier_id, po_number, title,
	currency, total_value, retention_percentage, payment_terms, incoterms,
	status, boq_items, created_at, updated_at`

// CreatePurchaseOrder inserts a new draft with its milestones.
func (s *Store) CreatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	po.Status = model.POStatusDraft
	now := time.Now()
	po.CreatedAt = now
	po.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO purchase_order (`+poColumns+`)
		 VALUES (:id, :organization_id, :project_id, :supplier_id, :po_number, :title,
		         :currency, :total_value, :retention_percentage, :payment_terms, :incoterms,
		         :status, :boq_items, :created_at, :updated_at)`, po)
	if err != nil {
		return fmt.Errorf("failed to insert purchase order: %w", err)
	}

	if err := insertMilestones(ctx, tx, po); err != nil {
		return err
	}

	return tx.Commit()
}

// GetPurchaseOrder loads a purchase order with its milestones.
func (s *Store) GetPurchaseOrder(ctx context.Context, organizationID, id string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := s.db.GetContext(ctx, &po,
		`SELECT `+poColumns+` FROM purchase_order
		 WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase order: %w", err)
	}

	err = s.db.SelectContext(ctx, &po.Milestones,
		`SELECT id, purchase_order_id, title, description, expected_date, payment_percentage, status
		 FROM milestone WHERE purchase_order_id = $1 ORDER BY expected_date NULLS LAST, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load milestones: %w", err)
	}

	return &po, nil
}

// ListPurchaseOrders returns header rows for the organization, newest
// first, optionally filtered by project. Milestones are not loaded.
func (s *Store) ListPurchaseOrders(ctx context.Context, organizationID, projectID string) ([]model.PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_order WHERE organization_id = $1`
	args := []interface{}{organizationID}
	if projectID != "" {
		query += ` AND project_id = $2`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	var orders []model.PurchaseOrder
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return orders, nil
}

// UpdatePurchaseOrder rewrites a draft's header fields, BOQ lines and
// milestones. Published orders are immutable through this path.
func (s *Store) UpdatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error {
	po.UpdatedAt = time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.NamedExecContext(ctx,
		`UPDATE purchase_order SET
		   supplier_id = :supplier_id, po_number = :po_number, title = :title,
		   currency = :currency, total_value = :total_value,
		   retention_percentage = :retention_percentage, payment_terms = :payment_terms,
		   incoterms = :incoterms, boq_items = :boq_items, updated_at = :updated_at
		 WHERE id = :id AND organization_id = :organization_id AND status = 'DRAFT'`, po)
	if err != nil {
		return fmt.Errorf("failed to update purchase order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotDraft
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM milestone WHERE purchase_order_id = $1`, po.ID); err != nil {
		return fmt.Errorf("failed to clear milestones: %w", err)
	}
	if err := insertMilestones(ctx, tx, po); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePurchaseOrder removes a purchase order and its milestones.
func (s *Store) DeletePurchaseOrder(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM purchase_order WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete purchase order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PublishPurchaseOrder flips a draft to PUBLISHED. Callers must run the
// compliance gate first; this method only guards the state transition.
func (s *Store) PublishPurchaseOrder(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE purchase_order SET status = 'PUBLISHED', updated_at = $3
		 WHERE id = $1 AND organization_id = $2 AND status = 'DRAFT'`,
		id, organizationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to publish purchase order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read publish result: %w", err)
	}
	if affected == 0 {
		return ErrNotDraft
	}
	return nil
}

func insertMilestones(ctx context.Context, tx *sqlx.Tx, po *model.PurchaseOrder) error {
	for i := range po.Milestones {
		m := &po.Milestones[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.PurchaseOrderID = po.ID
		if m.Status == "" {
			m.Status = model.MilestoneStatusPending
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO milestone (id, purchase_order_id, title, description, expected_date, payment_percentage, status)
			 VALUES (:id, :purchase_order_id, :title, :description, :expected_date, :payment_percentage, :status)`, m)
		if err != nil {
			return fmt.Errorf("failed to insert milestone: %w", err)
		}
	}
	return nil
}
