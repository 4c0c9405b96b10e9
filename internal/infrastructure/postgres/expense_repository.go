package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
)

var _ repository.ExpenseRepository = (*ExpenseRepo)(nil)

// ExpenseRepo implements ExpenseRepository. It holds the pool directly
// because Create and Reconcile open their own transactions (expense row and
// EFactura sub-record must land together).
type ExpenseRepo struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository builds the adapter.
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepo {
	return &ExpenseRepo{pool: pool}
}

// FindByAmount returns candidate expenses for reconciliation, supplier and
// EFactura loaded. The amount filter runs in SQL; the rest of the heuristic
// is domain logic.
func (r *ExpenseRepo) FindByAmount(ctx context.Context, amount decimal.Decimal) ([]*entity.NationalExpense, error) {
	const query = `
		SELECT e.id, e.number, e.date, e.amount, COALESCE(e.description, ''),
		       e.supplier_id, COALESCE(e.attachment, ''), e.created_at, e.updated_at,
		       s.id, s.name, COALESCE(s.registration_number, ''), COALESCE(s.vat_number, ''),
		       s.vat_valid, s.country_code,
		       f.id, f.invoice_id, f.expense_id, f.status,
		       COALESCE(f.upload_id, ''), COALESCE(f.download_id, ''),
		       COALESCE(f.xml, ''), COALESCE(f.attachment, ''),
		       f.created_at, f.updated_at
		FROM national_expenses e
		JOIN companies s ON s.id = e.supplier_id
		LEFT JOIN efactura f ON f.expense_id = e.id
		WHERE e.amount = $1
		ORDER BY e.date DESC`
	rows, err := r.pool.Query(ctx, query, amount)
	if err != nil {
		return nil, fmt.Errorf("list expenses by amount: %w", err)
	}
	defer rows.Close()

	var list []*entity.NationalExpense
	for rows.Next() {
		var e entity.NationalExpense
		var s entity.Company
		var efID *string
		var efInvoiceID, efExpenseID *string
		var efStatus, efUploadID, efDownloadID, efXML, efAttachment *string
		var efCreated, efUpdated *time.Time
		err := rows.Scan(
			&e.ID, &e.Number, &e.Date, &e.Amount, &e.Description,
			&e.SupplierID, &e.Attachment, &e.CreatedAt, &e.UpdatedAt,
			&s.ID, &s.Name, &s.RegistrationNumber, &s.VATNumber,
			&s.VATValid, &s.CountryCode,
			&efID, &efInvoiceID, &efExpenseID, &efStatus,
			&efUploadID, &efDownloadID, &efXML, &efAttachment,
			&efCreated, &efUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Supplier = &s
		if efID != nil {
			ef := &entity.EFactura{
				ID:         *efID,
				InvoiceID:  efInvoiceID,
				ExpenseID:  efExpenseID,
				Status:     entity.Status(deref(efStatus)),
				UploadID:   deref(efUploadID),
				DownloadID: deref(efDownloadID),
				XML:        deref(efXML),
				Attachment: deref(efAttachment),
			}
			if efCreated != nil {
				ef.CreatedAt = *efCreated
			}
			if efUpdated != nil {
				ef.UpdatedAt = *efUpdated
			}
			e.EFactura = ef
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// Create persists a new expense and, when present, its EFactura sub-record
// in one transaction.
func (r *ExpenseRepo) Create(ctx context.Context, e *entity.NationalExpense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
		INSERT INTO national_expenses (id, number, date, amount, description, supplier_id, attachment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.Exec(ctx, query,
		e.ID, e.Number, e.Date, e.Amount, nullIfEmpty(e.Description),
		e.SupplierID, nullIfEmpty(e.Attachment), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if e.EFactura != nil {
		e.EFactura.ExpenseID = &e.ID
		if err := insertEFactura(ctx, tx, e.EFactura); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Reconcile updates the matched expense's number and attaches the EFactura
// sub-record atomically.
func (r *ExpenseRepo) Reconcile(ctx context.Context, expenseID, number string, ef *entity.EFactura) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`UPDATE national_expenses SET number = $2, updated_at = $3 WHERE id = $1`,
		expenseID, number, time.Now())
	if err != nil {
		return fmt.Errorf("update expense number: %w", err)
	}

	ef.ExpenseID = &expenseID
	if err := insertEFactura(ctx, tx, ef); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertEFactura(ctx context.Context, q Querier, ef *entity.EFactura) error {
	if ef.ID == "" {
		ef.ID = uuid.New().String()
		ef.CreatedAt = time.Now()
	}
	ef.UpdatedAt = time.Now()
	const query = `
		INSERT INTO efactura (id, invoice_id, expense_id, status, upload_id, download_id, xml, attachment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.Exec(ctx, query,
		ef.ID, ef.InvoiceID, ef.ExpenseID, string(ef.Status),
		nullIfEmpty(ef.UploadID), nullIfEmpty(ef.DownloadID),
		nullIfEmpty(ef.XML), nullIfEmpty(ef.Attachment),
		ef.CreatedAt, ef.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert efactura: %w", err)
	}
	return nil
}
