package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implements InvoiceRepository (usable with pool or tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository builds the adapter. Pass a pool or a tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// GetByID loads the full invoice aggregate used by the e-Factura flow.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const query = `
		SELECT i.id, i.number, i.date, i.amount, i.currency, i.vat_rate,
		       COALESCE(i.bnr, 0), i.bnr_at, i.client_id,
		       c.id, c.name, COALESCE(c.registration_number, ''), COALESCE(c.vat_number, ''),
		       c.vat_valid, c.country_code, COALESCE(c.county, ''), COALESCE(c.address, ''),
		       COALESCE(c.bank_account, ''), COALESCE(c.bank_account_eur, ''), COALESCE(c.bank_name, ''),
		       i.created_at, i.updated_at
		FROM invoices i
		JOIN companies c ON c.id = i.client_id
		WHERE i.id = $1`

	var inv entity.Invoice
	var client entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.Number, &inv.Date, &inv.Amount, &inv.Currency, &inv.VATRate,
		&inv.BNR, &inv.BNRAt, &inv.ClientID,
		&client.ID, &client.Name, &client.RegistrationNumber, &client.VATNumber,
		&client.VATValid, &client.CountryCode, &client.County, &client.Address,
		&client.BankAccount, &client.BankAccountEUR, &client.BankName,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Client = &client

	if inv.Orders, err = r.ordersFor(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.CreditNotes, err = r.creditNotesFor(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.EFactura, err = r.efacturaFor(ctx, inv.ID); err != nil {
		return nil, err
	}
	if inv.Identification, err = r.identificationFor(ctx, inv.ID); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepo) ordersFor(ctx context.Context, invoiceID string) ([]*entity.Order, error) {
	const query = `
		SELECT id, invoice_id, description, quantity, amount, total
		FROM orders WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.Order
	for rows.Next() {
		var o entity.Order
		if err := rows.Scan(&o.ID, &o.InvoiceID, &o.Description, &o.Quantity, &o.Amount, &o.Total); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) creditNotesFor(ctx context.Context, invoiceID string) ([]*entity.CreditNote, error) {
	const query = `
		SELECT id, number, amount, currency, invoice_id
		FROM credit_notes WHERE invoice_id = $1 ORDER BY number`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list credit notes: %w", err)
	}
	defer rows.Close()
	var list []*entity.CreditNote
	for rows.Next() {
		var cn entity.CreditNote
		if err := rows.Scan(&cn.ID, &cn.Number, &cn.Amount, &cn.Currency, &cn.InvoiceID); err != nil {
			return nil, fmt.Errorf("scan credit note: %w", err)
		}
		list = append(list, &cn)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) efacturaFor(ctx context.Context, invoiceID string) (*entity.EFactura, error) {
	ef, err := scanEFactura(r.q.QueryRow(ctx, `
		SELECT id, invoice_id, expense_id, status,
		       COALESCE(upload_id, ''), COALESCE(download_id, ''),
		       COALESCE(xml, ''), COALESCE(attachment, ''),
		       created_at, updated_at
		FROM efactura WHERE invoice_id = $1`, invoiceID))
	if err != nil {
		return nil, fmt.Errorf("get efactura: %w", err)
	}
	return ef, nil
}

func (r *InvoiceRepo) identificationFor(ctx context.Context, invoiceID string) (*entity.Identification, error) {
	var ident entity.Identification
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(buyer_name, ''), COALESCE(id_document, ''), COALESCE(vehicle, '')
		FROM identifications WHERE invoice_id = $1`, invoiceID).
		Scan(&ident.BuyerName, &ident.IDDocument, &ident.Vehicle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identification: %w", err)
	}
	return &ident, nil
}

// SaveEFactura upserts the sub-record in a single statement so status and
// identifiers can never be persisted separately.
func (r *InvoiceRepo) SaveEFactura(ctx context.Context, ef *entity.EFactura) error {
	if ef.ID == "" {
		ef.ID = uuid.New().String()
		ef.CreatedAt = time.Now()
	}
	ef.UpdatedAt = time.Now()
	const query = `
		INSERT INTO efactura (id, invoice_id, expense_id, status, upload_id, download_id, xml, attachment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET status      = EXCLUDED.status,
		    upload_id   = EXCLUDED.upload_id,
		    download_id = EXCLUDED.download_id,
		    xml         = EXCLUDED.xml,
		    attachment  = EXCLUDED.attachment,
		    updated_at  = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		ef.ID, ef.InvoiceID, ef.ExpenseID, string(ef.Status),
		nullIfEmpty(ef.UploadID), nullIfEmpty(ef.DownloadID),
		nullIfEmpty(ef.XML), nullIfEmpty(ef.Attachment),
		ef.CreatedAt, ef.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save efactura: %w", err)
	}
	return nil
}

// SetExchangeRate stores the snapshot rate on the invoice.
func (r *InvoiceRepo) SetExchangeRate(ctx context.Context, invoiceID string, rate decimal.Decimal, asOf time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE invoices SET bnr = $2, bnr_at = $3, updated_at = $4 WHERE id = $1`,
		invoiceID, rate, asOf, time.Now())
	if err != nil {
		return fmt.Errorf("set exchange rate: %w", err)
	}
	return nil
}

// scanEFactura scans one efactura row; nil, nil when the row is absent.
func scanEFactura(row pgx.Row) (*entity.EFactura, error) {
	var ef entity.EFactura
	var status string
	err := row.Scan(&ef.ID, &ef.InvoiceID, &ef.ExpenseID, &status,
		&ef.UploadID, &ef.DownloadID, &ef.XML, &ef.Attachment,
		&ef.CreatedAt, &ef.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ef.Status = entity.Status(status)
	return &ef, nil
}
