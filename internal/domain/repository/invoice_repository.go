package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// InvoiceRepository is the persistence port for invoices in the e-Factura
// path. The CRUD surface that creates and edits invoices lives in the legacy
// back-office and is out of scope here.
type InvoiceRepository interface {
	// GetByID loads the invoice aggregate: client, orders, credit notes and
	// the EFactura sub-record when present. Returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)

	// SaveEFactura upserts the EFactura sub-record as one atomic write.
	// Status, identifiers, payload and attachment always travel together so a
	// crash can never leave a half-applied transition.
	SaveEFactura(ctx context.Context, ef *entity.EFactura) error

	// SetExchangeRate stores the snapshot conversion rate and its as-of date
	// on the invoice for audit and PDF rendering.
	SetExchangeRate(ctx context.Context, invoiceID string, rate decimal.Decimal, asOf time.Time) error
}
