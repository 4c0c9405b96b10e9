package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a locally issued sales invoice. Once transmitted to the tax
// authority it is immutable except for the attached EFactura sub-record.
//
// Orders and CreditNotes are mutually exclusive sources of invoiced value: an
// invoice either itemizes its own orders or aggregates pre-billed credit
// notes, never both.
type Invoice struct {
	ID       string
	Number   string // sequential, digits (possibly with a legacy prefix)
	Date     time.Time
	Amount   decimal.Decimal // tax-exclusive, in Currency
	Currency string
	VATRate  decimal.Decimal // percentage, 0-100

	// Snapshot exchange rate used when aggregated credit notes are in a
	// different currency. Zero when no conversion applies.
	BNR   decimal.Decimal
	BNRAt *time.Time

	ClientID string
	Client   *Company

	Orders      []*Order
	CreditNotes []*CreditNote

	Identification *Identification
	EFactura       *EFactura

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is an invoice line item.
type Order struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal // unit price
	Total       decimal.Decimal
}

// CreditNote is a pre-billed transport order, optionally linked to one
// invoice. Its amount feeds Invoice.Amount when linked.
type CreditNote struct {
	ID        string
	Number    string // contract number printed on the invoice line
	Amount    decimal.Decimal
	Currency  string
	InvoiceID *string
}

// Identification carries the transport/expedition metadata block.
type Identification struct {
	BuyerName  string
	IDDocument string
	Vehicle    string
}
