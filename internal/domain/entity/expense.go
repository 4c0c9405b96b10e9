package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// NationalExpense is a domestic purchase/expense record, potentially the
// local counterpart of an inbound e-invoice received through SPV.
type NationalExpense struct {
	ID          string
	Number      string
	Date        time.Time
	Amount      decimal.Decimal // tax-inclusive
	Description string
	SupplierID  string
	Supplier    *Company
	Attachment  string // path of the original document, when present
	EFactura    *EFactura
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
