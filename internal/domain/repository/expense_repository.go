package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// ExpenseRepository is the persistence port for domestic expense records.
type ExpenseRepository interface {
	// FindByAmount returns expenses with the exact tax-inclusive amount, with
	// supplier and EFactura sub-record loaded. The reconciliation heuristic
	// filters the rest (trailing digits, VAT substring) in the domain layer.
	FindByAmount(ctx context.Context, amount decimal.Decimal) ([]*entity.NationalExpense, error)

	// Create persists a new expense together with its EFactura sub-record.
	Create(ctx context.Context, e *entity.NationalExpense) error

	// Reconcile updates the matched expense's number and attaches the
	// EFactura sub-record in a single transaction.
	Reconcile(ctx context.Context, expenseID, number string, ef *entity.EFactura) error
}
