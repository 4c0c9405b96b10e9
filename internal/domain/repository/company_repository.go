package repository

import (
	"context"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// CompanyRepository is the persistence port for counterparties.
type CompanyRepository interface {
	// FindByVAT looks a company up by VAT-number substring (the stored value
	// may or may not carry the country prefix). Returns nil, nil when absent.
	FindByVAT(ctx context.Context, vat string) (*entity.Company, error)

	// Create persists a new company. Companies are never auto-deleted.
	Create(ctx context.Context, c *entity.Company) error
}
