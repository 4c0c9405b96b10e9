package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bct-trans/efactura-api/internal/domain"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implements CompanyRepository (usable with pool or tx).
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository builds the adapter. Pass a pool or a tx (Querier).
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	id, name, COALESCE(registration_number, ''), COALESCE(vat_number, ''),
	vat_valid, country_code, COALESCE(county, ''), COALESCE(address, ''),
	COALESCE(bank_account, ''), COALESCE(bank_account_eur, ''), COALESCE(bank_name, ''),
	COALESCE(share_capital, ''), COALESCE(phone, ''), COALESCE(email, ''),
	created_at, updated_at`

// FindByVAT matches by VAT-number substring: stored values may or may not
// carry the country prefix, so the lookup goes both ways.
func (r *CompanyRepo) FindByVAT(ctx context.Context, vat string) (*entity.Company, error) {
	if vat == "" {
		return nil, nil
	}
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE vat_number LIKE '%' || $1 || '%' OR $1 LIKE '%' || vat_number || '%'
		ORDER BY created_at
		LIMIT 1`
	c, err := scanCompany(r.q.QueryRow(ctx, query, vat))
	if err != nil {
		return nil, fmt.Errorf("find company by vat: %w", err)
	}
	return c, nil
}

// Create persists a new company.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	const query = `
		INSERT INTO companies (id, name, registration_number, vat_number, vat_valid,
		                       country_code, county, address, bank_account, bank_account_eur,
		                       bank_name, share_capital, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.Name, nullIfEmpty(c.RegistrationNumber), nullIfEmpty(c.VATNumber), c.VATValid,
		c.CountryCode, nullIfEmpty(c.County), nullIfEmpty(c.Address),
		nullIfEmpty(c.BankAccount), nullIfEmpty(c.BankAccountEUR), nullIfEmpty(c.BankName),
		nullIfEmpty(c.ShareCapital), nullIfEmpty(c.Phone), nullIfEmpty(c.Email),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: company %s", domain.ErrDuplicate, c.VATNumber)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func scanCompany(row pgx.Row) (*entity.Company, error) {
	var c entity.Company
	err := row.Scan(
		&c.ID, &c.Name, &c.RegistrationNumber, &c.VATNumber,
		&c.VATValid, &c.CountryCode, &c.County, &c.Address,
		&c.BankAccount, &c.BankAccountEUR, &c.BankName,
		&c.ShareCapital, &c.Phone, &c.Email,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
