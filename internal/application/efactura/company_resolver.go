package efactura

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/bct-trans/efactura-api/internal/domain"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

// ResolveStatus classifies a resolution outcome. Remote-service failure is
// NOT one of these: it surfaces as a Go error so callers can never mistake an
// outage for genuine absence.
type ResolveStatus string

const (
	// ResolvedLocal: the company was already known; nothing was fetched.
	ResolvedLocal ResolveStatus = "already-known"
	// ResolvedRemote: fetched from a registry; Resolution.Company is
	// transient and not yet persisted.
	ResolvedRemote ResolveStatus = "found-remotely"
	// ResolveNotFound: the registry answered and the company does not exist.
	ResolveNotFound ResolveStatus = "not-found"
)

// Resolution is the outcome of a company lookup.
type Resolution struct {
	Company *entity.Company
	Status  ResolveStatus
}

// CompanyResolver looks counterparties up local-first, then dispatches by
// country: the domestic registry for RO, VIES for the rest of the EU.
type CompanyResolver struct {
	companies repository.CompanyRepository
	domestic  DomesticRegistry
	eu        EURegistry
	log       *logger.Logger

	// Serializes creation per VAT key: concurrent inbound messages naming
	// the same new supplier would otherwise race to duplicate it.
	creating keyedMutex
}

func NewCompanyResolver(
	companies repository.CompanyRepository,
	domestic DomesticRegistry,
	eu EURegistry,
	log *logger.Logger,
) *CompanyResolver {
	return &CompanyResolver{companies: companies, domestic: domestic, eu: eu, log: log}
}

// Resolve looks the company up. A remote hit returns a transient, not yet
// persisted Company; the caller decides whether to create it. forceRefresh
// skips the local cache and always asks the registry.
func (r *CompanyResolver) Resolve(ctx context.Context, countryCode, vatNumber string, forceRefresh bool) (*Resolution, error) {
	vatNumber = strings.ToUpper(strings.TrimSpace(vatNumber))
	if vatNumber == "" {
		return nil, fmt.Errorf("resolve company: empty VAT number: %w", domain.ErrInvalidInput)
	}
	countryCode = normalizeCountry(countryCode, vatNumber)

	if !forceRefresh {
		local, err := r.companies.FindByVAT(ctx, bareVAT(vatNumber))
		if err != nil {
			return nil, err
		}
		if local != nil {
			return &Resolution{Company: local, Status: ResolvedLocal}, nil
		}
	}

	var (
		company *entity.Company
		err     error
	)
	if countryCode == "RO" {
		company, err = r.domestic.Lookup(ctx, vatNumber)
	} else {
		company, err = r.eu.Validate(ctx, countryCode, vatNumber)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Resolution{Status: ResolveNotFound}, nil
		}
		return nil, err
	}
	return &Resolution{Company: company, Status: ResolvedRemote}, nil
}

// ResolveOrCreate resolves the company and persists it when it only exists
// remotely. Creation is serialized per VAT key; a concurrent winner's row is
// returned instead of a duplicate.
func (r *CompanyResolver) ResolveOrCreate(ctx context.Context, countryCode, vatNumber string) (*entity.Company, error) {
	res, err := r.Resolve(ctx, countryCode, vatNumber, false)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case ResolvedLocal:
		return res.Company, nil
	case ResolveNotFound:
		return nil, fmt.Errorf("company %s: %w", vatNumber, domain.ErrNotFound)
	}

	key := bareVAT(strings.ToUpper(vatNumber))
	unlock := r.creating.lock(key)
	defer unlock()

	// Another message may have created it while we waited on the key.
	if existing, err := r.companies.FindByVAT(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	c := res.Company
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := r.companies.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return r.companies.FindByVAT(ctx, key)
		}
		return nil, err
	}
	r.log.Info().Str("vat", vatNumber).Str("name", c.Name).Msg("company created from registry")
	return c, nil
}

// normalizeCountry prefers an explicit country, falling back to the VAT
// prefix, then to domestic.
func normalizeCountry(countryCode, vatNumber string) string {
	c := strings.ToUpper(strings.TrimSpace(countryCode))
	if c != "" {
		return c
	}
	if len(vatNumber) >= 2 && unicode.IsLetter(rune(vatNumber[0])) && unicode.IsLetter(rune(vatNumber[1])) {
		return vatNumber[:2]
	}
	return "RO"
}

// bareVAT strips the country prefix so substring lookup matches rows stored
// either way.
func bareVAT(vat string) string {
	return strings.TrimLeftFunc(vat, unicode.IsLetter)
}

// keyedMutex hands out one mutex per string key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
