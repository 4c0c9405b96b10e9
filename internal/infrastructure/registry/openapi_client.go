// Package registry implements the external company-lookup clients: the
// domestic business registry (OpenAPI) and the EU VAT validation service
// (VIES). Both return domain.ErrNotFound for a genuinely absent company;
// any other error means the service could not answer, which callers must
// keep distinct from absence.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bct-trans/efactura-api/internal/domain"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

const (
	lookupTimeout = 30 * time.Second
	maxReplyBody  = 1 << 20
)

// OpenAPIClient queries the domestic business registry by tax ID.
type OpenAPIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewOpenAPIClient(baseURL, apiKey string) *OpenAPIClient {
	return &OpenAPIClient{
		httpClient: &http.Client{Timeout: lookupTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// openAPICompany is the registry's proprietary reply shape.
type openAPICompany struct {
	Denumire   string      `json:"denumire"`
	CIF        json.Number `json:"cif"`
	RegCom     string      `json:"numar_reg_com"`
	Adresa     string      `json:"adresa"`
	Judet      string      `json:"judet"`
	Telefon    string      `json:"telefon"`
	Stare      string      `json:"stare"`
	TVA        string      `json:"tva"` // VAT registration date; empty for non-payers
	CodPostal  string      `json:"cod_postal"`
	Localitate string      `json:"localitate"`
}

// Lookup fetches the company for a bare numeric tax ID (no RO prefix).
// A 404 maps to domain.ErrNotFound.
func (c *OpenAPIClient) Lookup(ctx context.Context, vat string) (*entity.Company, error) {
	vat = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(vat)), "RO")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/companies/"+vat, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: lookup %s: %w", vat, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, fmt.Errorf("registry: read reply: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		// fall through
	case http.StatusNotFound:
		return nil, fmt.Errorf("registry: company %s: %w", vat, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("registry: HTTP %d for %s", resp.StatusCode, vat)
	}

	var reply openAPICompany
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("registry: parse reply: %w", err)
	}
	if reply.Denumire == "" {
		return nil, fmt.Errorf("registry: company %s: %w", vat, domain.ErrNotFound)
	}
	return reply.toCompany(), nil
}

// toCompany translates the proprietary fields into the internal shape. VAT
// payers carry the country-prefixed number; non-payers keep the bare tax ID
// with the validity flag down.
func (r *openAPICompany) toCompany() *entity.Company {
	vatPayer := r.TVA != ""
	vatNumber := r.CIF.String()
	if vatPayer {
		vatNumber = "RO" + vatNumber
	}
	address := r.Adresa
	if r.Localitate != "" && !strings.Contains(strings.ToUpper(address), strings.ToUpper(r.Localitate)) {
		address = strings.TrimSuffix(address, ", ") + ", " + r.Localitate
	}
	return &entity.Company{
		Name:               r.Denumire,
		RegistrationNumber: r.RegCom,
		VATNumber:          vatNumber,
		VATValid:           vatPayer,
		CountryCode:        "RO",
		County:             CountyCode(r.Judet),
		Address:            address,
		Phone:              r.Telefon,
	}
}
