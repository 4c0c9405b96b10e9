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

// VIESClient validates non-domestic EU VAT numbers through the REST
// endpoint of the VAT Information Exchange System.
type VIESClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewVIESClient(baseURL string) *VIESClient {
	return &VIESClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type viesReply struct {
	IsValid bool   `json:"isValid"`
	Name    string `json:"name"`
	Address string `json:"address"`
	UserErr string `json:"userError"`
}

// Validate checks the VAT number for the given member state. An invalid or
// unknown number maps to domain.ErrNotFound; VIES outages (the service
// reports per-member-state unavailability in-band) surface as plain errors.
func (c *VIESClient) Validate(ctx context.Context, countryCode, vatNumber string) (*entity.Company, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	vatNumber = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(vatNumber)), countryCode)

	url := fmt.Sprintf("%s/ms/%s/vat/%s", c.baseURL, countryCode, vatNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vies: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vies: check %s%s: %w", countryCode, vatNumber, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, fmt.Errorf("vies: read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vies: HTTP %d for %s%s", resp.StatusCode, countryCode, vatNumber)
	}

	var reply viesReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("vies: parse reply: %w", err)
	}
	if reply.UserErr != "" && reply.UserErr != "VALID" && reply.UserErr != "INVALID" {
		return nil, fmt.Errorf("vies: service unavailable for %s: %s", countryCode, reply.UserErr)
	}
	if !reply.IsValid {
		return nil, fmt.Errorf("vies: %s%s: %w", countryCode, vatNumber, domain.ErrNotFound)
	}

	return &entity.Company{
		Name:        strings.TrimSpace(reply.Name),
		VATNumber:   countryCode + vatNumber,
		VATValid:    true,
		CountryCode: countryCode,
		Address:     strings.TrimSpace(reply.Address),
	}, nil
}
