package registry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bct-trans/efactura-api/internal/domain"
	"github.com/bct-trans/efactura-api/internal/infrastructure/registry"
)

func TestOpenAPILookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/12345678", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		w.Write([]byte(`{
			"denumire": "EXPEDITII SRL",
			"cif": 12345678,
			"numar_reg_com": "J12/100/2010",
			"adresa": "Str. Garii 4",
			"localitate": "Cluj-Napoca",
			"judet": "Cluj",
			"telefon": "0744000000",
			"tva": "2010-05-01"
		}`))
	}))
	defer srv.Close()

	c := registry.NewOpenAPIClient(srv.URL, "key-1")
	// The RO prefix is stripped before hitting the registry.
	company, err := c.Lookup(context.Background(), "RO12345678")
	require.NoError(t, err)
	assert.Equal(t, "EXPEDITII SRL", company.Name)
	assert.Equal(t, "RO12345678", company.VATNumber)
	assert.True(t, company.VATValid)
	assert.Equal(t, "RO", company.CountryCode)
	assert.Equal(t, "RO-CJ", company.County)
	assert.Equal(t, "J12/100/2010", company.RegistrationNumber)
	assert.Contains(t, company.Address, "Cluj-Napoca")
}

// A non-payer keeps the bare tax ID and a lowered validity flag.
func TestOpenAPILookup_NonVATPayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"denumire":"PFA MICA","cif":999,"judet":"Bihor","tva":""}`))
	}))
	defer srv.Close()

	company, err := registry.NewOpenAPIClient(srv.URL, "k").Lookup(context.Background(), "999")
	require.NoError(t, err)
	assert.Equal(t, "999", company.VATNumber)
	assert.False(t, company.VATValid)
	assert.Equal(t, "RO-BH", company.County)
}

func TestOpenAPILookup_NotFoundVsUnavailable(t *testing.T) {
	t.Run("404 is not-found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := registry.NewOpenAPIClient(srv.URL, "k").Lookup(context.Background(), "1")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("500 is unavailable, not not-found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := registry.NewOpenAPIClient(srv.URL, "k").Lookup(context.Background(), "1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestVIESValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ms/DE/vat/129273398", r.URL.Path)
		w.Write([]byte(`{"isValid":true,"name":"SPEDITION GMBH","address":"Hauptstr. 1, Berlin"}`))
	}))
	defer srv.Close()

	c := registry.NewVIESClient(srv.URL)
	company, err := c.Validate(context.Background(), "DE", "DE129273398")
	require.NoError(t, err)
	assert.Equal(t, "SPEDITION GMBH", company.Name)
	assert.Equal(t, "DE129273398", company.VATNumber)
	assert.True(t, company.VATValid)
	assert.Equal(t, "DE", company.CountryCode)
}

func TestVIESValidate_InvalidIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"isValid":false}`))
	}))
	defer srv.Close()

	_, err := registry.NewVIESClient(srv.URL).Validate(context.Background(), "DE", "1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// VIES reports member-state outages in-band; they must not read as absence.
func TestVIESValidate_OutageIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"isValid":false,"userError":"MS_UNAVAILABLE"}`))
	}))
	defer srv.Close()

	_, err := registry.NewVIESClient(srv.URL).Validate(context.Background(), "DE", "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestCountyCode(t *testing.T) {
	assert.Equal(t, "RO-BH", registry.CountyCode("Bihor"))
	assert.Equal(t, "RO-B", registry.CountyCode("Municipiul Bucuresti"))
	assert.Equal(t, "RO-B", registry.CountyCode("Sector 3"))
	assert.Equal(t, "RO-SM", registry.CountyCode("SATU MARE"))
	assert.Empty(t, registry.CountyCode("Atlantis"))
}
