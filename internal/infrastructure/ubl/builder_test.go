package ubl_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/infrastructure/ubl"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func roClient() *entity.Company {
	return &entity.Company{
		ID:                 "c-1",
		Name:               "EXPEDITII SRL",
		RegistrationNumber: "J12/100/2010",
		VATNumber:          "RO12345678",
		VATValid:           true,
		CountryCode:        "RO",
		County:             "RO-CJ",
		Address:            "Str. Garii 4, Cluj-Napoca",
	}
}

func baseInvoice() *entity.Invoice {
	return &entity.Invoice{
		ID:       "inv-1",
		Number:   "123",
		Date:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:   dec("1000"),
		Currency: "RON",
		VATRate:  dec("19"),
		Client:   roClient(),
		Orders: []*entity.Order{{
			Description: "Transport",
			Quantity:    dec("1"),
			Amount:      dec("1000"),
			Total:       dec("1000"),
		}},
	}
}

func TestBuild_SingleOrderInvoice(t *testing.T) {
	out, err := ubl.NewBuilder().Build(baseInvoice())
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, ">BCT0000123<")
	assert.Contains(t, doc, ">urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1<")
	assert.Contains(t, doc, ">380<")
	assert.Contains(t, doc, ">2024-03-05<")
	assert.Contains(t, doc, ">190.00<")
	assert.Contains(t, doc, ">1190.00<")
	assert.Contains(t, doc, ">Transport<")
	assert.Contains(t, doc, `currencyID="RON"`)

	// The document must read back with the same figures.
	parsed, err := ubl.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "BCT0000123", parsed.Number)
	assert.Equal(t, "BCT TRANS SRL", parsed.SupplierName)
	assert.Equal(t, ubl.Operator.VATNumber, parsed.SupplierVAT)
	assert.True(t, parsed.Total.Equal(dec("1190.00")))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), parsed.IssueDate)
}

// Invoice numbers with legacy prefixes keep their digits for the padded ID.
func TestBuild_DocumentIDPadding(t *testing.T) {
	inv := baseInvoice()
	inv.Number = "FV-2024-45"
	out, err := ubl.NewBuilder().Build(inv)
	require.NoError(t, err)
	assert.Contains(t, string(out), ">BCT0202445<")
}

// Credit-note lines take precedence over order lines and convert through the
// snapshot rate.
func TestBuild_CreditNoteLines(t *testing.T) {
	inv := baseInvoice()
	inv.BNR = dec("4.9752")
	inv.CreditNotes = []*entity.CreditNote{
		{Number: "CN-77", Amount: dec("200"), Currency: "EUR"},
	}

	out, err := ubl.NewBuilder().Build(inv)
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, ">Transport cf. contract CN-77<")
	// 200 * 4.9752 = 995.04
	assert.Contains(t, doc, ">995.04<")
	assert.NotContains(t, doc, ">Transport<", "order lines must be ignored")
	assert.Equal(t, 1, strings.Count(doc, "<InvoiceLine"))
}

func TestBuild_CreditNoteWithoutRate(t *testing.T) {
	inv := baseInvoice()
	inv.Orders = nil
	inv.CreditNotes = []*entity.CreditNote{
		{Number: "CN-1", Amount: dec("350.50"), Currency: "RON"},
	}

	out, err := ubl.NewBuilder().Build(inv)
	require.NoError(t, err)
	assert.Contains(t, string(out), ">350.50<")
}

func TestBuild_CustomerTaxSchemeRules(t *testing.T) {
	t.Run("valid VAT gets prefixed CompanyID and tax scheme", func(t *testing.T) {
		inv := baseInvoice()
		inv.Client.VATNumber = "12345678" // stored without prefix
		out, err := ubl.NewBuilder().Build(inv)
		require.NoError(t, err)
		assert.Contains(t, string(out), ">RO12345678<")
		assert.Equal(t, 2, strings.Count(string(out), "<PartyTaxScheme"),
			"supplier and customer both carry a tax scheme")
	})

	t.Run("invalid VAT drops the tax scheme", func(t *testing.T) {
		inv := baseInvoice()
		inv.Client.VATValid = false
		out, err := ubl.NewBuilder().Build(inv)
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(out), "<PartyTaxScheme"),
			"only the supplier carries a tax scheme")
		assert.Contains(t, string(out), ">J12/100/2010<")
	})

	t.Run("natural person gets placeholder ID", func(t *testing.T) {
		inv := baseInvoice()
		inv.Client = &entity.Company{
			Name:        "Ion Popescu",
			CountryCode: "RO",
			Address:     "Str. Morii 2",
		}
		out, err := ubl.NewBuilder().Build(inv)
		require.NoError(t, err)
		assert.Contains(t, string(out), ">0000000000000<")
		assert.Equal(t, 1, strings.Count(string(out), "<PartyTaxScheme"))
	})
}

func TestBuild_NilGuards(t *testing.T) {
	_, err := ubl.NewBuilder().Build(nil)
	require.Error(t, err)

	inv := baseInvoice()
	inv.Client = nil
	_, err = ubl.NewBuilder().Build(inv)
	require.Error(t, err)
}
