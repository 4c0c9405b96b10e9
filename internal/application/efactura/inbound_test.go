package efactura_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appefactura "github.com/bct-trans/efactura-api/internal/application/efactura"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/infrastructure/anaf"
)

func inboundXML(number, supplierVAT, payable string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cbc:ID>%s</cbc:ID>
  <cbc:IssueDate>2024-02-10</cbc:IssueDate>
  <cac:AccountingSupplierParty><cac:Party>
    <cac:PartyTaxScheme>
      <cbc:CompanyID>%s</cbc:CompanyID>
      <cac:TaxScheme><cbc:ID>VAT</cbc:ID></cac:TaxScheme>
    </cac:PartyTaxScheme>
    <cac:PartyLegalEntity><cbc:RegistrationName>FURNIZOR SRL</cbc:RegistrationName></cac:PartyLegalEntity>
  </cac:Party></cac:AccountingSupplierParty>
  <cac:LegalMonetaryTotal>
    <cbc:PayableAmount currencyID="RON">%s</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
</Invoice>`, number, supplierVAT, payable))
}

func archiveWith(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	require.NoError(t, err)
	_, err = f.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type inboundFixture struct {
	gw       *fakeGateway
	expenses *fakeExpenseRepo
	messages *fakeMessageRepo
	bus      *fakeBus
	store    *fakeStore
	proc     *appefactura.InboundProcessor
}

func newInboundFixture(gw *fakeGateway, expenses *fakeExpenseRepo) *inboundFixture {
	companies := &fakeCompanyRepo{companies: []*entity.Company{
		{ID: "sup-1", Name: "FURNIZOR SRL", VATNumber: "RO12345678", CountryCode: "RO"},
	}}
	resolver := appefactura.NewCompanyResolver(companies, &fakeDomestic{company: &entity.Company{
		Name: "FURNIZOR SRL", VATNumber: "RO12345678", CountryCode: "RO",
	}}, &fakeEU{}, testLogger())

	f := &inboundFixture{
		gw:       gw,
		expenses: expenses,
		messages: &fakeMessageRepo{},
		bus:      &fakeBus{},
		store:    newFakeStore(),
	}
	f.proc = appefactura.NewInboundProcessor(gw, resolver, expenses, f.messages, f.bus, f.store, testLogger())
	return f
}

func receivedInvoice(id, requestID string) anaf.InboundMessage {
	return anaf.InboundMessage{ID: id, RequestID: requestID, CIF: "18429502", Type: "FACTURA PRIMITA"}
}

// The reconciliation scenario: inbound "0099"/500.00/RO12345678 updates the
// existing expense "XX99" in place, and a replay is an informational no-op.
func TestInbound_ReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	archive := archiveWith(t, "UP123.xml", inboundXML("0099", "RO12345678", "500.00"))
	gw := &fakeGateway{download: map[string]*anaf.DownloadResult{
		"dl-1": {Ok: true, Zip: archive},
	}}
	expenses := &fakeExpenseRepo{expenses: []*entity.NationalExpense{{
		ID:       "exp-1",
		Number:   "XX99",
		Amount:   dec("500"),
		Supplier: &entity.Company{ID: "sup-1", VATNumber: "RO12345678"},
	}}}
	f := newInboundFixture(gw, expenses)

	f.proc.ProcessOne(ctx, receivedInvoice("dl-1", "UP123"))

	require.Equal(t, 1, expenses.reconciles)
	assert.Zero(t, expenses.creates, "no duplicate expense")
	exp := expenses.expenses[0]
	assert.Equal(t, "0099", exp.Number, "number updated from the inbound document")
	require.NotNil(t, exp.EFactura)
	assert.Equal(t, entity.StatusStored, exp.EFactura.Status)
	assert.Equal(t, "efactura/dl-1.zip", exp.EFactura.Attachment)
	assert.Equal(t, "exp-1", *exp.EFactura.ExpenseID)
	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, entity.MessageOK, f.messages.messages[0].Status)
	assert.Equal(t, 1, f.bus.published())

	// Replay of the same archive: already processed, nothing written twice.
	f.proc.ProcessOne(ctx, receivedInvoice("dl-1", "UP123"))

	assert.Equal(t, 1, expenses.reconciles)
	assert.Zero(t, expenses.creates)
	require.Len(t, f.messages.messages, 2)
	assert.Equal(t, entity.MessageOK, f.messages.messages[1].Status)
	assert.Contains(t, f.messages.messages[1].Content, "deja procesata")
	assert.Equal(t, 2, f.bus.published(), "every processed notification signals once")
}

// Without a local match a new expense is created from the parsed fields.
func TestInbound_CreatesExpense(t *testing.T) {
	archive := archiveWith(t, "UP124.xml", inboundXML("778", "RO12345678", "250.00"))
	gw := &fakeGateway{download: map[string]*anaf.DownloadResult{
		"dl-2": {Ok: true, Zip: archive},
	}}
	expenses := &fakeExpenseRepo{}
	f := newInboundFixture(gw, expenses)

	f.proc.ProcessOne(context.Background(), receivedInvoice("dl-2", "UP124"))

	require.Equal(t, 1, expenses.creates)
	exp := expenses.expenses[0]
	assert.Equal(t, "778", exp.Number)
	assert.True(t, exp.Amount.Equal(dec("250.00")))
	assert.Equal(t, "sup-1", exp.SupplierID, "linked to the locally known supplier")
	require.NotNil(t, exp.EFactura)
	assert.Equal(t, entity.StatusStored, exp.EFactura.Status)
	assert.Equal(t, "dl-2", exp.EFactura.DownloadID)
}

// A corrupt archive fails that message only, with a nok row and a signal.
func TestInbound_CorruptArchive(t *testing.T) {
	gw := &fakeGateway{download: map[string]*anaf.DownloadResult{
		"dl-bad": {Ok: true, Zip: []byte("not a zip")},
	}}
	expenses := &fakeExpenseRepo{}
	f := newInboundFixture(gw, expenses)

	f.proc.ProcessOne(context.Background(), receivedInvoice("dl-bad", "UPX"))

	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, entity.MessageNOK, f.messages.messages[0].Status)
	assert.Equal(t, 1, f.bus.published())
	assert.Zero(t, expenses.creates)
}

// One bad message never blocks the batch; non-invoice notifications are
// skipped without a Message row.
func TestInbound_FetchAndProcess(t *testing.T) {
	good := archiveWith(t, "UP125.xml", inboundXML("779", "RO12345678", "99.00"))
	gw := &fakeGateway{
		list: &anaf.ListResult{Ok: true, Messages: []anaf.InboundMessage{
			receivedInvoice("dl-good", "UP125"),
			receivedInvoice("dl-bad", "UPX"),
			{ID: "dl-err", RequestID: "UPE", Type: "ERORI FACTURA"},
		}},
		download: map[string]*anaf.DownloadResult{
			"dl-good": {Ok: true, Zip: good},
			"dl-bad":  {Ok: true, Zip: []byte("garbage")},
		},
	}
	expenses := &fakeExpenseRepo{}
	f := newInboundFixture(gw, expenses)

	report, err := f.proc.FetchAndProcess(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped)

	assert.Equal(t, 1, expenses.creates)
	assert.Len(t, f.messages.messages, 2, "one row per processed notification")
	assert.Equal(t, 2, f.bus.published())
}

func TestInbound_ListingFailure(t *testing.T) {
	gw := &fakeGateway{list: &anaf.ListResult{Ok: false, Errors: []string{"CIF invalid"}}}
	f := newInboundFixture(gw, &fakeExpenseRepo{})

	_, err := f.proc.FetchAndProcess(context.Background(), 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIF invalid")
}
