// Package ubl builds and parses UBL 2.1 invoice documents for the Romanian
// CIUS-RO profile. Emission streams encoder tokens; parsing of inbound
// documents uses etree path queries because counterparty documents are
// open-ended UBL instances.
package ubl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/pkg/money"
)

// Official UBL 2.1 namespaces.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	// CustomizationID locked to the Romanian CIUS-RO profile.
	customizationID = "urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1"

	// 380 = commercial invoice.
	invoiceTypeCode = "380"

	// Amounts are always expressed in RON, converting through the stored
	// snapshot rate when the nominal currency differs.
	documentCurrency = "RON"

	// Invoice ID: fixed prefix + number zero-padded to 7 digits.
	idPrefix = "BCT"
	idWidth  = 7

	// Placeholder legal-entity ID for natural persons.
	naturalPersonCompanyID = "0000000000000"
)

// SupplierParty is the operator's own registered legal entity, emitted as
// AccountingSupplierParty on every outbound document.
type SupplierParty struct {
	Name               string
	VATNumber          string
	RegistrationNumber string
	StreetName         string
	CityName           string
	CountySubentity    string
	CountryCode        string
	IBAN               string
}

// Operator is the fixed supplier party.
var Operator = SupplierParty{
	Name:               "BCT TRANS SRL",
	VATNumber:          "RO18429502",
	RegistrationNumber: "J05/522/2006",
	StreetName:         "Str. Depoului 12",
	CityName:           "Oradea",
	CountySubentity:    "RO-BH",
	CountryCode:        "RO",
	IBAN:               "RO66BTRL05001202K87512XX",
}

// Builder constructs the UBL Invoice document from the invoice aggregate.
type Builder struct {
	supplier SupplierParty
}

// NewBuilder creates the builder with the operator as supplier.
func NewBuilder() *Builder {
	return &Builder{supplier: Operator}
}

// Build renders the UBL 2.1 Invoice. When the invoice links credit notes,
// one line per credit note is emitted and any order lines are ignored; the
// two sources are mutually exclusive by construction and credit notes win
// deterministically if data violates that.
func (b *Builder) Build(inv *entity.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("ubl: nil invoice")
	}
	if inv.Client == nil {
		return nil, fmt.Errorf("ubl: invoice %s has no client loaded", inv.ID)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	// The root namespace travels as an explicit attribute: setting Name.Space
	// as well would make the encoder emit a duplicate xmlns.
	root := xml.StartElement{
		Name: xml.Name{Local: "Invoice"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: NsInvoice},
			{Name: xml.Name{Local: "xmlns:cac"}, Value: NsCac},
			{Name: xml.Name{Local: "xmlns:cbc"}, Value: NsCbc},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	writeCbc(enc, "CustomizationID", customizationID)
	writeCbc(enc, "ID", b.documentID(inv))
	writeCbc(enc, "IssueDate", inv.Date.Format("2006-01-02"))
	writeCbc(enc, "DueDate", inv.Date.AddDate(0, 0, 30).Format("2006-01-02"))
	writeCbc(enc, "InvoiceTypeCode", invoiceTypeCode)
	writeCbc(enc, "DocumentCurrencyCode", documentCurrency)

	b.writeSupplierParty(enc)
	b.writeCustomerParty(enc, inv.Client)
	b.writePaymentMeans(enc)

	net := inv.Amount
	vat := taxAmount(net, inv.VATRate)
	b.writeTaxTotal(enc, net, vat, inv.VATRate)
	b.writeLegalMonetaryTotal(enc, net, vat)

	for i, line := range invoiceLines(inv) {
		b.writeInvoiceLine(enc, i+1, line, inv.VATRate)
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// documentID pads the numeric part of the invoice number to 7 digits.
func (b *Builder) documentID(inv *entity.Invoice) string {
	n, err := strconv.Atoi(digits(inv.Number))
	if err != nil {
		return idPrefix + inv.Number
	}
	return fmt.Sprintf("%s%0*d", idPrefix, idWidth, n)
}

// line is the internal shape a document line is rendered from, whichever
// source it came from.
type line struct {
	name     string
	quantity decimal.Decimal
	price    decimal.Decimal
	total    decimal.Decimal
}

// invoiceLines maps credit notes (preferred) or order lines to document
// lines. Credit-note amounts convert to RON through the snapshot rate when
// one is stored.
func invoiceLines(inv *entity.Invoice) []line {
	if len(inv.CreditNotes) > 0 {
		lines := make([]line, 0, len(inv.CreditNotes))
		for _, cn := range inv.CreditNotes {
			amount := cn.Amount
			if !inv.BNR.IsZero() {
				amount = money.Mul(amount, inv.BNR)
			}
			amount = amount.Round(2)
			lines = append(lines, line{
				name:     "Transport cf. contract " + cn.Number,
				quantity: decimal.NewFromInt(1),
				price:    amount,
				total:    amount,
			})
		}
		return lines
	}
	lines := make([]line, 0, len(inv.Orders))
	for _, o := range inv.Orders {
		lines = append(lines, line{
			name:     o.Description,
			quantity: o.Quantity,
			price:    o.Amount,
			total:    o.Total,
		})
	}
	return lines
}

func taxAmount(net, rate decimal.Decimal) decimal.Decimal {
	return money.Div(money.Mul(net, rate), decimal.NewFromInt(100)).Round(2)
}

func (b *Builder) writeSupplierParty(enc *xml.Encoder) {
	startCac(enc, "AccountingSupplierParty")
	startCac(enc, "Party")

	startCac(enc, "PostalAddress")
	writeCbc(enc, "StreetName", b.supplier.StreetName)
	writeCbc(enc, "CityName", b.supplier.CityName)
	writeCbc(enc, "CountrySubentity", b.supplier.CountySubentity)
	startCac(enc, "Country")
	writeCbc(enc, "IdentificationCode", b.supplier.CountryCode)
	endCac(enc, "Country")
	endCac(enc, "PostalAddress")

	startCac(enc, "PartyTaxScheme")
	writeCbc(enc, "CompanyID", b.supplier.VATNumber)
	startCac(enc, "TaxScheme")
	writeCbc(enc, "ID", "VAT")
	endCac(enc, "TaxScheme")
	endCac(enc, "PartyTaxScheme")

	startCac(enc, "PartyLegalEntity")
	writeCbc(enc, "RegistrationName", b.supplier.Name)
	writeCbc(enc, "CompanyID", b.supplier.RegistrationNumber)
	endCac(enc, "PartyLegalEntity")

	endCac(enc, "Party")
	endCac(enc, "AccountingSupplierParty")
}

// writeCustomerParty applies the party-tax-scheme rules: natural persons get
// a placeholder legal-entity ID and no tax scheme; companies with valid VAT
// get a country-prefixed VAT CompanyID plus a tax scheme; companies without
// valid VAT carry the bare registration number only.
func (b *Builder) writeCustomerParty(enc *xml.Encoder, c *entity.Company) {
	startCac(enc, "AccountingCustomerParty")
	startCac(enc, "Party")

	startCac(enc, "PostalAddress")
	writeCbc(enc, "StreetName", c.Address)
	if c.County != "" {
		writeCbc(enc, "CountrySubentity", c.County)
	}
	startCac(enc, "Country")
	writeCbc(enc, "IdentificationCode", c.CountryCode)
	endCac(enc, "Country")
	endCac(enc, "PostalAddress")

	if !c.NaturalPerson() && c.VATValid {
		startCac(enc, "PartyTaxScheme")
		writeCbc(enc, "CompanyID", prefixedVAT(c))
		startCac(enc, "TaxScheme")
		writeCbc(enc, "ID", "VAT")
		endCac(enc, "TaxScheme")
		endCac(enc, "PartyTaxScheme")
	}

	startCac(enc, "PartyLegalEntity")
	writeCbc(enc, "RegistrationName", c.Name)
	switch {
	case c.NaturalPerson():
		writeCbc(enc, "CompanyID", naturalPersonCompanyID)
	case c.VATValid:
		writeCbc(enc, "CompanyID", c.RegistrationNumber)
	default:
		writeCbc(enc, "CompanyID", c.RegistrationNumber)
	}
	endCac(enc, "PartyLegalEntity")

	endCac(enc, "Party")
	endCac(enc, "AccountingCustomerParty")
}

func (b *Builder) writePaymentMeans(enc *xml.Encoder) {
	startCac(enc, "PaymentMeans")
	writeCbc(enc, "PaymentMeansCode", "30") // credit transfer
	startCac(enc, "PayeeFinancialAccount")
	writeCbc(enc, "ID", b.supplier.IBAN)
	endCac(enc, "PayeeFinancialAccount")
	endCac(enc, "PaymentMeans")
}

func (b *Builder) writeTaxTotal(enc *xml.Encoder, net, vat, rate decimal.Decimal) {
	startCac(enc, "TaxTotal")
	writeCbcAmount(enc, "TaxAmount", money.FormatAmount(vat))
	startCac(enc, "TaxSubtotal")
	writeCbcAmount(enc, "TaxableAmount", money.FormatAmount(net))
	writeCbcAmount(enc, "TaxAmount", money.FormatAmount(vat))
	startCac(enc, "TaxCategory")
	writeCbc(enc, "ID", "S") // standard rate
	writeCbc(enc, "Percent", rate.String())
	startCac(enc, "TaxScheme")
	writeCbc(enc, "ID", "VAT")
	endCac(enc, "TaxScheme")
	endCac(enc, "TaxCategory")
	endCac(enc, "TaxSubtotal")
	endCac(enc, "TaxTotal")
}

func (b *Builder) writeLegalMonetaryTotal(enc *xml.Encoder, net, vat decimal.Decimal) {
	gross := money.Add(net, vat)
	startCac(enc, "LegalMonetaryTotal")
	writeCbcAmount(enc, "LineExtensionAmount", money.FormatAmount(net))
	writeCbcAmount(enc, "TaxExclusiveAmount", money.FormatAmount(net))
	writeCbcAmount(enc, "TaxInclusiveAmount", money.FormatAmount(gross))
	writeCbcAmount(enc, "PayableAmount", money.FormatAmount(gross))
	endCac(enc, "LegalMonetaryTotal")
}

func (b *Builder) writeInvoiceLine(enc *xml.Encoder, num int, l line, rate decimal.Decimal) {
	startCac(enc, "InvoiceLine")
	writeCbc(enc, "ID", strconv.Itoa(num))
	writeCbcWithAttr(enc, "InvoicedQuantity", l.quantity.String(), "unitCode", "H87")
	writeCbcAmount(enc, "LineExtensionAmount", money.FormatAmount(l.total))

	startCac(enc, "Item")
	writeCbc(enc, "Name", l.name)
	startCac(enc, "ClassifiedTaxCategory")
	writeCbc(enc, "ID", "S")
	writeCbc(enc, "Percent", rate.String())
	startCac(enc, "TaxScheme")
	writeCbc(enc, "ID", "VAT")
	endCac(enc, "TaxScheme")
	endCac(enc, "ClassifiedTaxCategory")
	endCac(enc, "Item")

	startCac(enc, "Price")
	writeCbcAmount(enc, "PriceAmount", money.FormatAmount(l.price))
	endCac(enc, "Price")

	endCac(enc, "InvoiceLine")
}

// ── token helpers ─────────────────────────────────────────────────────────────

func startCac(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCac, Local: local}})
}

func endCac(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCac, Local: local}})
}

func writeCbc(enc *xml.Encoder, local, value string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Space: NsCbc, Local: local}})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

func writeCbcAmount(enc *xml.Encoder, local, value string) {
	writeCbcWithAttr(enc, local, value, "currencyID", documentCurrency)
}

func writeCbcWithAttr(enc *xml.Encoder, local, value, attrLocal, attrValue string) {
	_ = enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Space: NsCbc, Local: local},
		Attr: []xml.Attr{{Name: xml.Name{Local: attrLocal}, Value: attrValue}},
	})
	_ = enc.EncodeToken(xml.CharData(value))
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Space: NsCbc, Local: local}})
}

// prefixedVAT ensures the VAT CompanyID carries the country prefix.
func prefixedVAT(c *entity.Company) string {
	v := strings.TrimSpace(c.VATNumber)
	if v == "" {
		return v
	}
	if strings.HasPrefix(strings.ToUpper(v), c.CountryCode) {
		return strings.ToUpper(v)
	}
	return c.CountryCode + v
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
