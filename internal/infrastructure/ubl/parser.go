package ubl

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// InboundInvoice is the subset of a counterparty UBL document the back
// office needs for reconciliation.
type InboundInvoice struct {
	Number       string
	IssueDate    time.Time
	SupplierName string
	SupplierVAT  string
	Total        decimal.Decimal // tax-inclusive payable amount
	PDF          []byte          // embedded representation, when present
}

// Parse extracts the reconciliation fields from an inbound UBL invoice or
// credit note. Inbound documents come from arbitrary issuer software, so
// lookups go by local element name and tolerate any namespace prefixing.
func Parse(doc []byte) (*InboundInvoice, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("ubl: parse document: %w", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("ubl: empty document")
	}

	inv := &InboundInvoice{
		Number: childText(root, "ID"),
	}
	if inv.Number == "" {
		return nil, fmt.Errorf("ubl: document has no ID")
	}

	if d := childText(root, "IssueDate"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("ubl: bad IssueDate %q: %w", d, err)
		}
		inv.IssueDate = t
	}

	if party := descend(root, "AccountingSupplierParty", "Party"); party != nil {
		inv.SupplierName = childText(descend(party, "PartyLegalEntity"), "RegistrationName")
		if inv.SupplierName == "" {
			inv.SupplierName = childText(descend(party, "PartyName"), "Name")
		}
		inv.SupplierVAT = childText(descend(party, "PartyTaxScheme"), "CompanyID")
		if inv.SupplierVAT == "" {
			inv.SupplierVAT = childText(descend(party, "PartyLegalEntity"), "CompanyID")
		}
	}

	if raw := childText(descend(root, "LegalMonetaryTotal"), "PayableAmount"); raw != "" {
		total, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("ubl: bad PayableAmount %q: %w", raw, err)
		}
		inv.Total = total
	}

	inv.PDF = embeddedPDF(root)
	return inv, nil
}

// embeddedPDF returns the first AdditionalDocumentReference attachment that
// decodes as base64; issuers commonly embed the human-readable PDF there.
func embeddedPDF(root *etree.Element) []byte {
	for _, ref := range children(root, "AdditionalDocumentReference") {
		obj := descend(ref, "Attachment", "EmbeddedDocumentBinaryObject")
		if obj == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(obj.Text()))
		if err != nil || len(data) == 0 {
			continue
		}
		return data
	}
	return nil
}

// ── prefix-agnostic traversal ─────────────────────────────────────────────────

func children(e *etree.Element, local string) []*etree.Element {
	if e == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}

func child(e *etree.Element, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

func descend(e *etree.Element, locals ...string) *etree.Element {
	for _, l := range locals {
		e = child(e, l)
		if e == nil {
			return nil
		}
	}
	return e
}

func childText(e *etree.Element, local string) string {
	c := child(e, local)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}
