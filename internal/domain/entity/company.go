package entity

import "time"

// Company is a counterparty (client or supplier). The pair (CountryCode,
// VATNumber) acts as a natural key for lookup and dedup; it is not enforced
// by the database because legacy rows predate the rule.
type Company struct {
	ID                 string
	Name               string
	RegistrationNumber string // trade-registry number (J05/..../2004); empty for natural persons
	VATNumber          string
	VATValid           bool   // VAT payer flag as reported by the registry
	CountryCode        string // ISO 3166-1 alpha-2
	County             string // county code, domestic companies only
	Address            string
	BankAccount        string // local-currency IBAN
	BankAccountEUR     string
	BankName           string
	ShareCapital       string
	Phone              string
	Email              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NaturalPerson reports whether the counterparty is a private individual
// (no trade-registry number and no VAT number).
func (c *Company) NaturalPerson() bool {
	return c.RegistrationNumber == "" && c.VATNumber == ""
}
