// Package efactura holds the pure domain logic of the electronic-invoicing
// protocol: the state-transition table and the expense reconciliation
// heuristic. No I/O here, so everything is testable with exact vectors.
package efactura

import (
	"errors"
	"fmt"
	"time"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
)

// Verb is one of the two external triggers. Advance is the write path
// (validate, upload), Refresh the read path (poll status, download result).
type Verb string

const (
	VerbAdvance Verb = "advance"
	VerbRefresh Verb = "refresh"
)

// Call identifies the gateway operation a state/verb pair maps to.
type Call int

const (
	CallNone Call = iota // terminal state, report "already stored"
	CallValidate
	CallUpload
	CallCheckStatus
	CallDownload
)

// ErrVerbNotAllowed is returned for state/verb pairs the protocol does not
// define (e.g. advancing an invoice that is waiting on the authority).
var ErrVerbNotAllowed = errors.New("verb not allowed in current state")

// NextCall resolves the gateway operation for a status/verb pair. The state
// alone determines which external verb fires; callers must not pick calls by
// inspecting upload/download identifiers.
func NextCall(s entity.Status, v Verb) (Call, error) {
	switch s {
	case entity.StatusNew, "":
		if v == VerbAdvance {
			return CallValidate, nil
		}
	case entity.StatusValidated:
		if v == VerbAdvance {
			return CallUpload, nil
		}
	case entity.StatusUploaded:
		if v == VerbRefresh {
			return CallCheckStatus, nil
		}
	case entity.StatusValid:
		if v == VerbRefresh {
			return CallDownload, nil
		}
	case entity.StatusStored:
		return CallNone, nil
	default:
		return CallNone, fmt.Errorf("unknown e-Factura status %q", s)
	}
	return CallNone, fmt.Errorf("%w: %s in %q", ErrVerbNotAllowed, v, s)
}

// NextStatus is the success target of a call. CallNone keeps the state.
func NextStatus(c Call, current entity.Status) entity.Status {
	switch c {
	case CallValidate:
		return entity.StatusValidated
	case CallUpload:
		return entity.StatusUploaded
	case CallCheckStatus:
		return entity.StatusValid
	case CallDownload:
		return entity.StatusStored
	default:
		return current
	}
}

// Cutover is the date from which domestic invoices enter the protocol.
var Cutover = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Eligible reports whether an invoice participates in e-Factura: domestic
// client, issued on or after the cutover date.
func Eligible(inv *entity.Invoice) bool {
	if inv == nil || inv.Client == nil {
		return false
	}
	return inv.Client.CountryCode == "RO" && !inv.Date.Before(Cutover)
}
