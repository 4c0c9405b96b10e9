// Package efactura contains the application orchestrators of the
// electronic-invoicing protocol: the outbound state machine, the company
// resolver and the inbound message processor. All external collaborators
// enter through the ports below so the orchestrators are testable with
// in-memory fakes.
package efactura

import (
	"context"
	"time"

	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/infrastructure/anaf"
	"github.com/bct-trans/efactura-api/internal/infrastructure/exchange"
)

// Gateway is the tax-authority web-service port. Expected remote rejections
// travel in the result structs; Go errors mean transport failure.
type Gateway interface {
	Validate(ctx context.Context, xml []byte) (*anaf.ValidateResult, error)
	Upload(ctx context.Context, xml []byte) (*anaf.UploadResult, error)
	CheckStatus(ctx context.Context, uploadID string) (*anaf.StatusResult, error)
	Download(ctx context.Context, downloadID string) (*anaf.DownloadResult, error)
	ListInbound(ctx context.Context, windowDays int) (*anaf.ListResult, error)
}

// RateSource resolves historical conversion rates into RON.
type RateSource interface {
	GetRate(ctx context.Context, date time.Time, currency string) (*exchange.Rate, error)
}

// DocumentBuilder renders the UBL document for an invoice aggregate.
type DocumentBuilder interface {
	Build(inv *entity.Invoice) ([]byte, error)
}

// DomesticRegistry looks a domestic company up by tax ID.
// domain.ErrNotFound means genuine absence; other errors mean the registry
// could not answer.
type DomesticRegistry interface {
	Lookup(ctx context.Context, vat string) (*entity.Company, error)
}

// EURegistry validates a non-domestic EU VAT number, same error contract.
type EURegistry interface {
	Validate(ctx context.Context, countryCode, vatNumber string) (*entity.Company, error)
}

// Bus publishes the no-payload "messages" signal.
type Bus interface {
	Publish()
}

// AttachmentStore persists binary attachments and returns the stored path.
type AttachmentStore interface {
	Save(name string, data []byte) (string, error)
}
