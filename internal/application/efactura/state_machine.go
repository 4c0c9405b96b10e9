package efactura

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bct-trans/efactura-api/internal/domain"
	dfefactura "github.com/bct-trans/efactura-api/internal/domain/efactura"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

// TransitionResult is what the UI shows after an advance/refresh trigger.
// Ok false with Errors set means the remote side rejected; the invoice
// remains in its prior state for correction and retry.
type TransitionResult struct {
	InvoiceID string        `json:"invoice_id"`
	Status    entity.Status `json:"status"`
	Ok        bool          `json:"ok"`
	Message   string        `json:"message,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// StateMachine drives an invoice through the outbound e-Factura protocol.
// The stored status alone decides the next gateway call; persisted state
// mutates only on a successful remote outcome, as one atomic sub-record
// write per transition.
type StateMachine struct {
	invoices repository.InvoiceRepository
	gateway  Gateway
	rates    RateSource
	builder  DocumentBuilder
	store    AttachmentStore
	log      *logger.Logger
}

func NewStateMachine(
	invoices repository.InvoiceRepository,
	gateway Gateway,
	rates RateSource,
	builder DocumentBuilder,
	store AttachmentStore,
	log *logger.Logger,
) *StateMachine {
	return &StateMachine{
		invoices: invoices,
		gateway:  gateway,
		rates:    rates,
		builder:  builder,
		store:    store,
		log:      log,
	}
}

// Advance runs the write path: validate when new, upload when validated.
func (m *StateMachine) Advance(ctx context.Context, invoiceID string) (*TransitionResult, error) {
	return m.transition(ctx, invoiceID, dfefactura.VerbAdvance)
}

// Refresh runs the read path: poll status when uploaded, download when valid.
func (m *StateMachine) Refresh(ctx context.Context, invoiceID string) (*TransitionResult, error) {
	return m.transition(ctx, invoiceID, dfefactura.VerbRefresh)
}

// Status reports the stored protocol state without touching the gateway.
func (m *StateMachine) Status(ctx context.Context, invoiceID string) (*TransitionResult, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrNotFound)
	}
	return &TransitionResult{InvoiceID: inv.ID, Status: currentStatus(inv), Ok: true}, nil
}

func (m *StateMachine) transition(ctx context.Context, invoiceID string, verb dfefactura.Verb) (*TransitionResult, error) {
	inv, err := m.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrNotFound)
	}

	status := currentStatus(inv)
	call, err := dfefactura.NextCall(status, verb)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, err)
	}

	m.log.Debug().
		Str("invoice_id", invoiceID).
		Str("status", string(status)).
		Str("verb", string(verb)).
		Msg("e-Factura transition")

	switch call {
	case dfefactura.CallNone:
		return &TransitionResult{InvoiceID: inv.ID, Status: status, Ok: true, Message: "already stored"}, nil
	case dfefactura.CallValidate:
		return m.validate(ctx, inv)
	case dfefactura.CallUpload:
		return m.upload(ctx, inv)
	case dfefactura.CallCheckStatus:
		return m.checkStatus(ctx, inv)
	case dfefactura.CallDownload:
		return m.download(ctx, inv)
	}
	return nil, fmt.Errorf("invoice %s: unmapped call %d", invoiceID, call)
}

// validate builds the XML, runs it through the remote schema validator and,
// on acceptance, stores it on the sub-record with status validated.
func (m *StateMachine) validate(ctx context.Context, inv *entity.Invoice) (*TransitionResult, error) {
	if !dfefactura.Eligible(inv) {
		return nil, fmt.Errorf("invoice %s: %w", inv.ID, domain.ErrNotEligible)
	}
	if err := m.ensureRate(ctx, inv); err != nil {
		return nil, err
	}

	xml, err := m.builder.Build(inv)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: build document: %w", inv.ID, err)
	}

	res, err := m.gateway.Validate(ctx, xml)
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return m.rejected(inv, "validation rejected", res.Errors), nil
	}

	ef := m.subRecord(inv)
	ef.Status = entity.StatusValidated
	ef.XML = string(xml)
	if err := m.invoices.SaveEFactura(ctx, ef); err != nil {
		return nil, err
	}
	return &TransitionResult{InvoiceID: inv.ID, Status: entity.StatusValidated, Ok: true}, nil
}

// upload submits the validated payload. The XML is cleared in the same write
// that records the upload index; it has served its purpose.
func (m *StateMachine) upload(ctx context.Context, inv *entity.Invoice) (*TransitionResult, error) {
	if inv.EFactura == nil || inv.EFactura.XML == "" {
		return nil, fmt.Errorf("invoice %s: no validated payload to upload: %w", inv.ID, domain.ErrConflict)
	}

	res, err := m.gateway.Upload(ctx, []byte(inv.EFactura.XML))
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return m.rejected(inv, "upload rejected", res.Errors), nil
	}

	ef := m.subRecord(inv)
	ef.Status = entity.StatusUploaded
	ef.UploadID = res.UploadID
	ef.XML = ""
	if err := m.invoices.SaveEFactura(ctx, ef); err != nil {
		return nil, err
	}
	return &TransitionResult{InvoiceID: inv.ID, Status: entity.StatusUploaded, Ok: true}, nil
}

func (m *StateMachine) checkStatus(ctx context.Context, inv *entity.Invoice) (*TransitionResult, error) {
	res, err := m.gateway.CheckStatus(ctx, inv.EFactura.UploadID)
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		msg := "still processing"
		if res.Stare != "in prelucrare" {
			msg = fmt.Sprintf("processing failed (%d errors)", len(res.Errors))
		}
		return m.rejected(inv, msg, res.Errors), nil
	}

	ef := m.subRecord(inv)
	ef.Status = entity.StatusValid
	ef.DownloadID = res.DownloadID
	if err := m.invoices.SaveEFactura(ctx, ef); err != nil {
		return nil, err
	}
	return &TransitionResult{InvoiceID: inv.ID, Status: entity.StatusValid, Ok: true}, nil
}

func (m *StateMachine) download(ctx context.Context, inv *entity.Invoice) (*TransitionResult, error) {
	res, err := m.gateway.Download(ctx, inv.EFactura.DownloadID)
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return m.rejected(inv, "download failed", res.Errors), nil
	}

	path, err := m.store.Save(fmt.Sprintf("efactura/%s.zip", inv.EFactura.DownloadID), res.Zip)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: store archive: %w", inv.ID, err)
	}

	ef := m.subRecord(inv)
	ef.Status = entity.StatusStored
	ef.Attachment = path
	if err := m.invoices.SaveEFactura(ctx, ef); err != nil {
		return nil, err
	}
	return &TransitionResult{InvoiceID: inv.ID, Status: entity.StatusStored, Ok: true}, nil
}

// ensureRate snapshots the conversion rate when the invoice aggregates
// credit notes in a foreign currency and no rate is stored yet. Failure is
// surfaced: the invoice cannot enter the protocol with unresolved conversion.
func (m *StateMachine) ensureRate(ctx context.Context, inv *entity.Invoice) error {
	if !inv.BNR.IsZero() {
		return nil
	}
	currency := foreignCurrency(inv)
	if currency == "" {
		return nil
	}

	rate, err := m.rates.GetRate(ctx, inv.Date, currency)
	if err != nil {
		return fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	if err := m.invoices.SetExchangeRate(ctx, inv.ID, rate.Rate, rate.AsOf); err != nil {
		return err
	}
	inv.BNR = rate.Rate
	inv.BNRAt = &rate.AsOf
	return nil
}

func foreignCurrency(inv *entity.Invoice) string {
	for _, cn := range inv.CreditNotes {
		c := strings.ToUpper(cn.Currency)
		if c != "" && c != "RON" {
			return c
		}
	}
	return ""
}

// rejected reports a remote rejection without mutating persisted state.
func (m *StateMachine) rejected(inv *entity.Invoice, msg string, errs []string) *TransitionResult {
	m.log.Warn().
		Str("invoice_id", inv.ID).
		Str("status", string(currentStatus(inv))).
		Strs("errors", errs).
		Msg(msg)
	return &TransitionResult{
		InvoiceID: inv.ID,
		Status:    currentStatus(inv),
		Ok:        false,
		Message:   msg,
		Errors:    errs,
	}
}

// subRecord returns the sub-record to write, carrying over identifiers and
// creating it on first use.
func (m *StateMachine) subRecord(inv *entity.Invoice) *entity.EFactura {
	if inv.EFactura != nil {
		ef := *inv.EFactura
		return &ef
	}
	id := inv.ID
	return &entity.EFactura{
		ID:        uuid.NewString(),
		InvoiceID: &id,
		Status:    entity.StatusNew,
	}
}

func currentStatus(inv *entity.Invoice) entity.Status {
	if inv.EFactura == nil || inv.EFactura.Status == "" {
		return entity.StatusNew
	}
	return inv.EFactura.Status
}
