package efactura

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	dfefactura "github.com/bct-trans/efactura-api/internal/domain/efactura"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/domain/repository"
	"github.com/bct-trans/efactura-api/internal/infrastructure/anaf"
	"github.com/bct-trans/efactura-api/internal/infrastructure/ubl"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

// inboundInvoiceType marks notifications that reference a received invoice;
// other notification types (submission errors, own-invoice copies) do not go
// through reconciliation.
const inboundInvoiceType = "FACTURA PRIMITA"

// FetchReport summarizes one inbound fetch run.
type FetchReport struct {
	Listed    int `json:"listed"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// InboundProcessor downloads counterparty invoices from the gateway inbox
// and reconciles them against local expense records. Messages process
// independently: one bad archive never blocks the batch, and every processed
// notification ends in exactly one Message row and one bus signal.
type InboundProcessor struct {
	gateway  Gateway
	resolver *CompanyResolver
	expenses repository.ExpenseRepository
	messages repository.MessageRepository
	bus      Bus
	store    AttachmentStore
	log      *logger.Logger
}

func NewInboundProcessor(
	gateway Gateway,
	resolver *CompanyResolver,
	expenses repository.ExpenseRepository,
	messages repository.MessageRepository,
	bus Bus,
	store AttachmentStore,
	log *logger.Logger,
) *InboundProcessor {
	return &InboundProcessor{
		gateway:  gateway,
		resolver: resolver,
		expenses: expenses,
		messages: messages,
		bus:      bus,
		store:    store,
		log:      log,
	}
}

// FetchAndProcess lists the inbox for the trailing window and processes each
// received-invoice notification in its own goroutine. It returns once all
// messages finished; per-message failures are recorded, not returned.
func (p *InboundProcessor) FetchAndProcess(ctx context.Context, windowDays int) (*FetchReport, error) {
	list, err := p.gateway.ListInbound(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	if !list.Ok {
		return nil, fmt.Errorf("inbound listing failed: %s", strings.Join(list.Errors, "; "))
	}

	report := &FetchReport{Listed: len(list.Messages)}
	var wg sync.WaitGroup
	for _, msg := range list.Messages {
		if !strings.EqualFold(strings.TrimSpace(msg.Type), inboundInvoiceType) {
			report.Skipped++
			p.log.Debug().Str("id", msg.ID).Str("type", msg.Type).Msg("inbound message skipped")
			continue
		}
		report.Processed++
		wg.Add(1)
		go func(m anaf.InboundMessage) {
			defer wg.Done()
			p.ProcessOne(ctx, m)
		}(msg)
	}
	wg.Wait()
	return report, nil
}

// ProcessOne handles a single notification end to end and always records the
// outcome: one Message row, one bus signal, regardless of success.
func (p *InboundProcessor) ProcessOne(ctx context.Context, m anaf.InboundMessage) {
	status, content := p.handle(ctx, m)
	p.record(ctx, status, content)
	if status == entity.MessageNOK {
		p.log.Warn().Str("id", m.ID).Str("outcome", content).Msg("inbound message failed")
	} else {
		p.log.Info().Str("id", m.ID).Str("outcome", content).Msg("inbound message processed")
	}
}

// handle runs the download-parse-reconcile pipeline and maps every outcome,
// expected or not, onto a message status and text.
func (p *InboundProcessor) handle(ctx context.Context, m anaf.InboundMessage) (string, string) {
	dl, err := p.gateway.Download(ctx, m.ID)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: download: %v", m.ID, err)
	}
	if !dl.Ok {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: download: %s", m.ID, strings.Join(dl.Errors, "; "))
	}

	xmlDoc, err := ubl.ExtractXML(dl.Zip, m.RequestID)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: %v", m.ID, err)
	}
	parsed, err := ubl.Parse(xmlDoc)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: %v", m.ID, err)
	}
	if parsed.SupplierVAT == "" {
		return entity.MessageNOK, fmt.Sprintf("Factura %s de la %s: furnizor neidentificabil", parsed.Number, parsed.SupplierName)
	}

	supplier, err := p.resolver.ResolveOrCreate(ctx, "", parsed.SupplierVAT)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s de la %s (%s): %v", parsed.Number, parsed.SupplierName, parsed.SupplierVAT, err)
	}

	candidates, err := p.expenses.FindByAmount(ctx, parsed.Total)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: cautare cheltuieli: %v", parsed.Number, err)
	}

	if match := dfefactura.MatchExpense(parsed.Number, parsed.SupplierVAT, parsed.Total, candidates); match != nil {
		return p.reconcile(ctx, m, parsed, match, dl.Zip)
	}
	return p.createExpense(ctx, m, parsed, supplier, dl.Zip)
}

// reconcile attaches the archive to an existing expense and updates its
// number to the issuer's. A match that already carries a sub-record was
// processed before: idempotent no-op, reported as informational.
func (p *InboundProcessor) reconcile(ctx context.Context, m anaf.InboundMessage, parsed *ubl.InboundInvoice, match *entity.NationalExpense, archive []byte) (string, string) {
	if match.EFactura != nil {
		return entity.MessageOK, fmt.Sprintf("Factura %s de la %s: deja procesata", parsed.Number, parsed.SupplierName)
	}

	archivePath, err := p.store.Save(fmt.Sprintf("efactura/%s.zip", m.ID), archive)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: salvare arhiva: %v", parsed.Number, err)
	}
	p.savePDF(m.ID, parsed)

	expenseID := match.ID
	ef := &entity.EFactura{
		ID:         uuid.NewString(),
		ExpenseID:  &expenseID,
		Status:     entity.StatusStored,
		DownloadID: m.ID,
		Attachment: archivePath,
	}
	if err := p.expenses.Reconcile(ctx, match.ID, parsed.Number, ef); err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: reconciliere: %v", parsed.Number, err)
	}
	return entity.MessageOK, fmt.Sprintf("Factura %s de la %s: asociata cu cheltuiala %s", parsed.Number, parsed.SupplierName, match.Number)
}

// createExpense records a new expense from the parsed fields when nothing
// local matches.
func (p *InboundProcessor) createExpense(ctx context.Context, m anaf.InboundMessage, parsed *ubl.InboundInvoice, supplier *entity.Company, archive []byte) (string, string) {
	archivePath, err := p.store.Save(fmt.Sprintf("efactura/%s.zip", m.ID), archive)
	if err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: salvare arhiva: %v", parsed.Number, err)
	}
	pdfPath := p.savePDF(m.ID, parsed)

	expenseID := uuid.NewString()
	expense := &entity.NationalExpense{
		ID:          expenseID,
		Number:      parsed.Number,
		Date:        parsed.IssueDate,
		Amount:      parsed.Total,
		Description: fmt.Sprintf("Factura %s de la %s", parsed.Number, supplier.Name),
		SupplierID:  supplier.ID,
		Attachment:  pdfPath,
		EFactura: &entity.EFactura{
			ID:         uuid.NewString(),
			ExpenseID:  &expenseID,
			Status:     entity.StatusStored,
			DownloadID: m.ID,
			Attachment: archivePath,
		},
	}
	if err := p.expenses.Create(ctx, expense); err != nil {
		return entity.MessageNOK, fmt.Sprintf("Factura %s: creare cheltuiala: %v", parsed.Number, err)
	}
	return entity.MessageOK, fmt.Sprintf("Factura %s de la %s: cheltuiala noua inregistrata", parsed.Number, supplier.Name)
}

// savePDF stores the embedded human-readable document when the issuer
// included one. Failure here is logged, not fatal: the archive itself is
// already attached.
func (p *InboundProcessor) savePDF(messageID string, parsed *ubl.InboundInvoice) string {
	if len(parsed.PDF) == 0 {
		return ""
	}
	path, err := p.store.Save(fmt.Sprintf("efactura/%s.pdf", messageID), parsed.PDF)
	if err != nil {
		p.log.Warn().Err(err).Str("id", messageID).Msg("store embedded document")
		return ""
	}
	return path
}

func (p *InboundProcessor) record(ctx context.Context, status, content string) {
	msg := &entity.Message{ID: uuid.NewString(), Status: status, Content: content}
	if err := p.messages.Create(ctx, msg); err != nil {
		p.log.Error().Err(err).Msg("persist notification message")
	}
	p.bus.Publish()
}
