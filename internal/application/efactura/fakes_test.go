package efactura_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bct-trans/efactura-api/internal/domain"
	"github.com/bct-trans/efactura-api/internal/domain/entity"
	"github.com/bct-trans/efactura-api/internal/infrastructure/anaf"
	"github.com/bct-trans/efactura-api/internal/infrastructure/exchange"
	"github.com/bct-trans/efactura-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "test", Level: "error"})
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── invoice repository ────────────────────────────────────────────────────────

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*entity.Invoice
	saves    int
	rateSets int
}

func newFakeInvoiceRepo(invs ...*entity.Invoice) *fakeInvoiceRepo {
	r := &fakeInvoiceRepo{invoices: make(map[string]*entity.Invoice)}
	for _, inv := range invs {
		r.invoices[inv.ID] = inv
	}
	return r
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) SaveEFactura(_ context.Context, ef *entity.EFactura) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	cp := *ef
	r.invoices[*ef.InvoiceID].EFactura = &cp
	return nil
}

func (r *fakeInvoiceRepo) SetExchangeRate(_ context.Context, invoiceID string, rate decimal.Decimal, asOf time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateSets++
	inv := r.invoices[invoiceID]
	inv.BNR = rate
	inv.BNRAt = &asOf
	return nil
}

// ── gateway ───────────────────────────────────────────────────────────────────

type fakeGateway struct {
	mu sync.Mutex

	validate *anaf.ValidateResult
	upload   *anaf.UploadResult
	status   *anaf.StatusResult
	download map[string]*anaf.DownloadResult
	list     *anaf.ListResult

	validateCalls int
	uploadedXML   []byte
	statusCalls   int
	downloadCalls int
}

func (g *fakeGateway) Validate(_ context.Context, xml []byte) (*anaf.ValidateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validateCalls++
	return g.validate, nil
}

func (g *fakeGateway) Upload(_ context.Context, xml []byte) (*anaf.UploadResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uploadedXML = xml
	return g.upload, nil
}

func (g *fakeGateway) CheckStatus(_ context.Context, uploadID string) (*anaf.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	return g.status, nil
}

func (g *fakeGateway) Download(_ context.Context, downloadID string) (*anaf.DownloadResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.downloadCalls++
	if res, ok := g.download[downloadID]; ok {
		return res, nil
	}
	return &anaf.DownloadResult{Ok: false, Errors: []string{"unknown id"}}, nil
}

func (g *fakeGateway) ListInbound(_ context.Context, windowDays int) (*anaf.ListResult, error) {
	return g.list, nil
}

// ── rates ─────────────────────────────────────────────────────────────────────

type fakeRates struct {
	rate  *exchange.Rate
	err   error
	calls int
}

func (r *fakeRates) GetRate(_ context.Context, date time.Time, currency string) (*exchange.Rate, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.rate, nil
}

// ── attachment store ──────────────────────────────────────────────────────────

type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{files: make(map[string][]byte)} }

func (s *fakeStore) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return name, nil
}

// ── company repository and registries ─────────────────────────────────────────

type fakeCompanyRepo struct {
	mu        sync.Mutex
	companies []*entity.Company
	creates   int
}

func (r *fakeCompanyRepo) FindByVAT(_ context.Context, vat string) (*entity.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.companies {
		if digitsOf(c.VATNumber) == digitsOf(vat) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCompanyRepo) Create(_ context.Context, c *entity.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.companies {
		if digitsOf(existing.VATNumber) == digitsOf(c.VATNumber) {
			return fmt.Errorf("company: %w", domain.ErrDuplicate)
		}
	}
	r.creates++
	r.companies = append(r.companies, c)
	return nil
}

func digitsOf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

type fakeDomestic struct {
	mu      sync.Mutex
	company *entity.Company
	err     error
	calls   int
}

func (f *fakeDomestic) Lookup(_ context.Context, vat string) (*entity.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.company
	return &cp, nil
}

type fakeEU struct {
	company *entity.Company
	err     error
	calls   int
}

func (f *fakeEU) Validate(_ context.Context, country, vat string) (*entity.Company, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.company
	return &cp, nil
}

// ── expenses, messages, bus ───────────────────────────────────────────────────

type fakeExpenseRepo struct {
	mu         sync.Mutex
	expenses   []*entity.NationalExpense
	reconciles int
	creates    int
}

func (r *fakeExpenseRepo) FindByAmount(_ context.Context, amount decimal.Decimal) ([]*entity.NationalExpense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.NationalExpense
	for _, e := range r.expenses {
		if e.Amount.Equal(amount) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *entity.NationalExpense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	r.expenses = append(r.expenses, e)
	return nil
}

func (r *fakeExpenseRepo) Reconcile(_ context.Context, expenseID, number string, ef *entity.EFactura) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles++
	for _, e := range r.expenses {
		if e.ID == expenseID {
			e.Number = number
			e.EFactura = ef
			return nil
		}
	}
	return fmt.Errorf("expense %s: %w", expenseID, domain.ErrNotFound)
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.Message
}

func (r *fakeMessageRepo) Create(_ context.Context, m *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) Latest(_ context.Context, limit int) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages, nil
}

type fakeBus struct {
	mu   sync.Mutex
	pubs int
}

func (b *fakeBus) Publish() {
	b.mu.Lock()
	b.pubs++
	b.mu.Unlock()
}

func (b *fakeBus) published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pubs
}
