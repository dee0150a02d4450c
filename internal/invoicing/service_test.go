package invoicing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/eduims/eduims-backend/internal/shared"
)

type memoryRepo struct {
	invoices map[int64]*Invoice
	contacts map[int64]*CustomerContact
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[int64]*Invoice),
		contacts: make(map[int64]*CustomerContact),
		nextID:   1,
	}
}

func (m *memoryRepo) Create(_ context.Context, inv *Invoice) (int64, error) {
	inv.ID = m.nextID
	m.nextID++
	inv.InvoiceNo = int64(len(m.invoices)) + 1
	sessionMax := int64(0)
	for _, existing := range m.invoices {
		if existing.SessionID == inv.SessionID && existing.SessionBasedVoucherNo > sessionMax {
			sessionMax = existing.SessionBasedVoucherNo
		}
	}
	inv.SessionBasedVoucherNo = sessionMax + 1
	cp := *inv
	m.invoices[inv.ID] = &cp
	return inv.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, inv *Invoice) error {
	existing, ok := m.invoices[inv.ID]
	if !ok {
		return shared.ErrNotFound
	}
	inv.InvoiceNo = existing.InvoiceNo
	inv.SessionBasedVoucherNo = existing.SessionBasedVoucherNo
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, _ ListInvoicesFilter) ([]InvoiceSummary, int64, error) {
	var out []InvoiceSummary
	for _, inv := range m.invoices {
		out = append(out, InvoiceSummary{ID: inv.ID, InvoiceNo: inv.InvoiceNo, TotalNetAmount: inv.Totals.TotalNetAmount})
	}
	return out, int64(len(out)), nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memoryRepo) CustomerContact(_ context.Context, customerID int64) (*CustomerContact, error) {
	c, ok := m.contacts[customerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func saveRequest() SaveInvoiceRequest {
	return SaveInvoiceRequest{
		SessionID:    1,
		InvoiceTitle: "Autumn enrolment",
		InvoiceDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		CustomerID:   3,
		AccountID:    4,
		Detail: []DetailRowRequest{
			{InvoiceType: "Product", BusinessUnitID: 1, ProductID: 10, Quantity: 2, Rate: 100, CGS: 50, Discount: 20},
			{InvoiceType: "Product", BusinessUnitID: 1, ProductID: 11, Quantity: 1, Rate: 300},
		},
	}
}

func TestServiceSaveCreatesWithDerivedTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, testLogger())

	inv, err := svc.Save(context.Background(), 0, saveRequest(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(1), inv.InvoiceNo)
	require.Equal(t, int64(1), inv.SessionBasedVoucherNo)
	require.Equal(t, int64(42), inv.EntryUserID)
	require.Equal(t, 480.0, inv.Totals.TotalNetAmount)
	require.Equal(t, 20.0, inv.Totals.TotalDiscount)
	require.Len(t, inv.Detail, 2)
	// derived per-row fields come from the server, not the wire
	require.Equal(t, 200.0, inv.Detail[0].Amount)
	require.Equal(t, 180.0, inv.Detail[0].NetAmount)
}

func TestServiceSaveSessionScopedVoucherNumbers(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, testLogger())

	first, err := svc.Save(context.Background(), 0, saveRequest(), 1)
	require.NoError(t, err)

	other := saveRequest()
	other.SessionID = 2
	second, err := svc.Save(context.Background(), 0, other, 1)
	require.NoError(t, err)

	require.Equal(t, int64(1), first.SessionBasedVoucherNo)
	require.Equal(t, int64(2), second.InvoiceNo)
	require.Equal(t, int64(1), second.SessionBasedVoucherNo) // fresh session restarts at 1
}

func TestServiceSaveUpdateKeepsVoucherNumbers(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, testLogger())

	created, err := svc.Save(context.Background(), 0, saveRequest(), 1)
	require.NoError(t, err)

	req := saveRequest()
	req.Detail = req.Detail[:1]
	updated, err := svc.Save(context.Background(), created.ID, req, 1)
	require.NoError(t, err)
	require.Equal(t, created.InvoiceNo, updated.InvoiceNo)
	require.Equal(t, created.SessionBasedVoucherNo, updated.SessionBasedVoucherNo)
	require.Len(t, updated.Detail, 1)
	require.Equal(t, 180.0, updated.Totals.TotalNetAmount)
}

func TestServiceSaveRejectsGateFailures(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, testLogger())

	empty := saveRequest()
	empty.Detail = nil
	_, err := svc.Save(context.Background(), 0, empty, 1)
	require.ErrorIs(t, err, ErrNoDetailRows)

	incomplete := saveRequest()
	incomplete.Detail[0].ProductID = 0
	_, err = svc.Save(context.Background(), 0, incomplete, 1)
	require.ErrorIs(t, err, ErrIncompleteRow)

	under := saveRequest()
	under.Installments = []InstallmentRequest{{DueDate: time.Now(), Amount: 100}}
	_, err = svc.Save(context.Background(), 0, under, 1)
	require.ErrorIs(t, err, ErrInstallmentsBelowTotal)

	over := saveRequest()
	over.Installments = []InstallmentRequest{{DueDate: time.Now(), Amount: 600}}
	_, err = svc.Save(context.Background(), 0, over, 1)
	require.ErrorIs(t, err, ErrInstallmentsExceedTotal)
}

func TestServiceSaveWithExactInstallmentPlan(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, testLogger())

	req := saveRequest()
	req.Installments = []InstallmentRequest{
		{DueDate: time.Now(), Amount: 280},
		{DueDate: time.Now().AddDate(0, 1, 0), Amount: 200},
	}
	inv, err := svc.Save(context.Background(), 0, req, 1)
	require.NoError(t, err)
	require.Len(t, inv.Installments, 2)
}

func TestServiceSaveValidatesHeader(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, testLogger())

	req := saveRequest()
	req.CustomerID = 0
	_, err := svc.Save(context.Background(), 0, req, 1)
	require.Error(t, err)
}

func TestServiceNotifyEmailEnqueuesTask(t *testing.T) {
	repo := newMemoryRepo()
	queue := &fakeQueue{}
	svc := NewService(repo, queue, testLogger())

	inv, err := svc.Save(context.Background(), 0, saveRequest(), 1)
	require.NoError(t, err)
	repo.contacts[inv.CustomerID] = &CustomerContact{Name: "Acme School", Email: "billing@acme.test", Phone: "03001234567"}

	require.NoError(t, svc.NotifyEmail(context.Background(), inv.ID))
	require.NoError(t, svc.NotifyWhatsApp(context.Background(), inv.ID))
	require.Len(t, queue.tasks, 2)
	require.Equal(t, "invoice:email", queue.tasks[0].Type())
	require.Equal(t, "invoice:whatsapp", queue.tasks[1].Type())
}

func TestServiceNotifyWithoutQueue(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, testLogger())
	require.Error(t, svc.NotifyEmail(context.Background(), 1))
}

func TestServiceListReturnsPaginationMetadata(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, testLogger())

	for i := 0; i < 3; i++ {
		_, err := svc.Save(context.Background(), 0, saveRequest(), 1)
		require.NoError(t, err)
	}

	items, pg, err := svc.List(context.Background(), ListInvoicesFilter{Page: 0, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, 1, pg.Page)
	require.Equal(t, 2, pg.PerPage)
	require.Equal(t, 3, pg.Total)
	require.Equal(t, 2, pg.TotalPages)
}

func TestServiceDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, testLogger())

	inv, err := svc.Save(context.Background(), 0, saveRequest(), 1)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), inv.ID))
	_, err = svc.Get(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
