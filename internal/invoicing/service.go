package invoicing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/eduims/eduims-backend/internal/shared"
	"github.com/eduims/eduims-backend/jobs"
)

// CustomerContact is the delivery information used when dispatching invoice
// notifications.
type CustomerContact struct {
	Name  string
	Email string
	Phone string
}

// Repository persists invoices. Create assigns both voucher numbers and
// writes the master, detail and installment rows in one transaction; Update
// replaces detail and installments wholesale.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) (int64, error)
	Update(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, f ListInvoicesFilter) ([]InvoiceSummary, int64, error)
	Delete(ctx context.Context, id int64) error
	CustomerContact(ctx context.Context, customerID int64) (*CustomerContact, error)
}

// TaskEnqueuer matches *asynq.Client so the queue can be faked in tests.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service owns customer invoice use cases.
type Service struct {
	repo     Repository
	validate *validator.Validate
	tasks    TaskEnqueuer
	logger   *slog.Logger
}

// NewService wires the invoicing service. tasks may be nil, in which case
// notification dispatch fails with a configuration error.
func NewService(repo Repository, tasks TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		tasks:    tasks,
		logger:   logger,
	}
}

// buildDraft replays the submitted form state through the calculation rules
// so every derived field is computed server side, whatever the client sent.
func (s *Service) buildDraft(req SaveInvoiceRequest) (*Draft, error) {
	d := NewDraft()
	d.SetCustomer(req.CustomerID, req.AccountID)
	for _, rr := range req.Detail {
		if err := d.AppendRow(rr.toRow()); err != nil {
			return nil, err
		}
	}
	// Installments arrive as a complete plan, not one grid interaction at a
	// time, so they bypass the append gate and are judged by the save gates.
	for _, ir := range req.Installments {
		d.installments = append(d.installments, InstallmentRow{
			DueDate: ir.DueDate,
			Amount:  num(float64(ir.Amount)),
		})
	}
	d.recompute()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Save creates a new invoice when id is zero, otherwise updates the existing
// one. Voucher numbers are assigned once at creation and never change.
func (s *Service) Save(ctx context.Context, id int64, req SaveInvoiceRequest, userID int64) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	d, err := s.buildDraft(req)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:             id,
		SessionID:      req.SessionID,
		InvoiceTitle:   req.InvoiceTitle,
		InvoiceDate:    req.InvoiceDate,
		DueDate:        req.DueDate,
		CustomerID:     req.CustomerID,
		AccountID:      req.AccountID,
		BusinessUnitID: req.BusinessUnitID,
		DocumentNo:     req.DocumentNo,
		Description:    req.Description,
		Totals:         d.Totals(),
		Detail:         d.Rows(),
		Installments:   d.Installments(),
		EntryUserID:    userID,
	}

	if id == 0 {
		newID, err := s.repo.Create(ctx, inv)
		if err != nil {
			return nil, fmt.Errorf("create invoice: %w", err)
		}
		id = newID
	} else {
		if err := s.repo.Update(ctx, inv); err != nil {
			return nil, fmt.Errorf("update invoice %d: %w", id, err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Get loads one invoice with its detail and installments.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of invoice summaries with pagination metadata.
func (s *Service) List(ctx context.Context, f ListInvoicesFilter) ([]InvoiceSummary, shared.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 200 {
		f.PerPage = 50
	}
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(f.Page, f.PerPage, int(total)), nil
}

// Delete removes an invoice with its detail and installments.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) notifyPayload(ctx context.Context, id int64) (jobs.InvoiceNotifyPayload, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return jobs.InvoiceNotifyPayload{}, err
	}
	contact, err := s.repo.CustomerContact(ctx, inv.CustomerID)
	if err != nil {
		return jobs.InvoiceNotifyPayload{}, err
	}
	return jobs.InvoiceNotifyPayload{
		InvoiceNo:    inv.InvoiceNo,
		InvoiceTitle: inv.InvoiceTitle,
		InvoiceDate:  inv.InvoiceDate.Format("02-Jan-2006"),
		CustomerName: contact.Name,
		Email:        contact.Email,
		Phone:        contact.Phone,
		NetAmount:    inv.Totals.TotalNetAmount,
		Installments: len(inv.Installments),
	}, nil
}

// NotifyEmail queues an invoice email for the customer.
func (s *Service) NotifyEmail(ctx context.Context, id int64) error {
	if s.tasks == nil {
		return fmt.Errorf("invoicing: task queue not configured")
	}
	payload, err := s.notifyPayload(ctx, id)
	if err != nil {
		return err
	}
	task, err := jobs.NewInvoiceEmailTask(payload)
	if err != nil {
		return err
	}
	if _, err := s.tasks.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		return fmt.Errorf("enqueue invoice email: %w", err)
	}
	s.logger.Info("invoice email queued", slog.Int64("invoice_id", id))
	return nil
}

// NotifyWhatsApp queues an invoice WhatsApp message for the customer.
func (s *Service) NotifyWhatsApp(ctx context.Context, id int64) error {
	if s.tasks == nil {
		return fmt.Errorf("invoicing: task queue not configured")
	}
	payload, err := s.notifyPayload(ctx, id)
	if err != nil {
		return err
	}
	task, err := jobs.NewInvoiceWhatsAppTask(payload)
	if err != nil {
		return err
	}
	if _, err := s.tasks.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		return fmt.Errorf("enqueue invoice whatsapp: %w", err)
	}
	s.logger.Info("invoice whatsapp queued", slog.Int64("invoice_id", id))
	return nil
}
