package leads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/eduims/eduims-backend/internal/shared"
	"github.com/eduims/eduims-backend/jobs"
)

// Repository persists leads, their forward assignment and activity trail.
type Repository interface {
	Create(ctx context.Context, lead *Lead) (int64, error)
	Update(ctx context.Context, lead *Lead) error
	Get(ctx context.Context, id int64) (*Lead, error)
	List(ctx context.Context, f ListLeadsFilter) ([]LeadSummary, int64, error)
	Delete(ctx context.Context, id int64) error

	UpdateStatus(ctx context.Context, id int64, status Status) error
	SaveForward(ctx context.Context, id int64, fwd ForwardInfo) error
	SetIncentivePaid(ctx context.Context, id int64) error
	AddActivity(ctx context.Context, act *Activity) error
	Activities(ctx context.Context, leadID int64) ([]Activity, error)
	UserContact(ctx context.Context, userID int64) (name, email string, err error)
}

// Uploader matches the S3 client used for quote and finalize attachments.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// attachmentLinkTTL bounds how long a presigned download link stays valid.
const attachmentLinkTTL = 15 * time.Minute

// TaskEnqueuer matches *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service owns the lead pipeline use cases.
type Service struct {
	repo     Repository
	uploads  Uploader
	tasks    TaskEnqueuer
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the leads service. uploads and tasks may be nil; the
// operations that need them fail with a configuration error.
func NewService(repo Repository, uploads Uploader, tasks TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		uploads:  uploads,
		tasks:    tasks,
		validate: validator.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) applyRequest(lead *Lead, req SaveLeadRequest) {
	lead.SessionID = req.SessionID
	lead.CompanyName = req.CompanyName
	lead.ContactPerson = req.ContactPerson
	lead.Designation = req.Designation
	lead.Mobile = NormalizePhone(req.Mobile)
	lead.WhatsApp = NormalizePhone(req.WhatsApp)
	lead.Telephone = NormalizePhone(req.Telephone)
	lead.Email = req.Email
	lead.Address = req.Address
	lead.CountryID = req.CountryID
	lead.TehsilID = req.TehsilID
	lead.BusinessTypeID = req.BusinessTypeID
	lead.BusinessNatureID = req.BusinessNatureID
	lead.SourceID = req.SourceID
	lead.Requirement = req.Requirement
	lead.DemoPersonID = req.DemoPersonID
	lead.DemoDate = req.DemoDate
}

// Create registers a new lead in status New.
func (s *Service) Create(ctx context.Context, req SaveLeadRequest, userID int64) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	lead := &Lead{Status: StatusNew, EntryUserID: userID}
	s.applyRequest(lead, req)
	id, err := s.repo.Create(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites the introduction details. The pipeline status is not
// touched here.
func (s *Service) Update(ctx context.Context, id int64, req SaveLeadRequest) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyRequest(lead, req)
	if err := s.repo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("update lead %d: %w", id, err)
	}
	return s.repo.Get(ctx, id)
}

// Get loads a lead with its activity trail. Attachment keys are resolved to
// short-lived download links.
func (s *Service) Get(ctx context.Context, id int64) (*Lead, []Activity, error) {
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	acts, err := s.repo.Activities(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	for i := range acts {
		if acts[i].AttachmentKey == "" || s.uploads == nil {
			continue
		}
		url, err := s.uploads.PresignedURL(ctx, acts[i].AttachmentKey, attachmentLinkTTL)
		if err != nil {
			s.logger.Warn("presign attachment",
				slog.Int64("lead_id", id), slog.Any("error", err))
			continue
		}
		acts[i].AttachmentURL = url
	}
	return lead, acts, nil
}

// List returns a page of lead summaries with pagination metadata.
func (s *Service) List(ctx context.Context, f ListLeadsFilter) ([]LeadSummary, shared.Pagination, error) {
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

// Delete removes a lead and its trail, including any stored attachments. A
// failed object delete is logged and does not block removing the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	acts, err := s.repo.Activities(ctx, id)
	if err != nil {
		return err
	}
	for _, act := range acts {
		if act.AttachmentKey == "" || s.uploads == nil {
			continue
		}
		if err := s.uploads.Delete(ctx, act.AttachmentKey); err != nil {
			s.logger.Warn("delete attachment",
				slog.Int64("lead_id", id), slog.String("key", act.AttachmentKey), slog.Any("error", err))
		}
	}
	return s.repo.Delete(ctx, id)
}

// Forward assigns the lead to a department or user along with the meeting
// plan, moves it to Forwarded, and notifies the assigned user when one is
// named. Re-forwarding an already forwarded lead replaces the assignment.
func (s *Service) Forward(ctx context.Context, id int64, req ForwardRequest, userID int64) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.DepartmentID == 0 && req.UserID == 0 {
		return nil, ErrForwardTargetNeeded
	}
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lead.CanForward(); err != nil {
		return nil, err
	}

	fwd := ForwardInfo{
		DepartmentID:       req.DepartmentID,
		UserID:             req.UserID,
		MeetingMedium:      MeetingMedium(req.MeetingMedium),
		MeetingTime:        req.MeetingTime,
		RecommendedProduct: req.RecommendedProduct,
		Instructions:       req.Instructions,
		ForwardedAt:        s.now(),
	}
	if err := s.repo.SaveForward(ctx, id, fwd); err != nil {
		return nil, fmt.Errorf("forward lead %d: %w", id, err)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusForwarded); err != nil {
		return nil, err
	}
	if err := s.repo.AddActivity(ctx, &Activity{
		LeadID:      id,
		Kind:        ActivityForwarded,
		Description: req.Instructions,
		UserID:      userID,
		CreatedAt:   s.now(),
	}); err != nil {
		return nil, err
	}

	s.notifyAssignee(ctx, lead, req.UserID, StatusForwarded)
	return s.repo.Get(ctx, id)
}

// notifyAssignee queues a status email for the assigned user. Failures are
// logged, not returned: the transition already happened.
func (s *Service) notifyAssignee(ctx context.Context, lead *Lead, userID int64, status Status) {
	if s.tasks == nil || userID == 0 {
		return
	}
	name, email, err := s.repo.UserContact(ctx, userID)
	if err != nil || email == "" {
		return
	}
	task, err := jobs.NewLeadStatusEmailTask(jobs.LeadStatusPayload{
		LeadTitle:   lead.ContactPerson,
		CompanyName: lead.CompanyName,
		Status:      string(status),
		Email:       email,
		UserName:    name,
	})
	if err != nil {
		return
	}
	if _, err := s.tasks.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		s.logger.Warn("lead status email not queued",
			slog.Int64("lead_id", lead.ID), slog.Any("error", err))
	}
}

// Acknowledge records that the assigned user has taken the lead on.
func (s *Service) Acknowledge(ctx context.Context, id, userID int64) (*Lead, error) {
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lead.CanAcknowledge(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusAcknowledged); err != nil {
		return nil, err
	}
	if err := s.repo.AddActivity(ctx, &Activity{
		LeadID:    id,
		Kind:      ActivityAcknowledged,
		UserID:    userID,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// AttachmentUpload is an optional file accompanying a quote or finalization.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

func (s *Service) storeAttachment(ctx context.Context, leadID int64, up *AttachmentUpload) (string, error) {
	if up == nil {
		return "", nil
	}
	if s.uploads == nil {
		return "", fmt.Errorf("leads: attachment storage not configured")
	}
	key := fmt.Sprintf("leads/%d/%s%s", leadID, uuid.NewString(), path.Ext(up.Filename))
	if _, err := s.uploads.Upload(ctx, key, up.ContentType, up.Body); err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return key, nil
}

// Quote records a quotation with its amount, description and optional
// attachment and moves the lead to Quoted. Quoting again replaces the status
// and appends another trail entry.
func (s *Service) Quote(ctx context.Context, id int64, req QuoteRequest, up *AttachmentUpload, userID int64) (*Lead, error) {
	return s.recordOffer(ctx, id, req, up, userID, StatusQuoted, ActivityQuoted, (*Lead).CanQuote)
}

// Finalize marks the lead won, recording the final amount and attachment.
func (s *Service) Finalize(ctx context.Context, id int64, req QuoteRequest, up *AttachmentUpload, userID int64) (*Lead, error) {
	return s.recordOffer(ctx, id, req, up, userID, StatusFinalized, ActivityFinalized, (*Lead).CanFinalize)
}

func (s *Service) recordOffer(ctx context.Context, id int64, req QuoteRequest, up *AttachmentUpload, userID int64,
	status Status, kind string, gate func(*Lead) error) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := gate(lead); err != nil {
		return nil, err
	}
	key, err := s.storeAttachment(ctx, id, up)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	if err := s.repo.AddActivity(ctx, &Activity{
		LeadID:        id,
		Kind:          kind,
		Amount:        req.Amount,
		Description:   req.Description,
		AttachmentKey: key,
		UserID:        userID,
		CreatedAt:     s.now(),
	}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Close marks the lead lost with a reason and the amount it was expected to
// bring in.
func (s *Service) Close(ctx context.Context, id int64, req CloseRequest, userID int64) (*Lead, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lead.CanClose(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusClosed); err != nil {
		return nil, err
	}
	if err := s.repo.AddActivity(ctx, &Activity{
		LeadID:         id,
		Kind:           ActivityClosed,
		Reason:         req.Reason,
		ExpectedAmount: req.ExpectedAmount,
		UserID:         userID,
		CreatedAt:      s.now(),
	}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// MarkIncentivePaid flags the incentive as settled. Only finalized leads
// carry an incentive, and it is paid once.
func (s *Service) MarkIncentivePaid(ctx context.Context, id int64) (*Lead, error) {
	lead, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status != StatusFinalized {
		return nil, ErrNotFinalizedYet
	}
	if lead.IncentivePaid {
		return nil, ErrIncentiveSettled
	}
	if err := s.repo.SetIncentivePaid(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
