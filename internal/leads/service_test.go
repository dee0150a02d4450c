package leads

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/eduims/eduims-backend/internal/shared"
)

type memoryLeadRepo struct {
	leads      map[int64]*Lead
	activities map[int64][]Activity
	contacts   map[int64][2]string
	nextID     int64
}

func newMemoryLeadRepo() *memoryLeadRepo {
	return &memoryLeadRepo{
		leads:      make(map[int64]*Lead),
		activities: make(map[int64][]Activity),
		contacts:   make(map[int64][2]string),
		nextID:     1,
	}
}

func (m *memoryLeadRepo) Create(_ context.Context, lead *Lead) (int64, error) {
	lead.ID = m.nextID
	m.nextID++
	cp := *lead
	m.leads[lead.ID] = &cp
	return lead.ID, nil
}

func (m *memoryLeadRepo) Update(_ context.Context, lead *Lead) error {
	if _, ok := m.leads[lead.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *lead
	m.leads[lead.ID] = &cp
	return nil
}

func (m *memoryLeadRepo) Get(_ context.Context, id int64) (*Lead, error) {
	lead, ok := m.leads[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *lead
	return &cp, nil
}

func (m *memoryLeadRepo) List(_ context.Context, f ListLeadsFilter) ([]LeadSummary, int64, error) {
	var out []LeadSummary
	for _, lead := range m.leads {
		if f.Status != "" && lead.Status != f.Status {
			continue
		}
		out = append(out, LeadSummary{ID: lead.ID, Status: lead.Status, CompanyName: lead.CompanyName})
	}
	return out, int64(len(out)), nil
}

func (m *memoryLeadRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.leads[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *memoryLeadRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	lead, ok := m.leads[id]
	if !ok {
		return shared.ErrNotFound
	}
	lead.Status = status
	return nil
}

func (m *memoryLeadRepo) SaveForward(_ context.Context, id int64, fwd ForwardInfo) error {
	lead, ok := m.leads[id]
	if !ok {
		return shared.ErrNotFound
	}
	lead.Forward = &fwd
	return nil
}

func (m *memoryLeadRepo) SetIncentivePaid(_ context.Context, id int64) error {
	lead, ok := m.leads[id]
	if !ok {
		return shared.ErrNotFound
	}
	lead.IncentivePaid = true
	return nil
}

func (m *memoryLeadRepo) AddActivity(_ context.Context, act *Activity) error {
	act.ID = int64(len(m.activities[act.LeadID])) + 1
	m.activities[act.LeadID] = append(m.activities[act.LeadID], *act)
	return nil
}

func (m *memoryLeadRepo) Activities(_ context.Context, leadID int64) ([]Activity, error) {
	return m.activities[leadID], nil
}

func (m *memoryLeadRepo) UserContact(_ context.Context, userID int64) (string, string, error) {
	c, ok := m.contacts[userID]
	if !ok {
		return "", "", shared.ErrNotFound
	}
	return c[0], c[1], nil
}

type fakeUploader struct {
	keys    []string
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	f.keys = append(f.keys, key)
	return "https://files.test/" + key, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeUploader) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key + "?signed", nil
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

func leadRequest() SaveLeadRequest {
	return SaveLeadRequest{
		SessionID:     1,
		CompanyName:   "Beacon Academy",
		ContactPerson: "R. Malik",
		Mobile:        "0300-123-4567",
		WhatsApp:      "0300-123-4567",
		Telephone:     "042-3571-2200",
		Email:         "admin@beacon.test",
		Requirement:   "Campus management system",
	}
}

func forwardRequest() ForwardRequest {
	return ForwardRequest{
		UserID:             9,
		MeetingMedium:      "Online",
		MeetingTime:        time.Date(2026, 9, 10, 11, 0, 0, 0, time.UTC),
		RecommendedProduct: 4,
		Instructions:       "Demo the fee module first",
	}
}

func newTestService(t *testing.T) (*Service, *memoryLeadRepo, *fakeUploader, *fakeQueue) {
	t.Helper()
	repo := newMemoryLeadRepo()
	uploads := &fakeUploader{}
	queue := &fakeQueue{}
	return NewService(repo, uploads, queue, testLogger()), repo, uploads, queue
}

func TestCreateNormalizesPhones(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 7)
	require.NoError(t, err)
	require.Equal(t, StatusNew, lead.Status)
	require.Equal(t, "03001234567", lead.Mobile)
	require.Equal(t, "03001234567", lead.WhatsApp)
	require.Equal(t, "04235712200", lead.Telephone)
	require.Equal(t, int64(7), lead.EntryUserID)
}

func TestForwardMovesToForwardedAndNotifies(t *testing.T) {
	svc, repo, _, queue := newTestService(t)
	repo.contacts[9] = [2]string{"S. Khan", "skhan@eduims.test"}

	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	lead, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusForwarded, lead.Status)
	require.NotNil(t, lead.Forward)
	require.Equal(t, MediumOnline, lead.Forward.MeetingMedium)

	require.Len(t, queue.tasks, 1)
	require.Equal(t, "lead:status_email", queue.tasks[0].Type())

	acts, err := repo.Activities(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, ActivityForwarded, acts[0].Kind)
}

func TestForwardRequiresDepartmentOrUser(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	req := forwardRequest()
	req.UserID = 0
	req.DepartmentID = 0
	_, err = svc.Forward(context.Background(), lead.ID, req, 1)
	require.ErrorIs(t, err, ErrForwardTargetNeeded)

	req.DepartmentID = 3
	_, err = svc.Forward(context.Background(), lead.ID, req, 1)
	require.NoError(t, err)
}

func TestAcknowledgeOnlyAfterForward(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	_, err = svc.Acknowledge(context.Background(), lead.ID, 9)
	require.ErrorIs(t, err, ErrNotForwarded)

	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)

	lead, err = svc.Acknowledge(context.Background(), lead.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusAcknowledged, lead.Status)
}

func TestQuoteStoresAttachment(t *testing.T) {
	svc, repo, uploads, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)

	up := &AttachmentUpload{
		Filename:    "quotation.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader([]byte("%PDF-1.4")),
	}
	lead, err = svc.Quote(context.Background(), lead.ID, QuoteRequest{Amount: 250000, Description: "Annual license"}, up, 9)
	require.NoError(t, err)
	require.Equal(t, StatusQuoted, lead.Status)

	require.Len(t, uploads.keys, 1)
	require.True(t, strings.HasSuffix(uploads.keys[0], ".pdf"))

	acts, err := repo.Activities(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, ActivityQuoted, acts[1].Kind)
	require.Equal(t, 250000.0, acts[1].Amount)
	require.Equal(t, uploads.keys[0], acts[1].AttachmentKey)
}

func TestQuoteRequiresForwardedLead(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	_, err = svc.Quote(context.Background(), lead.ID, QuoteRequest{Amount: 1000, Description: "x"}, nil, 9)
	require.ErrorIs(t, err, ErrNotQuotable)
}

func TestFinalizeAndIncentive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	// incentive is gated on finalization
	_, err = svc.MarkIncentivePaid(context.Background(), lead.ID)
	require.ErrorIs(t, err, ErrNotFinalizedYet)

	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)
	lead, err = svc.Finalize(context.Background(), lead.ID, QuoteRequest{Amount: 300000, Description: "Signed"}, nil, 9)
	require.NoError(t, err)
	require.Equal(t, StatusFinalized, lead.Status)

	// a won lead cannot be re-forwarded
	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.ErrorIs(t, err, ErrLeadFinalized)

	lead, err = svc.MarkIncentivePaid(context.Background(), lead.ID)
	require.NoError(t, err)
	require.True(t, lead.IncentivePaid)

	// the incentive is paid once
	_, err = svc.MarkIncentivePaid(context.Background(), lead.ID)
	require.ErrorIs(t, err, ErrIncentiveSettled)
}

func TestGetPresignsAttachmentLinks(t *testing.T) {
	svc, _, uploads, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)

	up := &AttachmentUpload{
		Filename:    "quotation.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader([]byte("%PDF-1.4")),
	}
	_, err = svc.Quote(context.Background(), lead.ID, QuoteRequest{Amount: 90000, Description: "Licenses"}, up, 9)
	require.NoError(t, err)

	_, acts, err := svc.Get(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, "https://files.test/"+uploads.keys[0]+"?signed", acts[1].AttachmentURL)
	require.Empty(t, acts[0].AttachmentURL)
}

func TestDeleteRemovesStoredAttachments(t *testing.T) {
	svc, repo, uploads, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)
	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.NoError(t, err)

	up := &AttachmentUpload{
		Filename:    "quotation.pdf",
		ContentType: "application/pdf",
		Body:        bytes.NewReader([]byte("%PDF-1.4")),
	}
	_, err = svc.Quote(context.Background(), lead.ID, QuoteRequest{Amount: 90000, Description: "Licenses"}, up, 9)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), lead.ID))
	require.Equal(t, uploads.keys, uploads.deleted)
	_, err = repo.Get(context.Background(), lead.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListReturnsPaginationMetadata(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), leadRequest(), 1)
		require.NoError(t, err)
	}

	items, pg, err := svc.List(context.Background(), ListLeadsFilter{Page: 0, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, 1, pg.Page)
	require.Equal(t, 2, pg.PerPage)
	require.Equal(t, 3, pg.Total)
	require.Equal(t, 2, pg.TotalPages)
}

func TestCloseRecordsReasonAndBlocksFurtherWork(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), leadRequest(), 1)
	require.NoError(t, err)

	lead, err = svc.Close(context.Background(), lead.ID, CloseRequest{Reason: "Went with a competitor", ExpectedAmount: 180000}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, lead.Status)

	acts, err := repo.Activities(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, ActivityClosed, acts[0].Kind)
	require.Equal(t, "Went with a competitor", acts[0].Reason)
	require.Equal(t, 180000.0, acts[0].ExpectedAmount)

	_, err = svc.Forward(context.Background(), lead.ID, forwardRequest(), 1)
	require.ErrorIs(t, err, ErrLeadClosed)
	_, err = svc.Close(context.Background(), lead.ID, CloseRequest{Reason: "again"}, 1)
	require.ErrorIs(t, err, ErrLeadClosed)
}

func TestNormalizePhone(t *testing.T) {
	require.Equal(t, "03001234567", NormalizePhone(" 0300-123-4567 "))
	require.Equal(t, "", NormalizePhone(""))
}
