package leads

import (
	"errors"
	"strings"
	"time"
)

// Status is the lead pipeline state.
type Status string

const (
	StatusNew          Status = "New"
	StatusForwarded    Status = "Forwarded"
	StatusAcknowledged Status = "Acknowledged"
	StatusQuoted       Status = "Quoted"
	StatusFinalized    Status = "Finalized"
	StatusClosed       Status = "Closed"
)

// MeetingMedium records how the demo meeting will be held.
type MeetingMedium string

const (
	MediumAtClientSite MeetingMedium = "AtClientSite"
	MediumAtOffice     MeetingMedium = "AtOffice"
	MediumOnline       MeetingMedium = "Online"
)

// Valid reports whether the medium is one of the known values.
func (m MeetingMedium) Valid() bool {
	switch m {
	case MediumAtClientSite, MediumAtOffice, MediumOnline:
		return true
	}
	return false
}

// Transition errors.
var (
	ErrLeadClosed          = errors.New("lead is closed")
	ErrLeadFinalized       = errors.New("lead is already finalized")
	ErrNotForwarded        = errors.New("lead has not been forwarded")
	ErrNotQuotable         = errors.New("lead cannot be quoted in its current status")
	ErrNotFinalizable      = errors.New("lead cannot be finalized in its current status")
	ErrNotFinalizedYet     = errors.New("incentive applies to finalized leads only")
	ErrIncentiveSettled    = errors.New("incentive has already been paid")
	ErrForwardTargetNeeded = errors.New("forward requires a department or a user")
)

// Lead is one prospect moving through the pipeline.
type Lead struct {
	ID               int64      `json:"-"`
	SessionID        int64      `json:"session_id"`
	Status           Status     `json:"status"`
	CompanyName      string     `json:"company_name"`
	ContactPerson    string     `json:"contact_person"`
	Designation      string     `json:"designation,omitempty"`
	Mobile           string     `json:"mobile"`
	WhatsApp         string     `json:"whatsapp,omitempty"`
	Telephone        string     `json:"telephone,omitempty"`
	Email            string     `json:"email,omitempty"`
	Address          string     `json:"address,omitempty"`
	CountryID        int64      `json:"country_id,omitempty"`
	TehsilID         int64      `json:"tehsil_id,omitempty"`
	BusinessTypeID   int64      `json:"business_type_id,omitempty"`
	BusinessNatureID int64      `json:"business_nature_id,omitempty"`
	SourceID         int64      `json:"source_id,omitempty"`
	Requirement      string     `json:"requirement,omitempty"`
	DemoPersonID     int64      `json:"demo_person_id,omitempty"`
	DemoDate         *time.Time `json:"demo_date,omitempty"`
	IncentivePaid    bool       `json:"incentive_paid"`
	EntryUserID      int64      `json:"entry_user_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Forward *ForwardInfo `json:"forward,omitempty"`
}

// ForwardInfo is the assignment recorded when a lead is forwarded.
type ForwardInfo struct {
	DepartmentID       int64         `json:"department_id,omitempty"`
	UserID             int64         `json:"user_id,omitempty"`
	MeetingMedium      MeetingMedium `json:"meeting_medium"`
	MeetingTime        time.Time     `json:"meeting_time"`
	RecommendedProduct int64         `json:"recommended_product_id"`
	Instructions       string        `json:"instructions"`
	ForwardedAt        time.Time     `json:"forwarded_at"`
}

// Activity is one audit entry on a lead: a forward, quote, finalize or close,
// with the numbers and attachment recorded at that step.
type Activity struct {
	ID             int64     `json:"-"`
	LeadID         int64     `json:"-"`
	Kind           string    `json:"kind"`
	Amount         float64   `json:"amount,omitempty"`
	Description    string    `json:"description,omitempty"`
	AttachmentKey  string    `json:"attachment_key,omitempty"`
	AttachmentURL  string    `json:"attachment_url,omitempty"`
	ExpectedAmount float64   `json:"expected_amount,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	UserID         int64     `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Activity kinds.
const (
	ActivityForwarded    = "forwarded"
	ActivityAcknowledged = "acknowledged"
	ActivityQuoted       = "quoted"
	ActivityFinalized    = "finalized"
	ActivityClosed       = "closed"
)

// NormalizePhone strips the dashes data entry tends to leave in numbers.
func NormalizePhone(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// CanForward reports whether the lead may be (re)assigned.
func (l *Lead) CanForward() error {
	switch l.Status {
	case StatusClosed:
		return ErrLeadClosed
	case StatusFinalized:
		return ErrLeadFinalized
	}
	return nil
}

// CanAcknowledge reports whether the assigned user may acknowledge receipt.
func (l *Lead) CanAcknowledge() error {
	if l.Status != StatusForwarded {
		return ErrNotForwarded
	}
	return nil
}

// CanQuote reports whether a quotation may be recorded.
func (l *Lead) CanQuote() error {
	switch l.Status {
	case StatusForwarded, StatusAcknowledged, StatusQuoted:
		return nil
	}
	return ErrNotQuotable
}

// CanFinalize reports whether the lead may be won.
func (l *Lead) CanFinalize() error {
	switch l.Status {
	case StatusForwarded, StatusAcknowledged, StatusQuoted:
		return nil
	}
	return ErrNotFinalizable
}

// CanClose reports whether the lead may be lost.
func (l *Lead) CanClose() error {
	if l.Status == StatusClosed {
		return ErrLeadClosed
	}
	return nil
}
