package leads

import "time"

// SaveLeadRequest creates or updates a lead's introduction details.
type SaveLeadRequest struct {
	SessionID        int64      `json:"session_id" validate:"required,gt=0"`
	CompanyName      string     `json:"company_name" validate:"required,max=200"`
	ContactPerson    string     `json:"contact_person" validate:"required,max=200"`
	Designation      string     `json:"designation" validate:"max=100"`
	Mobile           string     `json:"mobile" validate:"required,max=30"`
	WhatsApp         string     `json:"whatsapp" validate:"max=30"`
	Telephone        string     `json:"telephone" validate:"max=30"`
	Email            string     `json:"email" validate:"omitempty,email"`
	Address          string     `json:"address" validate:"max=500"`
	CountryID        int64      `json:"country_id"`
	TehsilID         int64      `json:"tehsil_id"`
	BusinessTypeID   int64      `json:"business_type_id"`
	BusinessNatureID int64      `json:"business_nature_id"`
	SourceID         int64      `json:"source_id"`
	Requirement      string     `json:"requirement" validate:"max=2000"`
	DemoPersonID     int64      `json:"demo_person_id"`
	DemoDate         *time.Time `json:"demo_date"`
}

// ForwardRequest assigns a lead to a department or a user with meeting
// details. Department and user are each optional but one must be present.
type ForwardRequest struct {
	DepartmentID       int64     `json:"department_id"`
	UserID             int64     `json:"user_id"`
	MeetingMedium      string    `json:"meeting_medium" validate:"required,oneof=AtClientSite AtOffice Online"`
	MeetingTime        time.Time `json:"meeting_time" validate:"required"`
	RecommendedProduct int64     `json:"recommended_product_id" validate:"required,gt=0"`
	Instructions       string    `json:"instructions" validate:"required,max=2000"`
}

// QuoteRequest records a quotation or a finalization. The attachment arrives
// as multipart content and is stored before this struct is validated.
type QuoteRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description" validate:"required,max=2000"`
}

// CloseRequest marks a lead lost.
type CloseRequest struct {
	Reason         string  `json:"reason" validate:"required,max=2000"`
	ExpectedAmount float64 `json:"expected_amount" validate:"gte=0"`
}

// ListLeadsFilter narrows the lead listing.
type ListLeadsFilter struct {
	Status    Status
	SessionID int64
	Search    string
	Page      int
	PerPage   int
}

// LeadSummary is one row of the lead listing.
type LeadSummary struct {
	ID            int64     `json:"-"`
	RecordID      string    `json:"record_id"`
	Status        Status    `json:"status"`
	CompanyName   string    `json:"company_name"`
	ContactPerson string    `json:"contact_person"`
	Mobile        string    `json:"mobile"`
	IncentivePaid bool      `json:"incentive_paid"`
	CreatedAt     time.Time `json:"created_at"`
}

// LeadResponse is the get payload with the opaque record id.
type LeadResponse struct {
	RecordID   string     `json:"record_id"`
	Lead       Lead       `json:"lead"`
	Activities []Activity `json:"activities"`
}
