package invoicing

import "time"

// DetailRowRequest is one grid row as submitted by the client. Quantity,
// rate, cgs and discount tolerate malformed input; Amount and NetAmount are
// never accepted from the wire.
type DetailRowRequest struct {
	InvoiceType    string `json:"invoice_type" validate:"required,oneof=Product Service Software Hardware"`
	BusinessUnitID int64  `json:"business_unit_id"`
	ProductID      int64  `json:"product_id"`
	ServiceID      *int64 `json:"service_id"`
	BranchID       int64  `json:"branch_id"`
	Quantity       Amount `json:"quantity"`
	Rate           Amount `json:"rate"`
	CGS            Amount `json:"cgs"`
	Discount       Amount `json:"discount"`
	IsFree         bool   `json:"is_free"`
	Description    string `json:"description"`
}

func (r DetailRowRequest) toRow() DetailRow {
	return DetailRow{
		InvoiceType:    InvoiceType(r.InvoiceType),
		BusinessUnitID: r.BusinessUnitID,
		ProductID:      r.ProductID,
		ServiceID:      r.ServiceID,
		BranchID:       r.BranchID,
		Quantity:       float64(r.Quantity),
		Rate:           float64(r.Rate),
		CGS:            float64(r.CGS),
		Discount:       float64(r.Discount),
		IsFree:         r.IsFree,
		Description:    r.Description,
	}
}

// InstallmentRequest is one schedule row as submitted by the client.
type InstallmentRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
	Amount  Amount    `json:"amount"`
}

// SaveInvoiceRequest is the payload for creating or updating an invoice.
// Detail row count and installment balance are enforced by the submission
// gates, not by struct tags, so their failures surface in a stable order.
type SaveInvoiceRequest struct {
	SessionID      int64                `json:"session_id" validate:"required,gt=0"`
	InvoiceTitle   string               `json:"invoice_title" validate:"max=200"`
	InvoiceDate    time.Time            `json:"invoice_date" validate:"required"`
	DueDate        time.Time            `json:"due_date"`
	CustomerID     int64                `json:"customer_id" validate:"required,gt=0"`
	AccountID      int64                `json:"account_id" validate:"required,gt=0"`
	BusinessUnitID int64                `json:"business_unit_id"`
	DocumentNo     string               `json:"document_no" validate:"max=100"`
	Description    string               `json:"description" validate:"max=1000"`
	Detail         []DetailRowRequest   `json:"detail" validate:"dive"`
	Installments   []InstallmentRequest `json:"installments" validate:"dive"`
}

// ListInvoicesFilter narrows the invoice listing.
type ListInvoicesFilter struct {
	CustomerID int64
	DateFrom   time.Time
	DateTo     time.Time
	Page       int
	PerPage    int
}

// InvoiceResponse is the save/get payload returned to the client. RecordID is
// the opaque identifier used in URLs.
type InvoiceResponse struct {
	RecordID string `json:"record_id"`
	Invoice
}
