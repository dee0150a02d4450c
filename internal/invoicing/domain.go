package invoicing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// InvoiceType classifies a detail row.
type InvoiceType string

const (
	TypeProduct  InvoiceType = "Product"
	TypeService  InvoiceType = "Service"
	TypeSoftware InvoiceType = "Software"
	TypeHardware InvoiceType = "Hardware"
)

// Valid reports whether the type is one of the known invoice types.
func (t InvoiceType) Valid() bool {
	switch t {
	case TypeProduct, TypeService, TypeSoftware, TypeHardware:
		return true
	}
	return false
}

// RequiresService reports whether rows of this type must carry a service id.
func (t InvoiceType) RequiresService() bool {
	return t == TypeService
}

// DetailRow is one line of a customer invoice. Amount and NetAmount are
// derived; they are recomputed whenever an input field changes and never
// accepted from outside.
type DetailRow struct {
	InvoiceType    InvoiceType `json:"invoice_type"`
	BusinessUnitID int64       `json:"business_unit_id"`
	ProductID      int64       `json:"product_id"`
	ServiceID      *int64      `json:"service_id,omitempty"`
	BranchID       int64       `json:"branch_id"`
	Quantity       float64     `json:"quantity"`
	Rate           float64     `json:"rate"`
	CGS            float64     `json:"cgs"`
	Amount         float64     `json:"amount"`
	Discount       float64     `json:"discount"`
	NetAmount      float64     `json:"net_amount"`
	IsFree         bool        `json:"is_free"`
	Description    string      `json:"description,omitempty"`
}

// InvoiceTotals are the invoice level aggregates over the detail rows.
// TotalCGS was historically labelled "total amount" on the form; the CGS sum
// never feeds TotalNetAmount.
type InvoiceTotals struct {
	TotalRate      float64 `json:"total_rate"`
	TotalCGS       float64 `json:"total_cgs"`
	TotalDiscount  float64 `json:"total_discount"`
	TotalNetAmount float64 `json:"total_net_amount"`
}

// InstallmentRow is one scheduled payment against the invoice net total.
type InstallmentRow struct {
	DueDate time.Time `json:"due_date"`
	Amount  float64   `json:"amount"`
}

// InstallmentTotals tracks how much of the net total the installment plan
// covers. Remaining can be positive (under allocated), zero (the only state
// permitting save) or negative (over allocated).
type InstallmentTotals struct {
	TotalAmount    float64 `json:"total_amount"`
	TotalRemaining float64 `json:"total_remaining"`
}

// Invoice is the persisted master record with its detail and installments.
type Invoice struct {
	ID                    int64            `json:"-"`
	SessionID             int64            `json:"session_id"`
	InvoiceNo             int64            `json:"invoice_no"`
	SessionBasedVoucherNo int64            `json:"session_based_voucher_no"`
	InvoiceTitle          string           `json:"invoice_title"`
	InvoiceDate           time.Time        `json:"invoice_date"`
	DueDate               time.Time        `json:"due_date"`
	CustomerID            int64            `json:"customer_id"`
	AccountID             int64            `json:"account_id"`
	BusinessUnitID        int64            `json:"business_unit_id"`
	DocumentNo            string           `json:"document_no,omitempty"`
	Description           string           `json:"description,omitempty"`
	Totals                InvoiceTotals    `json:"totals"`
	EntryUserID           int64            `json:"entry_user_id"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	Detail                []DetailRow      `json:"detail"`
	Installments          []InstallmentRow `json:"installments"`
}

// InvoiceSummary is one row of the invoice listing.
type InvoiceSummary struct {
	ID                    int64     `json:"-"`
	RecordID              string    `json:"record_id"`
	InvoiceNo             int64     `json:"invoice_no"`
	SessionBasedVoucherNo int64     `json:"session_based_voucher_no"`
	InvoiceTitle          string    `json:"invoice_title"`
	CustomerName          string    `json:"customer_name"`
	AccountTitle          string    `json:"account_title"`
	InvoiceDate           time.Time `json:"invoice_date"`
	TotalNetAmount        float64   `json:"total_net_amount"`
	DocumentNo            string    `json:"document_no,omitempty"`
}

// Amount is a lenient numeric input. Data entry must never be interrupted by
// a malformed number, so unmarshalling coerces anything unparseable to zero;
// real validation happens at submit time.
type Amount float64

// UnmarshalJSON accepts a JSON number, a quoted number, null, or garbage.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*a = 0
		return nil
	}
	*a = Amount(v)
	return nil
}
