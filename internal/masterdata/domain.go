package masterdata

import "time"

// BusinessUnit is an operating unit invoices and leads are booked against.
type BusinessUnit struct {
	ID        int64     `json:"-"`
	RecordID  string    `json:"record_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a sellable catalogue item.
type Product struct {
	ID        int64     `json:"-"`
	RecordID  string    `json:"record_id"`
	Name      string    `json:"name"`
	Info      string    `json:"info,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceOffering is a sellable service attached to invoice rows of type
// Service.
type ServiceOffering struct {
	ID        int64     `json:"-"`
	RecordID  string    `json:"record_id"`
	Name      string    `json:"name"`
	Info      string    `json:"info,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Customer is an invoiced party. Ledger accounts hang off the customer and
// branches hang off a ledger account.
type Customer struct {
	ID           int64     `json:"-"`
	RecordID     string    `json:"record_id"`
	Name         string    `json:"customer_name"`
	BusinessName string    `json:"business_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	WhatsAppNo   string    `json:"whatsapp_no,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Accounts []LedgerAccount `json:"accounts,omitempty"`
}

// LedgerAccount is one receivable account of a customer.
type LedgerAccount struct {
	ID         int64  `json:"-"`
	RecordID   string `json:"record_id"`
	CustomerID int64  `json:"-"`
	Title      string `json:"account_title"`

	Branches []Branch `json:"branches,omitempty"`
}

// Branch is a customer site keyed by the ledger account it bills through.
type Branch struct {
	ID        int64  `json:"-"`
	RecordID  string `json:"record_id"`
	AccountID int64  `json:"-"`
	Name      string `json:"branch_name"`
	Address   string `json:"address,omitempty"`
}

// Session is a financial period. Voucher numbers restart per session.
type Session struct {
	ID        int64     `json:"-"`
	RecordID  string    `json:"record_id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	IsCurrent bool      `json:"is_current"`
}

// SelectItem is one dropdown entry: opaque id plus display label.
type SelectItem struct {
	RecordID string `json:"record_id"`
	Label    string `json:"label"`
}
