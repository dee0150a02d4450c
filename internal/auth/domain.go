package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FormRights describes what a user may do on one form. Forms are addressed by
// stable menu keys; a user without a row for a key gets no rights at all.
type FormRights struct {
	MenuKey   string `json:"menu_key"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	CanPrint  bool   `json:"can_print"`
}

// Menu keys for the forms served by this backend.
const (
	MenuKeyCustomerInvoice = "accounts.customer_invoice"
	MenuKeyLeads           = "leads.introduction"
	MenuKeyMasterData      = "general.master_data"
)
