package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceEmail delivers an invoice summary to the customer's inbox.
	TaskInvoiceEmail = "invoice:email"
	// TaskInvoiceWhatsApp delivers an invoice summary over WhatsApp.
	TaskInvoiceWhatsApp = "invoice:whatsapp"
	// TaskLeadStatusEmail notifies the assigned user about a lead transition.
	TaskLeadStatusEmail = "lead:status_email"
)

// InvoiceNotifyPayload carries everything the worker needs to format and send
// an invoice notification without touching the database.
type InvoiceNotifyPayload struct {
	InvoiceNo    int64   `json:"invoice_no"`
	InvoiceTitle string  `json:"invoice_title"`
	InvoiceDate  string  `json:"invoice_date"`
	CustomerName string  `json:"customer_name"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	NetAmount    float64 `json:"net_amount"`
	Installments int     `json:"installments"`
}

// NewInvoiceEmailTask constructs the email notification task.
func NewInvoiceEmailTask(payload InvoiceNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceEmail, data), nil
}

// NewInvoiceWhatsAppTask constructs the WhatsApp notification task.
func NewInvoiceWhatsAppTask(payload InvoiceNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceWhatsApp, data), nil
}

// LeadStatusPayload notifies a user that a lead moved to a new status.
type LeadStatusPayload struct {
	LeadTitle   string `json:"lead_title"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status"`
	Email       string `json:"email"`
	UserName    string `json:"user_name"`
}

// NewLeadStatusEmailTask constructs the lead transition notification task.
func NewLeadStatusEmailTask(payload LeadStatusPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadStatusEmail, data), nil
}
