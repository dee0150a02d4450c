package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mailer abstracts the SES sender so tests can capture outgoing mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// TextSender abstracts the WhatsApp gateway client.
type TextSender interface {
	Send(ctx context.Context, phone, text string) error
}

// InvoiceNotifyJob turns queued invoice notifications into outbound messages.
type InvoiceNotifyJob struct {
	Mailer   Mailer
	WhatsApp TextSender
	Logger   *slog.Logger

	printer *message.Printer
}

// NewInvoiceNotifyJob initialises the notification handler.
func NewInvoiceNotifyJob(mailer Mailer, wa TextSender, logger *slog.Logger) *InvoiceNotifyJob {
	return &InvoiceNotifyJob{
		Mailer:   mailer,
		WhatsApp: wa,
		Logger:   logger,
		printer:  message.NewPrinter(language.English),
	}
}

// formatAmount renders an amount with thousands separators for message bodies.
func (j *InvoiceNotifyJob) formatAmount(v float64) string {
	return j.printer.Sprintf("%.2f", v)
}

// HandleEmail processes TaskInvoiceEmail tasks.
func (j *InvoiceNotifyJob) HandleEmail(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("invoice notify: mailer not configured")
	}
	var p InvoiceNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return asynq.SkipRetry
	}
	if p.Email == "" {
		j.Logger.Warn("invoice email skipped, customer has no address",
			slog.Int64("invoice_no", p.InvoiceNo))
		return nil
	}

	subject := fmt.Sprintf("Invoice #%d from EduIMS", p.InvoiceNo)
	amount := j.formatAmount(p.NetAmount)
	text := fmt.Sprintf(
		"Dear %s,\n\nInvoice #%d (%s) dated %s has been issued for a net amount of %s.\n",
		p.CustomerName, p.InvoiceNo, p.InvoiceTitle, p.InvoiceDate, amount)
	if p.Installments > 0 {
		text += fmt.Sprintf("The amount is payable in %d installments.\n", p.Installments)
	}
	text += "\nEduIMS"

	if err := j.Mailer.Send(ctx, p.Email, subject, invoiceEmailHTML(p, amount), text); err != nil {
		j.Logger.Error("invoice email failed",
			slog.Int64("invoice_no", p.InvoiceNo), slog.Any("error", err))
		return err
	}
	j.Logger.Info("invoice email sent",
		slog.Int64("invoice_no", p.InvoiceNo), slog.String("to", p.Email))
	return nil
}

// HandleWhatsApp processes TaskInvoiceWhatsApp tasks.
func (j *InvoiceNotifyJob) HandleWhatsApp(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.WhatsApp == nil {
		return errors.New("invoice notify: whatsapp sender not configured")
	}
	var p InvoiceNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return asynq.SkipRetry
	}
	if p.Phone == "" {
		j.Logger.Warn("invoice whatsapp skipped, customer has no phone",
			slog.Int64("invoice_no", p.InvoiceNo))
		return nil
	}

	text := fmt.Sprintf("Dear %s, invoice #%d dated %s has been issued for %s. EduIMS",
		p.CustomerName, p.InvoiceNo, p.InvoiceDate, j.formatAmount(p.NetAmount))
	if err := j.WhatsApp.Send(ctx, p.Phone, text); err != nil {
		j.Logger.Error("invoice whatsapp failed",
			slog.Int64("invoice_no", p.InvoiceNo), slog.Any("error", err))
		return err
	}
	j.Logger.Info("invoice whatsapp sent", slog.Int64("invoice_no", p.InvoiceNo))
	return nil
}

// HandleLeadStatusEmail processes TaskLeadStatusEmail tasks.
func (j *InvoiceNotifyJob) HandleLeadStatusEmail(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("invoice notify: mailer not configured")
	}
	var p LeadStatusPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return asynq.SkipRetry
	}
	if p.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Lead %q is now %s", p.LeadTitle, p.Status)
	text := fmt.Sprintf("Hi %s,\n\nThe lead %q (%s) moved to status %s.\n\nEduIMS",
		p.UserName, p.LeadTitle, p.CompanyName, p.Status)
	html := fmt.Sprintf("<p>Hi %s,</p><p>The lead <strong>%s</strong> (%s) moved to status <strong>%s</strong>.</p><p>EduIMS</p>",
		p.UserName, p.LeadTitle, p.CompanyName, p.Status)

	if err := j.Mailer.Send(ctx, p.Email, subject, html, text); err != nil {
		j.Logger.Error("lead status email failed",
			slog.String("lead", p.LeadTitle), slog.Any("error", err))
		return err
	}
	return nil
}

func invoiceEmailHTML(p InvoiceNotifyPayload, amount string) string {
	installments := ""
	if p.Installments > 0 {
		installments = fmt.Sprintf("<p>The amount is payable in %d installments.</p>", p.Installments)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Invoice #%d</h2>
  <p>Dear %s,</p>
  <p>Invoice <strong>%s</strong> dated %s has been issued for a net amount of <strong>%s</strong>.</p>
  %s
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">EduIMS</p>
</body>
</html>`, p.InvoiceNo, p.CustomerName, p.InvoiceTitle, p.InvoiceDate, amount, installments)
}
