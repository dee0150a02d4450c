package invoicing

import "errors"

// Submission gate errors, in the order the gates run. The first failing gate
// wins; later ones are not evaluated.
var (
	ErrNoDetailRows            = errors.New("invoice has no detail rows")
	ErrIncompleteRow           = errors.New("detail row is missing a product, business unit or service reference")
	ErrZeroNetTotal            = errors.New("invoice net total is zero")
	ErrInstallmentsExceedTotal = errors.New("installments exceed the invoice net total")
	ErrInstallmentsBelowTotal  = errors.New("installments must equal the invoice net total")

	// ErrInstallmentsSettled rejects appending a row to a fully allocated plan.
	ErrInstallmentsSettled = errors.New("installment plan is already fully allocated")

	ErrRowIndexOutOfRange = errors.New("detail row index out of range")
)

// rowComplete reports whether a detail row carries every mandatory reference.
func rowComplete(row DetailRow) bool {
	if row.ProductID == 0 || row.BusinessUnitID == 0 {
		return false
	}
	if row.InvoiceType.RequiresService() && (row.ServiceID == nil || *row.ServiceID == 0) {
		return false
	}
	return true
}

// ValidateSubmission runs the ordered save gates over the full invoice state.
// It returns nil when the invoice may be persisted.
//
// An invoice with zero installment rows is valid: installment plans are
// optional, but once one exists it must allocate the net total exactly.
func ValidateSubmission(rows []DetailRow, installments []InstallmentRow, totals InvoiceTotals, balance InstallmentTotals) error {
	if len(rows) == 0 {
		return ErrNoDetailRows
	}
	for _, row := range rows {
		if !rowComplete(row) {
			return ErrIncompleteRow
		}
	}
	if totals.TotalNetAmount == 0 {
		return ErrZeroNetTotal
	}
	if balance.TotalRemaining < 0 {
		return ErrInstallmentsExceedTotal
	}
	if balance.TotalRemaining > 0 && len(installments) > 0 {
		return ErrInstallmentsBelowTotal
	}
	return nil
}
