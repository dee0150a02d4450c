package invoicing

import "math"

// Field names a detail row input whose change triggers a recalculation.
type Field string

const (
	FieldQuantity    Field = "quantity"
	FieldRate        Field = "rate"
	FieldCGS         Field = "cgs"
	FieldDiscount    Field = "discount"
	FieldIsFree      Field = "is_free"
	FieldInvoiceType Field = "invoice_type"
)

// num coerces NaN and infinities to zero so a stray value can never poison
// a derived amount or a running total.
func num(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// RecalculateLine applies the per-row derivation rules after a single field
// changed and returns the updated row.
//
// Amount is always Quantity * Rate and NetAmount is always Amount - Discount.
// A free row has Rate, Amount, Discount and NetAmount forced to zero while
// Quantity and CGS keep their values. Moving the type away from Service
// clears the service reference. CGS is stored as entered and never feeds
// Amount or NetAmount.
func RecalculateLine(row DetailRow, changed Field) DetailRow {
	switch changed {
	case FieldQuantity, FieldRate:
		if !row.IsFree {
			row.Amount = num(row.Quantity) * num(row.Rate)
			row.NetAmount = row.Amount - num(row.Discount)
		}
	case FieldDiscount:
		if !row.IsFree {
			row.NetAmount = num(row.Amount) - num(row.Discount)
		}
	case FieldIsFree:
		if row.IsFree {
			row.Rate = 0
			row.Amount = 0
			row.Discount = 0
			row.NetAmount = 0
		}
	case FieldInvoiceType:
		if !row.InvoiceType.RequiresService() {
			row.ServiceID = nil
		}
	case FieldCGS:
		// stored as entered, nothing derives from it
	}
	return row
}

// NormalizeRow derives Amount and NetAmount from scratch, regardless of what
// the caller supplied for them. Used when a row enters the grid or arrives
// over the wire, so derived fields can never be forged.
func NormalizeRow(row DetailRow) DetailRow {
	if !row.InvoiceType.RequiresService() {
		row.ServiceID = nil
	}
	if row.IsFree {
		row.Rate = 0
		row.Amount = 0
		row.Discount = 0
		row.NetAmount = 0
		return row
	}
	row.Amount = num(row.Quantity) * num(row.Rate)
	row.NetAmount = row.Amount - num(row.Discount)
	return row
}

// CalculateTotals recomputes the invoice aggregates from the full row set.
// A full pass keeps the operation idempotent: running it twice over unchanged
// rows yields identical totals.
func CalculateTotals(rows []DetailRow) InvoiceTotals {
	var t InvoiceTotals
	for _, row := range rows {
		t.TotalRate += num(row.Rate) * num(row.Quantity)
		t.TotalCGS += num(row.CGS)
		t.TotalDiscount += num(row.Discount)
		t.TotalNetAmount += num(row.NetAmount)
	}
	return t
}

// BalanceInstallments derives the installment aggregates. TotalAmount mirrors
// the invoice net total; TotalRemaining is what the plan has not yet covered.
func BalanceInstallments(netTotal float64, installments []InstallmentRow) InstallmentTotals {
	b := InstallmentTotals{TotalAmount: num(netTotal)}
	allocated := 0.0
	for _, in := range installments {
		allocated += num(in.Amount)
	}
	b.TotalRemaining = b.TotalAmount - allocated
	return b
}
