package invoicing

import "time"

// Draft is the mutable invoice being assembled, either a blank one or an
// existing record loaded for editing. Every mutation recomputes the derived
// fields synchronously, so Totals and Balance are always consistent with the
// rows the moment a mutator returns.
type Draft struct {
	CustomerID int64
	AccountID  int64

	rows         []DetailRow
	installments []InstallmentRow
	totals       InvoiceTotals
	balance      InstallmentTotals
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	d := &Draft{}
	d.recompute()
	return d
}

// LoadDraft rebuilds a draft from a persisted invoice. Stored derived fields
// are discarded and recomputed, and installment rows with a zero amount are
// dropped rather than surfaced as empty schedule lines.
func LoadDraft(inv *Invoice) *Draft {
	d := &Draft{
		CustomerID: inv.CustomerID,
		AccountID:  inv.AccountID,
	}
	for _, row := range inv.Detail {
		d.rows = append(d.rows, NormalizeRow(row))
	}
	for _, in := range inv.Installments {
		if num(in.Amount) == 0 {
			continue
		}
		d.installments = append(d.installments, in)
	}
	d.recompute()
	return d
}

func (d *Draft) recompute() {
	d.totals = CalculateTotals(d.rows)
	d.balance = BalanceInstallments(d.totals.TotalNetAmount, d.installments)
}

// Rows returns a copy of the detail rows.
func (d *Draft) Rows() []DetailRow {
	out := make([]DetailRow, len(d.rows))
	copy(out, d.rows)
	return out
}

// Installments returns a copy of the installment rows.
func (d *Draft) Installments() []InstallmentRow {
	out := make([]InstallmentRow, len(d.installments))
	copy(out, d.installments)
	return out
}

// Totals returns the current invoice aggregates.
func (d *Draft) Totals() InvoiceTotals { return d.totals }

// Balance returns the current installment aggregates.
func (d *Draft) Balance() InstallmentTotals { return d.balance }

// SetCustomer changes the invoice customer. Detail rows reference branches
// and prices scoped to the customer, so switching to a different customer
// clears the grid.
func (d *Draft) SetCustomer(customerID, accountID int64) {
	if d.CustomerID != 0 && d.CustomerID != customerID {
		d.rows = nil
	}
	d.CustomerID = customerID
	d.AccountID = accountID
	d.recompute()
}

// AppendRow validates the entry sub-form and appends a normalized row to the
// grid. The row must name a product and business unit, and a service when the
// invoice type is Service.
func (d *Draft) AppendRow(row DetailRow) error {
	if !row.InvoiceType.Valid() {
		row.InvoiceType = TypeProduct
	}
	row = NormalizeRow(row)
	if !rowComplete(row) {
		return ErrIncompleteRow
	}
	d.rows = append(d.rows, row)
	d.recompute()
	return nil
}

// RemoveRow deletes the row at index i and recomputes the totals.
func (d *Draft) RemoveRow(i int) error {
	if i < 0 || i >= len(d.rows) {
		return ErrRowIndexOutOfRange
	}
	d.rows = append(d.rows[:i], d.rows[i+1:]...)
	d.recompute()
	return nil
}

// RemoveAllRows clears the grid.
func (d *Draft) RemoveAllRows() {
	d.rows = nil
	d.recompute()
}

func (d *Draft) mutateRow(i int, changed Field, apply func(*DetailRow)) error {
	if i < 0 || i >= len(d.rows) {
		return ErrRowIndexOutOfRange
	}
	apply(&d.rows[i])
	d.rows[i] = RecalculateLine(d.rows[i], changed)
	d.recompute()
	return nil
}

// SetRowQuantity updates a row quantity and rederives its amounts.
func (d *Draft) SetRowQuantity(i int, v float64) error {
	return d.mutateRow(i, FieldQuantity, func(r *DetailRow) { r.Quantity = num(v) })
}

// SetRowRate updates a row rate and rederives its amounts.
func (d *Draft) SetRowRate(i int, v float64) error {
	return d.mutateRow(i, FieldRate, func(r *DetailRow) { r.Rate = num(v) })
}

// SetRowCGS updates a row cost of goods sold. Nothing derives from it.
func (d *Draft) SetRowCGS(i int, v float64) error {
	return d.mutateRow(i, FieldCGS, func(r *DetailRow) { r.CGS = num(v) })
}

// SetRowDiscount updates a row discount and rederives its net amount.
func (d *Draft) SetRowDiscount(i int, v float64) error {
	return d.mutateRow(i, FieldDiscount, func(r *DetailRow) { r.Discount = num(v) })
}

// SetRowFree toggles the free flag. Marking a row free zeroes its rate,
// amount, discount and net amount; clearing the flag leaves the zeroed values
// in place until the next quantity, rate or discount edit.
func (d *Draft) SetRowFree(i int, free bool) error {
	return d.mutateRow(i, FieldIsFree, func(r *DetailRow) { r.IsFree = free })
}

// SetRowType changes the invoice type of a row. Moving away from Service
// clears the row's service reference.
func (d *Draft) SetRowType(i int, t InvoiceType) error {
	if !t.Valid() {
		t = TypeProduct
	}
	return d.mutateRow(i, FieldInvoiceType, func(r *DetailRow) { r.InvoiceType = t })
}

// AppendInstallment adds a schedule row with a zero amount. It is refused
// once the plan already allocates the full net total.
func (d *Draft) AppendInstallment(due time.Time) error {
	if d.balance.TotalRemaining == 0 {
		return ErrInstallmentsSettled
	}
	d.installments = append(d.installments, InstallmentRow{DueDate: due})
	d.recompute()
	return nil
}

// SetInstallmentAmount updates a schedule row amount and rebalances the plan.
func (d *Draft) SetInstallmentAmount(i int, v float64) error {
	if i < 0 || i >= len(d.installments) {
		return ErrRowIndexOutOfRange
	}
	d.installments[i].Amount = num(v)
	d.recompute()
	return nil
}

// SetInstallmentDueDate updates a schedule row due date.
func (d *Draft) SetInstallmentDueDate(i int, due time.Time) error {
	if i < 0 || i >= len(d.installments) {
		return ErrRowIndexOutOfRange
	}
	d.installments[i].DueDate = due
	return nil
}

// RemoveInstallment deletes a schedule row and rebalances the plan.
func (d *Draft) RemoveInstallment(i int) error {
	if i < 0 || i >= len(d.installments) {
		return ErrRowIndexOutOfRange
	}
	d.installments = append(d.installments[:i], d.installments[i+1:]...)
	d.recompute()
	return nil
}

// Validate runs the save gates over the draft's current state.
func (d *Draft) Validate() error {
	return ValidateSubmission(d.rows, d.installments, d.totals, d.balance)
}
