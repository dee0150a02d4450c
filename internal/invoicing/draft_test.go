package invoicing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func productRow(qty, rate, cgs, discount float64) DetailRow {
	return DetailRow{
		InvoiceType:    TypeProduct,
		BusinessUnitID: 1,
		ProductID:      10,
		BranchID:       5,
		Quantity:       qty,
		Rate:           rate,
		CGS:            cgs,
		Discount:       discount,
	}
}

func TestDraftAppendRowRecomputesTotals(t *testing.T) {
	d := NewDraft()
	d.SetCustomer(1, 2)

	require.NoError(t, d.AppendRow(productRow(2, 100, 50, 20)))
	require.NoError(t, d.AppendRow(productRow(1, 300, 120, 0)))

	totals := d.Totals()
	require.Equal(t, 500.0, totals.TotalRate)
	require.Equal(t, 170.0, totals.TotalCGS)
	require.Equal(t, 20.0, totals.TotalDiscount)
	require.Equal(t, 480.0, totals.TotalNetAmount)
	require.Equal(t, 480.0, d.Balance().TotalAmount)
	require.Equal(t, 480.0, d.Balance().TotalRemaining)
}

func TestDraftAppendRowRejectsIncompleteSubForm(t *testing.T) {
	d := NewDraft()

	row := productRow(1, 100, 0, 0)
	row.ProductID = 0
	require.ErrorIs(t, d.AppendRow(row), ErrIncompleteRow)

	row = productRow(1, 100, 0, 0)
	row.BusinessUnitID = 0
	require.ErrorIs(t, d.AppendRow(row), ErrIncompleteRow)

	svcRow := productRow(1, 100, 0, 0)
	svcRow.InvoiceType = TypeService
	require.ErrorIs(t, d.AppendRow(svcRow), ErrIncompleteRow)

	svcID := int64(3)
	svcRow.ServiceID = &svcID
	require.NoError(t, d.AppendRow(svcRow))
}

func TestDraftRowEditsCascade(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.AppendRow(productRow(2, 100, 0, 0)))
	require.Equal(t, 200.0, d.Totals().TotalNetAmount)

	require.NoError(t, d.SetRowDiscount(0, 50))
	require.Equal(t, 150.0, d.Totals().TotalNetAmount)

	require.NoError(t, d.SetRowRate(0, 200))
	require.Equal(t, 350.0, d.Totals().TotalNetAmount) // 2*200 - 50

	require.NoError(t, d.SetRowFree(0, true))
	require.Zero(t, d.Totals().TotalNetAmount)
	require.Zero(t, d.Totals().TotalRate)

	require.ErrorIs(t, d.SetRowRate(3, 10), ErrRowIndexOutOfRange)
}

func TestDraftTypeChangeClearsService(t *testing.T) {
	d := NewDraft()
	svcID := int64(9)
	row := productRow(1, 100, 0, 0)
	row.InvoiceType = TypeService
	row.ServiceID = &svcID
	require.NoError(t, d.AppendRow(row))

	require.NoError(t, d.SetRowType(0, TypeSoftware))
	require.Nil(t, d.Rows()[0].ServiceID)
}

func TestDraftCustomerChangeClearsRows(t *testing.T) {
	d := NewDraft()
	d.SetCustomer(1, 2)
	require.NoError(t, d.AppendRow(productRow(1, 100, 0, 0)))
	require.NoError(t, d.AppendInstallment(time.Now()))

	d.SetCustomer(1, 2)
	require.Len(t, d.Rows(), 1) // same customer keeps the grid

	d.SetCustomer(7, 8)
	require.Empty(t, d.Rows())
	require.Zero(t, d.Totals().TotalNetAmount)
}

func TestDraftRemoveRows(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.AppendRow(productRow(1, 100, 0, 0)))
	require.NoError(t, d.AppendRow(productRow(1, 200, 0, 0)))

	require.NoError(t, d.RemoveRow(0))
	require.Equal(t, 200.0, d.Totals().TotalNetAmount)

	d.RemoveAllRows()
	require.Empty(t, d.Rows())
	require.Zero(t, d.Totals().TotalNetAmount)
}

func TestDraftInstallmentAppendGate(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.AppendRow(productRow(1, 1000, 0, 0)))

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, d.AppendInstallment(due))
	require.NoError(t, d.SetInstallmentAmount(0, 600))
	require.NoError(t, d.AppendInstallment(due.AddDate(0, 1, 0)))
	require.NoError(t, d.SetInstallmentAmount(1, 400))
	require.Zero(t, d.Balance().TotalRemaining)

	// fully allocated plan refuses another row
	require.ErrorIs(t, d.AppendInstallment(due.AddDate(0, 2, 0)), ErrInstallmentsSettled)

	require.NoError(t, d.RemoveInstallment(1))
	require.Equal(t, 400.0, d.Balance().TotalRemaining)
	require.NoError(t, d.AppendInstallment(due.AddDate(0, 2, 0)))
}

func TestLoadDraftDropsZeroInstallmentsAndRederives(t *testing.T) {
	inv := &Invoice{
		CustomerID: 1,
		AccountID:  2,
		Detail: []DetailRow{
			// stored derived fields are stale on purpose
			{InvoiceType: TypeProduct, BusinessUnitID: 1, ProductID: 3, Quantity: 2, Rate: 100, Discount: 20, Amount: 999, NetAmount: 999},
		},
		Installments: []InstallmentRow{
			{DueDate: time.Now(), Amount: 180},
			{DueDate: time.Now(), Amount: 0},
		},
	}
	d := LoadDraft(inv)
	require.Len(t, d.Installments(), 1)
	require.Equal(t, 180.0, d.Totals().TotalNetAmount)
	require.Zero(t, d.Balance().TotalRemaining)
	require.NoError(t, d.Validate())
}

func TestDraftValidate(t *testing.T) {
	d := NewDraft()
	require.ErrorIs(t, d.Validate(), ErrNoDetailRows)

	require.NoError(t, d.AppendRow(productRow(1, 500, 0, 0)))
	require.NoError(t, d.Validate()) // zero installments is a valid state

	require.NoError(t, d.AppendInstallment(time.Now()))
	require.NoError(t, d.SetInstallmentAmount(0, 200))
	require.ErrorIs(t, d.Validate(), ErrInstallmentsBelowTotal)

	require.NoError(t, d.SetInstallmentAmount(0, 700))
	require.ErrorIs(t, d.Validate(), ErrInstallmentsExceedTotal)

	require.NoError(t, d.SetInstallmentAmount(0, 500))
	require.NoError(t, d.Validate())
}
