package invoicing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func completeRow(net float64) DetailRow {
	return NormalizeRow(DetailRow{
		InvoiceType:    TypeProduct,
		BusinessUnitID: 1,
		ProductID:      2,
		Quantity:       1,
		Rate:           net,
	})
}

func gateInput(rows []DetailRow, installments []InstallmentRow) ([]DetailRow, []InstallmentRow, InvoiceTotals, InstallmentTotals) {
	totals := CalculateTotals(rows)
	return rows, installments, totals, BalanceInstallments(totals.TotalNetAmount, installments)
}

func TestValidateSubmissionGateOrder(t *testing.T) {
	// empty grid wins over everything else
	require.ErrorIs(t, ValidateSubmission(gateInput(nil, nil)), ErrNoDetailRows)

	// incomplete row wins over the zero total it causes
	rows := []DetailRow{{InvoiceType: TypeProduct}}
	require.ErrorIs(t, ValidateSubmission(gateInput(rows, nil)), ErrIncompleteRow)

	// all-free rows produce a zero net total
	free := completeRow(100)
	free.IsFree = true
	free = RecalculateLine(free, FieldIsFree)
	require.ErrorIs(t, ValidateSubmission(gateInput([]DetailRow{free}, nil)), ErrZeroNetTotal)
}

func TestValidateSubmissionIncompleteVariants(t *testing.T) {
	missingProduct := completeRow(100)
	missingProduct.ProductID = 0
	require.ErrorIs(t, ValidateSubmission(gateInput([]DetailRow{missingProduct}, nil)), ErrIncompleteRow)

	missingUnit := completeRow(100)
	missingUnit.BusinessUnitID = 0
	require.ErrorIs(t, ValidateSubmission(gateInput([]DetailRow{missingUnit}, nil)), ErrIncompleteRow)

	serviceNoRef := completeRow(100)
	serviceNoRef.InvoiceType = TypeService
	require.ErrorIs(t, ValidateSubmission(gateInput([]DetailRow{serviceNoRef}, nil)), ErrIncompleteRow)
}

func TestValidateSubmissionInstallmentBalance(t *testing.T) {
	rows := []DetailRow{completeRow(1000)}

	over := []InstallmentRow{{Amount: 600}, {Amount: 600}}
	require.ErrorIs(t, ValidateSubmission(gateInput(rows, over)), ErrInstallmentsExceedTotal)

	under := []InstallmentRow{{Amount: 600}}
	require.ErrorIs(t, ValidateSubmission(gateInput(rows, under)), ErrInstallmentsBelowTotal)

	exact := []InstallmentRow{{Amount: 600}, {Amount: 400}}
	require.NoError(t, ValidateSubmission(gateInput(rows, exact)))

	// no plan at all is fine
	require.NoError(t, ValidateSubmission(gateInput(rows, nil)))
}
