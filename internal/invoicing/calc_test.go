package invoicing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecalculateLineQuantityAndRate(t *testing.T) {
	row := DetailRow{Quantity: 4, Rate: 250, Discount: 100}
	row = RecalculateLine(row, FieldRate)
	require.Equal(t, 1000.0, row.Amount)
	require.Equal(t, 900.0, row.NetAmount)

	row.Quantity = 2
	row = RecalculateLine(row, FieldQuantity)
	require.Equal(t, 500.0, row.Amount)
	require.Equal(t, 400.0, row.NetAmount)
}

func TestRecalculateLineDiscountOnlyTouchesNet(t *testing.T) {
	row := DetailRow{Quantity: 2, Rate: 100}
	row = RecalculateLine(row, FieldQuantity)
	require.Equal(t, 200.0, row.Amount)

	row.Discount = 20
	row = RecalculateLine(row, FieldDiscount)
	require.Equal(t, 200.0, row.Amount)
	require.Equal(t, 180.0, row.NetAmount)
}

func TestRecalculateLineFreeZeroesMoneyFields(t *testing.T) {
	row := DetailRow{Quantity: 3, Rate: 50, CGS: 40, Discount: 10}
	row = RecalculateLine(row, FieldQuantity)
	require.Equal(t, 150.0, row.Amount)

	row.IsFree = true
	row = RecalculateLine(row, FieldIsFree)
	require.Zero(t, row.Rate)
	require.Zero(t, row.Amount)
	require.Zero(t, row.Discount)
	require.Zero(t, row.NetAmount)
	// quantity and cost of goods sold survive the toggle
	require.Equal(t, 3.0, row.Quantity)
	require.Equal(t, 40.0, row.CGS)
}

func TestRecalculateLineFreeRowIgnoresEdits(t *testing.T) {
	row := DetailRow{IsFree: true}
	row.Quantity = 5
	row = RecalculateLine(row, FieldQuantity)
	require.Zero(t, row.Amount)
	require.Zero(t, row.NetAmount)

	row.Discount = 30
	row = RecalculateLine(row, FieldDiscount)
	require.Zero(t, row.NetAmount)
}

func TestRecalculateLineCGSNeverFeedsAmounts(t *testing.T) {
	row := DetailRow{Quantity: 1, Rate: 100}
	row = RecalculateLine(row, FieldRate)
	row.CGS = 9999
	row = RecalculateLine(row, FieldCGS)
	require.Equal(t, 100.0, row.Amount)
	require.Equal(t, 100.0, row.NetAmount)
	require.Equal(t, 9999.0, row.CGS)
}

func TestRecalculateLineTypeChangeClearsService(t *testing.T) {
	svc := int64(7)
	row := DetailRow{InvoiceType: TypeService, ServiceID: &svc}

	row.InvoiceType = TypeProduct
	row = RecalculateLine(row, FieldInvoiceType)
	require.Nil(t, row.ServiceID)
}

func TestNormalizeRowDerivesFromScratch(t *testing.T) {
	// forged derived fields are discarded
	row := NormalizeRow(DetailRow{InvoiceType: TypeProduct, Quantity: 2, Rate: 100, Discount: 20, Amount: 1, NetAmount: 1})
	require.Equal(t, 200.0, row.Amount)
	require.Equal(t, 180.0, row.NetAmount)

	free := NormalizeRow(DetailRow{InvoiceType: TypeProduct, Quantity: 2, Rate: 100, IsFree: true, CGS: 30})
	require.Zero(t, free.Rate)
	require.Zero(t, free.Amount)
	require.Zero(t, free.NetAmount)
	require.Equal(t, 2.0, free.Quantity)
	require.Equal(t, 30.0, free.CGS)
}

func TestCalculateTotals(t *testing.T) {
	rows := []DetailRow{
		NormalizeRow(DetailRow{Quantity: 2, Rate: 100, CGS: 50, Discount: 20}),
		NormalizeRow(DetailRow{Quantity: 1, Rate: 300, CGS: 120, Discount: 0}),
		NormalizeRow(DetailRow{Quantity: 5, Rate: 10, CGS: 5, Discount: 10, IsFree: true}),
	}
	totals := CalculateTotals(rows)
	require.Equal(t, 500.0, totals.TotalRate) // 200 + 300 + 0 (free row rate zeroed)
	require.Equal(t, 175.0, totals.TotalCGS)  // cgs survives the free flag
	require.Equal(t, 20.0, totals.TotalDiscount)
	require.Equal(t, 480.0, totals.TotalNetAmount)
}

func TestCalculateTotalsIdempotent(t *testing.T) {
	rows := []DetailRow{
		NormalizeRow(DetailRow{Quantity: 3, Rate: 40, Discount: 5}),
	}
	first := CalculateTotals(rows)
	second := CalculateTotals(rows)
	require.Equal(t, first, second)
}

func TestCalculateTotalsCoercesBadNumbers(t *testing.T) {
	rows := []DetailRow{
		{Quantity: math.NaN(), Rate: math.Inf(1), CGS: math.NaN(), Discount: 0, NetAmount: math.Inf(-1)},
	}
	totals := CalculateTotals(rows)
	require.Zero(t, totals.TotalRate)
	require.Zero(t, totals.TotalCGS)
	require.Zero(t, totals.TotalNetAmount)
}

func TestBalanceInstallments(t *testing.T) {
	b := BalanceInstallments(1000, []InstallmentRow{{Amount: 400}, {Amount: 350}})
	require.Equal(t, 1000.0, b.TotalAmount)
	require.Equal(t, 250.0, b.TotalRemaining)

	exact := BalanceInstallments(1000, []InstallmentRow{{Amount: 600}, {Amount: 400}})
	require.Zero(t, exact.TotalRemaining)

	over := BalanceInstallments(1000, []InstallmentRow{{Amount: 1100}})
	require.Equal(t, -100.0, over.TotalRemaining)
}

func TestAmountUnmarshalLenient(t *testing.T) {
	cases := map[string]float64{
		`120.5`:   120.5,
		`"85"`:    85,
		`""`:      0,
		`null`:    0,
		`"abc"`:   0,
		`"12,00"`: 0,
	}
	for raw, want := range cases {
		var a Amount
		require.NoError(t, a.UnmarshalJSON([]byte(raw)), raw)
		require.Equal(t, want, float64(a), raw)
	}
}
