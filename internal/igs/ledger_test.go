package igs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReplacesNotAccumulates(t *testing.T) {
	var ledger Ledger

	require.NoError(t, ledger.Record(Q1, decimal.NewFromInt(1000), "REC-001", nil))
	require.NoError(t, ledger.Record(Q1, decimal.NewFromInt(2000), "REC-002", nil))

	p := ledger.Payment(Q1)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(2000)), "got %s", p.Amount)
	assert.Equal(t, "REC-002", p.ReceiptReference)
}

func TestRecordValidation(t *testing.T) {
	var ledger Ledger

	err := ledger.Record(Q2, decimal.NewFromInt(-100), "", nil)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.True(t, ledger.Payment(Q2).Amount.IsZero(), "rejected payment must not change the ledger")

	err = ledger.Record(Quarter(5), decimal.NewFromInt(100), "", nil)
	assert.ErrorIs(t, err, ErrInvalidQuarter)

	err = ledger.Record(Quarter(0), decimal.NewFromInt(100), "", nil)
	assert.ErrorIs(t, err, ErrInvalidQuarter)
}

func TestRecordKeepsReceiptAndDate(t *testing.T) {
	var ledger Ledger
	date := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Record(Q3, decimal.NewFromInt(50000), "QT-2025-113", &date))

	p := ledger.Payment(Q3)
	assert.Equal(t, "QT-2025-113", p.ReceiptReference)
	require.NotNil(t, p.PaymentDate)
	assert.True(t, p.PaymentDate.Equal(date))
}

func TestReconcileTotals(t *testing.T) {
	var ledger Ledger
	require.NoError(t, ledger.Record(Q1, decimal.NewFromInt(50000), "", nil))
	require.NoError(t, ledger.Record(Q2, decimal.NewFromInt(50000), "", nil))

	totals := ledger.Reconcile(decimal.NewFromInt(150000))
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(100000)))
	assert.True(t, totals.BalanceRemaining.Equal(decimal.NewFromInt(50000)))
}

func TestReconcileFloorsBalanceAtZero(t *testing.T) {
	var ledger Ledger
	require.NoError(t, ledger.Record(Q1, decimal.NewFromInt(80000), "", nil))

	totals := ledger.Reconcile(decimal.NewFromInt(50000))
	assert.True(t, totals.BalanceRemaining.IsZero(), "overpayment must be absorbed, got %s", totals.BalanceRemaining)
	assert.True(t, totals.TotalPaid.Equal(decimal.NewFromInt(80000)))
}

func TestReconcileAfterAssessmentChange(t *testing.T) {
	// Payments recorded against one assessment stay in place when the
	// assessment changes; reconciling fresh picks up the new amount due.
	var ledger Ledger
	require.NoError(t, ledger.Record(Q1, decimal.NewFromInt(50000), "", nil))
	require.NoError(t, ledger.Record(Q2, decimal.NewFromInt(50000), "", nil))

	before, err := Assess(decimal.NewFromInt(2600000), false)
	require.NoError(t, err)
	assert.True(t, ledger.Reconcile(before.FinalAmount).BalanceRemaining.Equal(decimal.NewFromInt(50000)))

	// Client registers with a CGA: the amount due halves to 75000, the
	// 100000 already paid now overshoots, balance floors at zero.
	after, err := Assess(decimal.NewFromInt(2600000), true)
	require.NoError(t, err)
	assert.True(t, after.FinalAmount.Equal(decimal.NewFromInt(75000)))
	assert.True(t, ledger.Reconcile(after.FinalAmount).BalanceRemaining.IsZero())
}

func TestParseQuarter(t *testing.T) {
	for label, want := range map[string]Quarter{"Q1": Q1, "Q2": Q2, "Q3": Q3, "Q4": Q4} {
		q, err := ParseQuarter(label)
		require.NoError(t, err)
		assert.Equal(t, want, q)
		assert.Equal(t, label, q.String())
	}

	_, err := ParseQuarter("Q5")
	assert.ErrorIs(t, err, ErrInvalidQuarter)
	_, err = ParseQuarter("")
	assert.ErrorIs(t, err, ErrInvalidQuarter)
}
