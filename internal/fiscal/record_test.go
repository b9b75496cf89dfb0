package fiscal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetApplicableForcesSettledOff(t *testing.T) {
	rec := &ObligationRecord{Type: ObligationPatente, Applicable: true, Settled: true}

	rec.SetApplicable(false)

	assert.False(t, rec.Applicable)
	assert.False(t, rec.Settled, "clearing applicability must clear settlement")
}

func TestSetApplicablePreservesIGSDetail(t *testing.T) {
	rec := &ObligationRecord{Type: ObligationIGS, Applicable: true}
	status := rec.EnsureIGS()
	status.AnnualRevenue = decimal.NewFromInt(2600000)
	require.NoError(t, status.Recompute())
	require.NoError(t, status.Ledger.Record(1, decimal.NewFromInt(50000), "", nil))

	rec.SetApplicable(false)
	require.NotNil(t, rec.IGS, "toggling off must not discard IGS state")

	rec.SetApplicable(true)
	assert.True(t, rec.IGS.AnnualRevenue.Equal(decimal.NewFromInt(2600000)))
	assert.True(t, rec.IGS.Ledger.TotalPaid().Equal(decimal.NewFromInt(50000)))
}

func TestSetSettledRequiresApplicable(t *testing.T) {
	rec := &ObligationRecord{Type: ObligationDSF}

	err := rec.SetSettled(true)
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.False(t, rec.Settled)

	// Un-settling is always allowed, applicable or not.
	require.NoError(t, rec.SetSettled(false))
}

func TestDeclarationRecordCycles(t *testing.T) {
	// NotApplicable -> Applicable/NotFiled -> Applicable/Filed -> NotApplicable,
	// repeatable every year.
	rec := &ObligationRecord{Type: ObligationDARP}

	for year := 0; year < 3; year++ {
		rec.SetApplicable(true)
		assert.True(t, rec.Applicable)
		assert.False(t, rec.Settled)

		require.NoError(t, rec.SetSettled(true))
		assert.True(t, rec.Settled)

		rec.SetApplicable(false)
		assert.False(t, rec.Settled)
	}
}

func TestIGSStatusRecompute(t *testing.T) {
	status := &IGSStatus{AnnualRevenue: decimal.NewFromInt(2600000)}
	require.NoError(t, status.Recompute())

	assert.Equal(t, 6, status.Assessment.Class)
	assert.True(t, status.Assessment.FinalAmount.Equal(decimal.NewFromInt(150000)))

	require.NoError(t, status.Ledger.Record(1, decimal.NewFromInt(50000), "", nil))
	require.NoError(t, status.Ledger.Record(2, decimal.NewFromInt(50000), "", nil))
	require.NoError(t, status.Recompute())
	assert.True(t, status.TotalPaid.Equal(decimal.NewFromInt(100000)))
	assert.True(t, status.BalanceRemaining.Equal(decimal.NewFromInt(50000)))

	// Joining a CGA halves the due amount; the recorded payments now cover
	// it fully and the balance floors at zero.
	status.CGAMember = true
	require.NoError(t, status.Recompute())
	assert.True(t, status.Assessment.FinalAmount.Equal(decimal.NewFromInt(75000)))
	assert.True(t, status.BalanceRemaining.IsZero())
}

func TestIGSStatusRecomputeRejectsNegativeRevenue(t *testing.T) {
	status := &IGSStatus{AnnualRevenue: decimal.NewFromInt(-1)}
	err := status.Recompute()
	assert.Error(t, err)
}

func TestValidObligationType(t *testing.T) {
	for _, typ := range ObligationTypes {
		assert.True(t, ValidObligationType(typ), typ)
	}
	assert.False(t, ValidObligationType("is"))
	assert.False(t, ValidObligationType(""))
}
