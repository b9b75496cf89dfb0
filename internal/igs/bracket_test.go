package igs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		name           string
		revenue        int64
		expectedClass  int
		expectedAmount int64
	}{
		{name: "Zero revenue is class 1", revenue: 0, expectedClass: 1, expectedAmount: 20000},
		{name: "Just below class 2 bound", revenue: 499999, expectedClass: 1, expectedAmount: 20000},
		{name: "Exactly on class 2 bound", revenue: 500000, expectedClass: 2, expectedAmount: 30000},
		{name: "Mid class 3", revenue: 1200000, expectedClass: 3, expectedAmount: 40000},
		{name: "Exactly on class 6 bound", revenue: 2500000, expectedClass: 6, expectedAmount: 150000},
		{name: "Just below class 10 bound", revenue: 29999999, expectedClass: 9, expectedAmount: 1000000},
		{name: "Exactly on class 10 bound", revenue: 30000000, expectedClass: 10, expectedAmount: 2000000},
		{name: "Below 50M stays class 10", revenue: 49999999, expectedClass: 10, expectedAmount: 2000000},
		{name: "No class 11 above 50M", revenue: 50000000, expectedClass: 10, expectedAmount: 2000000},
		{name: "Very large revenue stays class 10", revenue: 900000000, expectedClass: 10, expectedAmount: 2000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, amount, err := Classify(decimal.NewFromInt(tt.revenue))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedClass, class)
			assert.True(t, amount.Equal(decimal.NewFromInt(tt.expectedAmount)),
				"expected %d, got %s", tt.expectedAmount, amount)
		})
	}
}

func TestClassifyRejectsNegativeRevenue(t *testing.T) {
	_, _, err := Classify(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrNegativeRevenue)
}

func TestClassifyMonotonicity(t *testing.T) {
	// Walk a dense grid of revenues and check the class never decreases.
	step := decimal.NewFromInt(100000)
	prevClass := 0
	revenue := decimal.Zero
	for i := 0; i < 600; i++ {
		class, _, err := Classify(revenue)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, class, prevClass, "class regressed at revenue %s", revenue)
		prevClass = class
		revenue = revenue.Add(step)
	}
	assert.Equal(t, 10, prevClass)
}

func TestBracketTableIsOrderedAndContiguous(t *testing.T) {
	table := Brackets()
	require.Len(t, table, 10)
	for i, b := range table {
		assert.Equal(t, i+1, b.Class)
		if i > 0 {
			assert.True(t, b.LowerBound.GreaterThan(table[i-1].LowerBound),
				"lower bounds must strictly increase at class %d", b.Class)
			assert.True(t, b.Amount.GreaterThan(table[i-1].Amount),
				"amounts must strictly increase at class %d", b.Class)
		}
	}
	assert.True(t, table[0].LowerBound.IsZero())
}

func TestApplyReduction(t *testing.T) {
	base := decimal.NewFromInt(100000)

	assert.True(t, ApplyReduction(base, true).Equal(decimal.NewFromInt(50000)))
	assert.True(t, ApplyReduction(base, false).Equal(base))

	// Odd base rounds to the whole franc.
	odd := decimal.NewFromInt(20001)
	assert.True(t, ApplyReduction(odd, true).Equal(decimal.NewFromInt(10001)),
		"got %s", ApplyReduction(odd, true))
}

func TestAssess(t *testing.T) {
	a, err := Assess(decimal.NewFromInt(2600000), false)
	require.NoError(t, err)
	assert.Equal(t, 6, a.Class)
	assert.True(t, a.BaseAmount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, a.FinalAmount.Equal(decimal.NewFromInt(150000)))

	a, err = Assess(decimal.NewFromInt(2600000), true)
	require.NoError(t, err)
	assert.True(t, a.FinalAmount.Equal(decimal.NewFromInt(75000)))
	assert.True(t, a.CGAMember)

	_, err = Assess(decimal.NewFromInt(-500), false)
	assert.ErrorIs(t, err, ErrNegativeRevenue)
}
