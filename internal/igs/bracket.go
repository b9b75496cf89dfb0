package igs

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeRevenue is returned by Classify when the annual revenue is below zero.
	ErrNegativeRevenue = errors.New("annual revenue must not be negative")
)

// CGA members pay half of the assessed amount.
var cgaReductionRate = decimal.NewFromFloat(0.5)

// Bracket is one class of the IGS scale: a lower revenue bound (inclusive,
// FCFA) and the fixed annual amount due for that class.
type Bracket struct {
	Class      int
	LowerBound decimal.Decimal
	Amount     decimal.Decimal
}

// brackets is the canonical IGS scale. It is the single source of truth for
// every assessment in the system; no other package may define its own copy.
// Entries are ordered by lower bound, contiguous, and class 10 is unbounded.
var brackets = []Bracket{
	{Class: 1, LowerBound: decimal.Zero, Amount: decimal.NewFromInt(20000)},
	{Class: 2, LowerBound: decimal.NewFromInt(500000), Amount: decimal.NewFromInt(30000)},
	{Class: 3, LowerBound: decimal.NewFromInt(1000000), Amount: decimal.NewFromInt(40000)},
	{Class: 4, LowerBound: decimal.NewFromInt(1500000), Amount: decimal.NewFromInt(50000)},
	{Class: 5, LowerBound: decimal.NewFromInt(2000000), Amount: decimal.NewFromInt(60000)},
	{Class: 6, LowerBound: decimal.NewFromInt(2500000), Amount: decimal.NewFromInt(150000)},
	{Class: 7, LowerBound: decimal.NewFromInt(5000000), Amount: decimal.NewFromInt(300000)},
	{Class: 8, LowerBound: decimal.NewFromInt(10000000), Amount: decimal.NewFromInt(500000)},
	{Class: 9, LowerBound: decimal.NewFromInt(20000000), Amount: decimal.NewFromInt(1000000)},
	{Class: 10, LowerBound: decimal.NewFromInt(30000000), Amount: decimal.NewFromInt(2000000)},
}

// Brackets returns a copy of the canonical scale, for display purposes.
func Brackets() []Bracket {
	out := make([]Bracket, len(brackets))
	copy(out, brackets)
	return out
}

// Assessment is the result of assessing a client's annual revenue.
type Assessment struct {
	Class       int             `json:"class"`
	BaseAmount  decimal.Decimal `json:"baseAmount"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	CGAMember   bool            `json:"cgaMember"`
}

// Classify maps an annual revenue to its IGS class and base amount.
// Negative revenue is rejected; any revenue at or above the class 10 lower
// bound resolves to class 10.
func Classify(annualRevenue decimal.Decimal) (class int, baseAmount decimal.Decimal, err error) {
	if annualRevenue.IsNegative() {
		return 0, decimal.Zero, ErrNegativeRevenue
	}

	// Walk from the top: the first lower bound <= revenue wins.
	for i := len(brackets) - 1; i >= 0; i-- {
		if annualRevenue.GreaterThanOrEqual(brackets[i].LowerBound) {
			return brackets[i].Class, brackets[i].Amount, nil
		}
	}

	// Unreachable: class 1 has a zero lower bound.
	return brackets[0].Class, brackets[0].Amount, nil
}

// ApplyReduction applies the CGA membership reduction to a base amount,
// rounding to the whole FCFA. Non-members pay the base amount unchanged.
func ApplyReduction(baseAmount decimal.Decimal, cgaMember bool) decimal.Decimal {
	if !cgaMember {
		return baseAmount
	}
	return baseAmount.Mul(cgaReductionRate).Round(0)
}

// Assess combines Classify and ApplyReduction into a full assessment.
func Assess(annualRevenue decimal.Decimal, cgaMember bool) (Assessment, error) {
	class, base, err := Classify(annualRevenue)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Class:       class,
		BaseAmount:  base,
		FinalAmount: ApplyReduction(base, cgaMember),
		CGAMember:   cgaMember,
	}, nil
}
