package igs

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned by Record when the payment amount is below zero.
	ErrNegativeAmount = errors.New("payment amount must not be negative")
	// ErrInvalidQuarter is returned when the period is outside Q1..Q4.
	ErrInvalidQuarter = errors.New("payment period must be Q1..Q4")
)

// Quarter identifies one of the four IGS payment periods.
type Quarter int

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// QuarterCount is the number of payment periods in a fiscal year.
const QuarterCount = 4

// ParseQuarter converts a wire label ("Q1".."Q4") to a Quarter.
func ParseQuarter(label string) (Quarter, error) {
	switch label {
	case "Q1":
		return Q1, nil
	case "Q2":
		return Q2, nil
	case "Q3":
		return Q3, nil
	case "Q4":
		return Q4, nil
	}
	return 0, ErrInvalidQuarter
}

func (q Quarter) String() string {
	switch q {
	case Q1:
		return "Q1"
	case Q2:
		return "Q2"
	case Q3:
		return "Q3"
	case Q4:
		return "Q4"
	}
	return "Q?"
}

// Payment is the recorded payment for a single quarter. A zero Amount with no
// receipt means the quarter has not been paid yet.
type Payment struct {
	Amount           decimal.Decimal `json:"amount"`
	ReceiptReference string          `json:"receiptReference,omitempty"`
	PaymentDate      *time.Time      `json:"paymentDate,omitempty"`
}

// Ledger holds the four quarterly payments of one fiscal year.
type Ledger struct {
	Payments [QuarterCount]Payment `json:"payments"`
}

// Totals is the reconciliation of a ledger against an assessed amount.
type Totals struct {
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	BalanceRemaining decimal.Decimal `json:"balanceRemaining"`
}

// Record sets the payment for a quarter. Re-recording a quarter REPLACES the
// previous amount, it never accumulates. Negative amounts are rejected and
// leave the ledger unchanged.
func (l *Ledger) Record(q Quarter, amount decimal.Decimal, receiptRef string, date *time.Time) error {
	if q < Q1 || q > Q4 {
		return ErrInvalidQuarter
	}
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	l.Payments[q-1] = Payment{
		Amount:           amount,
		ReceiptReference: receiptRef,
		PaymentDate:      date,
	}
	return nil
}

// Payment returns the recorded payment for a quarter. Out-of-range quarters
// return the zero Payment.
func (l *Ledger) Payment(q Quarter) Payment {
	if q < Q1 || q > Q4 {
		return Payment{}
	}
	return l.Payments[q-1]
}

// TotalPaid sums the four quarters, treating unset quarters as zero.
func (l *Ledger) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Reconcile recomputes the totals against the amount currently due. It must
// be called fresh after every change to either the ledger or the assessment;
// nothing is maintained incrementally, so an edited revenue or CGA status is
// always reflected. Overpayment is absorbed: the balance is floored at zero.
func (l *Ledger) Reconcile(finalAmountDue decimal.Decimal) Totals {
	paid := l.TotalPaid()
	balance := finalAmountDue.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return Totals{TotalPaid: paid, BalanceRemaining: balance}
}
