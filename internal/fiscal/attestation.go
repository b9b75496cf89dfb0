package fiscal

import (
	"fmt"
	"time"
)

// DateLayout is the DD/MM/YYYY format the legacy store uses for attestation
// dates. It must be preserved exactly for round-trip compatibility.
const DateLayout = "02/01/2006"

// ValidityMonths is the validity window of a fiscal-compliance attestation.
const ValidityMonths = 3

// Two surfaces warn about expiry with different windows: the dashboard badge
// flips at 30 days, the realtime toast fires at 5. They are intentionally
// separate knobs (observed behavior, kept until the product owner unifies them).
const (
	BadgeThresholdDays = 30
	ToastThresholdDays = 5
)

// ExpiryStatus is the display classification of an attestation.
type ExpiryStatus string

const (
	StatusExpired      ExpiryStatus = "expired"
	StatusExpiringSoon ExpiryStatus = "expiring_soon"
	StatusValid        ExpiryStatus = "valid"
)

// Attestation is a client's attestation de conformité fiscale. Dates are kept
// in their wire form; parse on demand.
type Attestation struct {
	CreationDate    string `json:"creationDate"`
	ValidityEndDate string `json:"validityEndDate"`
	ShowInAlert     bool   `json:"showInAlert"`
}

// NewAttestation builds an attestation valid for three months from creation.
func NewAttestation(creation time.Time, showInAlert bool) Attestation {
	end := creation.AddDate(0, ValidityMonths, 0)
	return Attestation{
		CreationDate:    creation.Format(DateLayout),
		ValidityEndDate: end.Format(DateLayout),
		ShowInAlert:     showInAlert,
	}
}

// ParseDate parses a DD/MM/YYYY attestation date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected DD/MM/YYYY): %w", s, err)
	}
	return t, nil
}

// ValidityEnd returns the parsed end of the validity window.
func (a Attestation) ValidityEnd() (time.Time, error) {
	return ParseDate(a.ValidityEndDate)
}

// DaysRemaining returns the number of whole days between asOf and the end of
// the validity window. Negative once expired.
func (a Attestation) DaysRemaining(asOf time.Time) (int, error) {
	end, err := a.ValidityEnd()
	if err != nil {
		return 0, err
	}
	return daysBetween(asOf, end), nil
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ClassifyExpiry maps a days-remaining value to its display band. The
// threshold is inclusive: daysRemaining == threshold still counts as soon.
func ClassifyExpiry(daysRemaining, thresholdDays int) ExpiryStatus {
	switch {
	case daysRemaining < 0:
		return StatusExpired
	case daysRemaining <= thresholdDays:
		return StatusExpiringSoon
	default:
		return StatusValid
	}
}
