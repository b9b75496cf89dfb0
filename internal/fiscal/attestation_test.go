package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAttestationValidityWindow(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	att := NewAttestation(created, true)

	assert.Equal(t, "01/01/2025", att.CreationDate)
	assert.Equal(t, "01/04/2025", att.ValidityEndDate)
	assert.True(t, att.ShowInAlert)
}

func TestDaysRemaining(t *testing.T) {
	att := NewAttestation(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), false)

	tests := []struct {
		name     string
		asOf     time.Time
		expected int
	}{
		{name: "Mid window", asOf: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), expected: 17},
		{name: "Expiry day", asOf: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), expected: 0},
		{name: "Expired", asOf: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), expected: -9},
		{name: "Time of day ignored", asOf: time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC), expected: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := att.DaysRemaining(tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, days)
		})
	}
}

func TestClassifyExpiryBands(t *testing.T) {
	tests := []struct {
		days      int
		threshold int
		expected  ExpiryStatus
	}{
		{days: -1, threshold: BadgeThresholdDays, expected: StatusExpired},
		{days: 0, threshold: BadgeThresholdDays, expected: StatusExpiringSoon},
		{days: 17, threshold: BadgeThresholdDays, expected: StatusExpiringSoon},
		{days: 30, threshold: BadgeThresholdDays, expected: StatusExpiringSoon},
		{days: 31, threshold: BadgeThresholdDays, expected: StatusValid},
		// The toast surface uses its own 5-day window.
		{days: 5, threshold: ToastThresholdDays, expected: StatusExpiringSoon},
		{days: 6, threshold: ToastThresholdDays, expected: StatusValid},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyExpiry(tt.days, tt.threshold),
			"days=%d threshold=%d", tt.days, tt.threshold)
	}
}

func TestParseDateRejectsISOFormat(t *testing.T) {
	_, err := ParseDate("2025-01-01")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}
