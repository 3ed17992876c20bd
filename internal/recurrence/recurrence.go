package recurrence

import (
	"errors"
	"fmt"
	"time"

	"smart-expense-tracker/internal/models"
)

// ErrInvalidFrequency is returned for a frequency outside the four
// recognized values.
var ErrInvalidFrequency = errors.New("invalid frequency")

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.New("interval must be positive")

// NextOccurrence returns the occurrence date that follows current for the
// given frequency and interval. Monthly and yearly steps use calendar
// arithmetic with rollover normalization: adding one month to Jan 31 lands
// on Mar 2 (Mar 3 in non-leap years), never on a clamped Feb date.
//
// The function is pure: no clock access, no side effects.
func NextOccurrence(current time.Time, freq models.Frequency, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}
	switch freq {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, interval), nil
	case models.FrequencyWeekly:
		return current.AddDate(0, 0, 7*interval), nil
	case models.FrequencyMonthly:
		return current.AddDate(0, interval, 0), nil
	case models.FrequencyYearly:
		return current.AddDate(interval, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, freq)
	}
}
