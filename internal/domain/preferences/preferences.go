package preferences

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Frequency is how often automatic updates are checked.
type Frequency string

const (
	// Daily checks once a day.
	Daily Frequency = "daily"
	// Weekly checks once a week.
	Weekly Frequency = "weekly"
	// Monthly checks once every thirty days.
	Monthly Frequency = "monthly"
)

const (
	day = 24 * time.Hour
	// monthLength is a fixed thirty-day approximation.
	monthLength = 30 * day
)

// ErrUnknownFrequency is returned when a frequency string is not recognised.
var ErrUnknownFrequency = errors.New("unknown check frequency")

// ParseFrequency parses daily, weekly or monthly (case-insensitive).
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly, Monthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
	}
}

// Period is the minimum time between two automatic checks.
func (f Frequency) Period() time.Duration {
	switch f {
	case Weekly:
		return 7 * day
	case Monthly:
		return monthLength
	default:
		return day
	}
}

// Configuration is the full set of persisted preferences.
type Configuration struct {
	// AutoUpdatesEnabled allows the checker to update without user action.
	AutoUpdatesEnabled bool
	// CheckFrequency controls how often the checker runs.
	CheckFrequency Frequency
	// ExtensionsEnabled is kept for files written by older releases.
	ExtensionsEnabled bool
	// FirstBoot is true until the first session finished its setup.
	FirstBoot bool
	// LastUpdateCheck is the unix time of the last automatic check.
	LastUpdateCheck int64
	// StoredVersion is the release descriptor last rebased to successfully.
	StoredVersion string
}

// Default returns the preferences used before anything was written.
func Default() Configuration {
	return Configuration{
		AutoUpdatesEnabled: true,
		CheckFrequency:     Daily,
		ExtensionsEnabled:  false,
		FirstBoot:          true,
		LastUpdateCheck:    0,
		StoredVersion:      "",
	}
}

// CheckDue reports whether an automatic check is due at now.
func (c Configuration) CheckDue(now time.Time) bool {
	if !c.AutoUpdatesEnabled {
		return false
	}

	last := time.Unix(c.LastUpdateCheck, 0)

	return !now.Before(last.Add(c.CheckFrequency.Period()))
}
