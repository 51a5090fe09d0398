// Package reminder holds the pure decision logic of the dispatch engine: when a
// rule fires, which rules a subscription carries and what the message says.
package reminder

import (
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
)

// TargetDate is the calendar date on which a rule with offsetDays fires.
func TargetDate(renewalDate time.Time, offsetDays int) time.Time {
	return domain.NormalizeDate(renewalDate).AddDate(0, 0, -offsetDays)
}

// IsDue reports whether a rule with offsetDays fires on referenceDate. It is an
// exact calendar-date match, never a window.
func IsDue(referenceDate time.Time, renewalDate time.Time, offsetDays int) bool {
	return TargetDate(renewalDate, offsetDays).Equal(domain.NormalizeDate(referenceDate))
}
