package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReminderRule fires a reminder OffsetDays before the renewal date on Channel.
type ReminderRule struct {
	ID             string
	SubscriptionID string
	OffsetDays     int
	Channel        Channel
	Enabled        bool
	// Implicit marks rules synthesized from legacy subscription flags.
	Implicit  bool
	CreatedAt time.Time
}

func (r *ReminderRule) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: rule is required", ErrValidation)
	}
	if strings.TrimSpace(r.SubscriptionID) == "" {
		return fmt.Errorf("%w: subscription id is required", ErrValidation)
	}
	if r.OffsetDays < 0 {
		return fmt.Errorf("%w: offset days must be >= 0 (got %d)", ErrValidation, r.OffsetDays)
	}
	if !r.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, r.Channel)
	}
	return nil
}
