package domain

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryKey identifies one logical reminder. At most one notification log row
// may exist per key; the store enforces the same tuple with a unique index.
type DeliveryKey struct {
	SubscriptionID string
	Channel        Channel
	ReferenceDate  time.Time
	OffsetDays     int
}

func NewDeliveryKey(subscriptionID string, channel Channel, referenceDate time.Time, offsetDays int) DeliveryKey {
	return DeliveryKey{
		SubscriptionID: strings.TrimSpace(subscriptionID),
		Channel:        channel,
		ReferenceDate:  NormalizeDate(referenceDate),
		OffsetDays:     offsetDays,
	}
}

func (k DeliveryKey) Validate() error {
	if k.SubscriptionID == "" {
		return fmt.Errorf("%w: delivery key subscription id is required", ErrValidation)
	}
	if !k.Channel.IsValid() {
		return fmt.Errorf("%w: delivery key channel %q is invalid", ErrValidation, k.Channel)
	}
	if k.ReferenceDate.IsZero() {
		return fmt.Errorf("%w: delivery key reference date is required", ErrValidation)
	}
	if k.OffsetDays < 0 {
		return fmt.Errorf("%w: delivery key offset must be >= 0", ErrValidation)
	}
	return nil
}

func (k DeliveryKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.SubscriptionID, k.Channel, FormatDate(k.ReferenceDate), k.OffsetDays)
}
