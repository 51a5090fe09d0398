package domain

import "time"

// DiagnosticSubscriptionName is recorded on synthetic diagnostic log rows.
const DiagnosticSubscriptionName = "[TEST] Daily Check"

// NotificationLog is the immutable record of one dispatch attempt. Real rows
// double as the dedup ledger.
type NotificationLog struct {
	ID                string
	UserID            string
	SubscriptionID    *string
	SubscriptionName  string
	Channel           Channel
	Status            LogStatus
	Recipient         string
	ErrorMessage      *string
	ProviderMessageID *string
	ReferenceDate     time.Time
	OffsetDays        int
	TestRun           bool
	CreatedAt         time.Time
}

// Key returns the delivery key of a real attempt. Diagnostic rows have none.
func (l *NotificationLog) Key() (DeliveryKey, bool) {
	if l == nil || l.TestRun || l.SubscriptionID == nil {
		return DeliveryKey{}, false
	}
	return NewDeliveryKey(*l.SubscriptionID, l.Channel, l.ReferenceDate, l.OffsetDays), true
}
