package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string { return string(s) }

// BillingCycle is informational only; renewal dates are advanced outside the engine.
type BillingCycle string

const (
	BillingCycleWeekly  BillingCycle = "weekly"
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) String() string { return string(c) }

// Subscription is a recurring payment owned by a user.
type Subscription struct {
	ID           string
	UserID       string
	ServiceName  string
	PlanName     *string
	Price        decimal.Decimal
	Currency     string
	RenewalDate  time.Time
	BillingCycle BillingCycle
	Status       SubscriptionStatus

	// Legacy per-subscription notification flags. They only matter for
	// subscriptions that have no explicit reminder rules.
	NotifyDaysBefore *int
	NotifyEmail      bool
	NotifySMS        bool

	Rules     []ReminderRule
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// DisplayName is the service name followed by the plan in parentheses, if any.
func (s *Subscription) DisplayName() string {
	if s == nil {
		return ""
	}
	name := strings.TrimSpace(s.ServiceName)
	if s.PlanName != nil {
		if plan := strings.TrimSpace(*s.PlanName); plan != "" {
			return name + " (" + plan + ")"
		}
	}
	return name
}
