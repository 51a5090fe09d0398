package reminder

import (
	"fmt"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/samber/lo"
)

// ImplicitRules synthesizes one enabled rule per channel flagged on the
// subscription's legacy notify columns. It returns nil when the subscription
// has no legacy offset or no flagged channel.
func ImplicitRules(sub domain.Subscription) []domain.ReminderRule {
	if sub.NotifyDaysBefore == nil || *sub.NotifyDaysBefore < 0 {
		return nil
	}

	flags := map[domain.Channel]bool{
		domain.ChannelEmail: sub.NotifyEmail,
		domain.ChannelSMS:   sub.NotifySMS,
	}

	var rules []domain.ReminderRule
	for _, channel := range domain.Channels() {
		if !flags[channel] {
			continue
		}
		rules = append(rules, domain.ReminderRule{
			ID:             fmt.Sprintf("legacy:%s:%s", sub.ID, channel),
			SubscriptionID: sub.ID,
			OffsetDays:     *sub.NotifyDaysBefore,
			Channel:        channel,
			Enabled:        true,
			Implicit:       true,
		})
	}
	return rules
}

// EffectiveRules returns the enabled rules the engine evaluates for sub.
// Explicit rules always win; legacy flags only apply to subscriptions that
// never had an explicit rule.
func EffectiveRules(sub domain.Subscription, legacyFlags bool) []domain.ReminderRule {
	if len(sub.Rules) > 0 {
		return lo.Filter(sub.Rules, func(rule domain.ReminderRule, _ int) bool {
			return rule.Enabled && rule.Validate() == nil
		})
	}
	if !legacyFlags {
		return nil
	}
	return ImplicitRules(sub)
}
