package repository

import (
	"strings"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SubscriptionModel is the persistence model for the subscriptions table.
type SubscriptionModel struct {
	ID               string                    `gorm:"type:uuid;primaryKey"`
	UserID           string                    `gorm:"type:uuid;not null;index"`
	ServiceName      string                    `gorm:"type:varchar(255);not null"`
	PlanName         *string                   `gorm:"type:varchar(255)"`
	Price            decimal.Decimal           `gorm:"type:numeric(12,2);not null"`
	Currency         string                    `gorm:"type:varchar(3);not null;default:'KRW'"`
	RenewalDate      datatypes.Date            `gorm:"not null"`
	BillingCycle     domain.BillingCycle       `gorm:"type:varchar(20);not null;default:'monthly'"`
	Status           domain.SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'"`
	NotifyDaysBefore *int                      `gorm:"type:int"`
	NotifyEmail      bool                      `gorm:"not null;default:false"`
	NotifySMS        bool                      `gorm:"column:notify_sms;not null;default:false"`
	Rules            []ReminderRuleModel       `gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ReminderRuleModel is the persistence model for reminder_rules.
type ReminderRuleModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	SubscriptionID string         `gorm:"type:uuid;not null;uniqueIndex:idx_reminder_rules_sub_offset_channel,priority:1"`
	OffsetDays     int            `gorm:"not null;uniqueIndex:idx_reminder_rules_sub_offset_channel,priority:2"`
	Channel        domain.Channel `gorm:"type:varchar(10);not null;uniqueIndex:idx_reminder_rules_sub_offset_channel,priority:3"`
	Enabled        bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time
}

func (ReminderRuleModel) TableName() string {
	return "reminder_rules"
}

// ProfileModel is the persistence model for profiles.
type ProfileModel struct {
	UserID      string  `gorm:"type:uuid;primaryKey"`
	DisplayName string  `gorm:"type:varchar(255);not null;default:''"`
	PhoneNumber *string `gorm:"type:varchar(32)"`
	Email       string  `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// NotificationLogModel is the persistence model for notification_logs.
type NotificationLogModel struct {
	ID                string           `gorm:"type:uuid;primaryKey"`
	UserID            *string          `gorm:"type:uuid;index"`
	SubscriptionID    *string          `gorm:"type:uuid"`
	SubscriptionName  string           `gorm:"type:varchar(255);not null"`
	Channel           domain.Channel   `gorm:"type:varchar(10);not null"`
	Status            domain.LogStatus `gorm:"type:varchar(10);not null"`
	Recipient         string           `gorm:"type:varchar(255);not null"`
	ErrorMessage      *string          `gorm:"type:text"`
	ProviderMessageID *string          `gorm:"type:varchar(255)"`
	ReferenceDate     datatypes.Date   `gorm:"not null"`
	OffsetDays        int              `gorm:"not null;default:0"`
	TestRun           bool             `gorm:"not null;default:false"`
	CreatedAt         time.Time
}

func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// nullableString maps a blank id to NULL; diagnostic rows have no owner.
func nullableString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toDate(t time.Time) datatypes.Date {
	return datatypes.Date(domain.NormalizeDate(t))
}

func fromDate(d datatypes.Date) time.Time {
	return domain.NormalizeDate(time.Time(d))
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	rules := make([]domain.ReminderRule, 0, len(m.Rules))
	for i := range m.Rules {
		rules = append(rules, *ruleModelToDomain(&m.Rules[i]))
	}

	return &domain.Subscription{
		ID:               m.ID,
		UserID:           m.UserID,
		ServiceName:      m.ServiceName,
		PlanName:         m.PlanName,
		Price:            m.Price,
		Currency:         m.Currency,
		RenewalDate:      fromDate(m.RenewalDate),
		BillingCycle:     m.BillingCycle,
		Status:           m.Status,
		NotifyDaysBefore: m.NotifyDaysBefore,
		NotifyEmail:      m.NotifyEmail,
		NotifySMS:        m.NotifySMS,
		Rules:            rules,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func ruleModelToDomain(m *ReminderRuleModel) *domain.ReminderRule {
	if m == nil {
		return nil
	}

	return &domain.ReminderRule{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		OffsetDays:     m.OffsetDays,
		Channel:        m.Channel,
		Enabled:        m.Enabled,
		CreatedAt:      m.CreatedAt,
	}
}

func profileModelToDomain(m *ProfileModel) *domain.RecipientProfile {
	if m == nil {
		return nil
	}

	return &domain.RecipientProfile{
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
	}
}

func logModelFromDomain(l *domain.NotificationLog) *NotificationLogModel {
	if l == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:                l.ID,
		UserID:            nullableString(l.UserID),
		SubscriptionID:    l.SubscriptionID,
		SubscriptionName:  l.SubscriptionName,
		Channel:           l.Channel,
		Status:            l.Status,
		Recipient:         l.Recipient,
		ErrorMessage:      l.ErrorMessage,
		ProviderMessageID: l.ProviderMessageID,
		ReferenceDate:     toDate(l.ReferenceDate),
		OffsetDays:        l.OffsetDays,
		TestRun:           l.TestRun,
		CreatedAt:         l.CreatedAt,
	}
}

func logModelToDomain(m *NotificationLogModel) *domain.NotificationLog {
	if m == nil {
		return nil
	}

	return &domain.NotificationLog{
		ID:                m.ID,
		UserID:            valueOrEmpty(m.UserID),
		SubscriptionID:    m.SubscriptionID,
		SubscriptionName:  m.SubscriptionName,
		Channel:           m.Channel,
		Status:            m.Status,
		Recipient:         m.Recipient,
		ErrorMessage:      m.ErrorMessage,
		ProviderMessageID: m.ProviderMessageID,
		ReferenceDate:     fromDate(m.ReferenceDate),
		OffsetDays:        m.OffsetDays,
		TestRun:           m.TestRun,
		CreatedAt:         m.CreatedAt,
	}
}
