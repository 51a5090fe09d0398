package repository

import (
	"context"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	// ListActiveWithRules returns every active subscription with all of its
	// rules attached, enabled or not.
	ListActiveWithRules(ctx context.Context) ([]domain.Subscription, error)
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) ListActiveWithRules(ctx context.Context) ([]domain.Subscription, error) {
	var models []SubscriptionModel
	err := r.db.WithContext(ctx).
		Preload("Rules", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("offset_days DESC, channel ASC")
		}).
		Where("status = ?", domain.SubscriptionStatusActive).
		Order("renewal_date ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	subscriptions := make([]domain.Subscription, 0, len(models))
	for i := range models {
		subscriptions = append(subscriptions, *subscriptionModelToDomain(&models[i]))
	}

	return subscriptions, nil
}
