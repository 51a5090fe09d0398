package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

type LogListParams struct {
	Channel       *domain.Channel
	Status        *domain.LogStatus
	TestRun       *bool
	ReferenceDate *time.Time
	Page          int
	PageSize      int
}

type NotificationLogRepository interface {
	// Create appends a log row. It returns domain.ErrDuplicateAttempt when a
	// real row with the same delivery key already exists.
	Create(ctx context.Context, l *domain.NotificationLog) error
	ExistsForKey(ctx context.Context, key domain.DeliveryKey) (bool, error)
	List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error)
}

type GormNotificationLogRepo struct {
	db *gorm.DB
}

func NewGormNotificationLogRepo(db *gorm.DB) *GormNotificationLogRepo {
	return &GormNotificationLogRepo{db: db}
}

func (r *GormNotificationLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	model := logModelFromDomain(l)
	if model == nil {
		return fmt.Errorf("%w: notification log is required", domain.ErrValidation)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateAttempt, err)
		}
		return err
	}
	*l = *logModelToDomain(model)
	return nil
}

// ExistsForKey reports whether a real attempt, successful or failed, was
// recorded for key. Diagnostic rows never match.
func (r *GormNotificationLogRepo) ExistsForKey(ctx context.Context, key domain.DeliveryKey) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}

	var count int64
	if err := deliveryKeyQuery(r.db.WithContext(ctx), key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// deliveryKeyQuery matches the columns of the partial unique index on
// notification_logs.
func deliveryKeyQuery(db *gorm.DB, key domain.DeliveryKey) *gorm.DB {
	return db.Model(&NotificationLogModel{}).
		Where("subscription_id = ? AND channel = ? AND reference_date = ? AND offset_days = ? AND test_run = ?",
			key.SubscriptionID, key.Channel, toDate(key.ReferenceDate), key.OffsetDays, false)
}

func (r *GormNotificationLogRepo) List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationLogModel{})

	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.TestRun != nil {
		query = query.Where("test_run = ?", *params.TestRun)
	}
	if params.ReferenceDate != nil {
		query = query.Where("reference_date = ?", toDate(*params.ReferenceDate))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := NormalizePage(params.Page, params.PageSize)

	var models []NotificationLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}

	return logs, total, nil
}

// NormalizePage clamps paging input to page >= 1 and 1 <= pageSize <= 100.
func NormalizePage(page, pageSize int) (int, int) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 50
	}
	return page, min(pageSize, 100)
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
