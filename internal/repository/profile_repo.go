package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"gorm.io/gorm"
)

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.RecipientProfile, error)
}

type GormProfileRepo struct {
	db *gorm.DB
}

func NewGormProfileRepo(db *gorm.DB) *GormProfileRepo {
	return &GormProfileRepo{db: db}
}

func (r *GormProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.RecipientProfile, error) {
	var model ProfileModel
	err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profileModelToDomain(&model), nil
}
