package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"gorm.io/gorm"
)

func createSubscriptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_subscriptions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SubscriptionModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_active_renewal ON subscriptions (renewal_date) WHERE status = 'active'`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SubscriptionModel{})
		},
	}
}
