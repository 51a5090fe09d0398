package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"gorm.io/gorm"
)

// DeliveryKeyIndexSQL makes real attempts unique per delivery key. Diagnostic
// rows are exempt.
const DeliveryKeyIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_notification_logs_delivery_key ON notification_logs (subscription_id, channel, reference_date, offset_days) WHERE test_run = false`

func createNotificationLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_notification_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				DeliveryKeyIndexSQL,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_created ON notification_logs (created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_notification_logs_reference_date ON notification_logs (reference_date, channel)`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}
