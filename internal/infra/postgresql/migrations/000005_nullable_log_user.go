package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Diagnostic rows have no owning user.
func relaxNotificationLogUser() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_nullable_log_user",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`ALTER TABLE notification_logs ALTER COLUMN user_id DROP NOT NULL`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return execAll(tx, []string{
				`DELETE FROM notification_logs WHERE user_id IS NULL`,
				`ALTER TABLE notification_logs ALTER COLUMN user_id SET NOT NULL`,
			})
		},
	}
}
