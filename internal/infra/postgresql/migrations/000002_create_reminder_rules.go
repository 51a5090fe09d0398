package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"gorm.io/gorm"
)

func createReminderRulesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_reminder_rules",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ReminderRuleModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`ALTER TABLE reminder_rules DROP CONSTRAINT IF EXISTS chk_reminder_rules_offset`,
				`ALTER TABLE reminder_rules ADD CONSTRAINT chk_reminder_rules_offset CHECK (offset_days >= 0)`,
				`ALTER TABLE reminder_rules DROP CONSTRAINT IF EXISTS chk_reminder_rules_channel`,
				`ALTER TABLE reminder_rules ADD CONSTRAINT chk_reminder_rules_channel CHECK (channel IN ('email', 'sms'))`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ReminderRuleModel{})
		},
	}
}
