package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return gormigrate.New(db, gormigrate.DefaultOptions, migrationList()).Migrate()
}

func migrationList() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		createSubscriptionsTable(),
		createReminderRulesTable(),
		createProfilesTable(),
		createNotificationLogsTable(),
		relaxNotificationLogUser(),
	}
}

func execAll(tx *gorm.DB, statements []string) error {
	for _, sql := range statements {
		if err := tx.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}
