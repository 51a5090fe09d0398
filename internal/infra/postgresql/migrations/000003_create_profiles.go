package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"gorm.io/gorm"
)

func createProfilesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_profiles",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.ProfileModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ProfileModel{})
		},
	}
}
