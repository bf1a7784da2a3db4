package database

import (
	"workshop-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RunMigrations performs all database migrations
func RunMigrations(db *gorm.DB) error {
	// Run migrations in correct order
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.Workshop{}); err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.WorkshopParticipant{}); err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.WorkshopRules{}); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
