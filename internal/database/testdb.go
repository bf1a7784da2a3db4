package database

import (
	"workshop-backend/config"

	"gorm.io/gorm"
)

// OpenTestDB returns a migrated in-memory SQLite database. A single
// connection keeps every query on the same in-memory database.
func OpenTestDB() (*gorm.DB, error) {
	db, err := Open(&config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
	})
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}
