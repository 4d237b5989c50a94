package database

import (
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/quotes"
	"github.com/printforge/printforge/internal/uploads"
	"github.com/printforge/printforge/internal/users"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&catalog.Material{},
		&catalog.Colour{},
		&catalog.ColourSwatch{},
		&catalog.Process{},
		&catalog.Vendor{},
		&catalog.Filament{},
		&catalog.Settings{},
		&uploads.Model{},
		&quotes.Quote{},
		&quotes.QuoteItem{},
		&quotes.Gcode{},
		&users.Customer{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := seedSettings(db); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// seedSettings inserts the pricing settings row when the table is empty so
// every deployment has a readable default.
func seedSettings(db *gorm.DB) error {
	var settings catalog.Settings
	err := db.Where("id = ?", catalog.SettingsRowID).Take(&settings).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(&catalog.Settings{
		ID:       catalog.SettingsRowID,
		Currency: "USD",
	}).Error
}
