package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/quotes"
)

func TestApplyMigrationsNormalizesGuestEmails(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&quotes.Quote{}, &quotes.QuoteItem{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	quote := quotes.Quote{
		ID:            "quote-1",
		CustomerEmail: " Jamie@Example.COM ",
		Status:        quotes.StatusNew,
		Currency:      "USD",
	}
	if err := database.Create(&quote).Error; err != nil {
		testContext.Fatalf("failed to insert quote: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored quotes.Quote
	if err := database.Where("id = ?", quote.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload quote: %v", err)
	}
	if stored.CustomerEmail != "jamie@example.com" {
		testContext.Fatalf("expected normalized guest email, got %q", stored.CustomerEmail)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeGuestEmails).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestOpenSQLiteSeedsSettingsRow(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "storefront.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	var settings catalog.Settings
	if err := database.Where("id = ?", catalog.SettingsRowID).Take(&settings).Error; err != nil {
		testContext.Fatalf("expected seeded settings row: %v", err)
	}
	if settings.Currency != "USD" {
		testContext.Fatalf("unexpected seeded currency %q", settings.Currency)
	}

	if _, err := OpenSQLite(databasePath, zap.NewNop()); err != nil {
		testContext.Fatalf("expected reopen to succeed: %v", err)
	}
}
