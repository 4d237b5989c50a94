package quotes

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/catalog"
)

type sequentialIDProvider struct {
	prefix string
	next   int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("%s-%d", p.prefix, p.next), nil
}

type stubDirectory struct {
	emails map[string]string
}

func (d *stubDirectory) EmailByID(_ context.Context, customerID string) (string, error) {
	email, ok := d.emails[customerID]
	if !ok {
		return "", fmt.Errorf("no such customer %q", customerID)
	}
	return email, nil
}

func newQuotesDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:quotes_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&catalog.Material{},
		&catalog.Colour{},
		&catalog.Filament{},
		&catalog.Settings{},
		&Quote{},
		&QuoteItem{},
		&Gcode{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, directory CustomerDirectory) *Service {
	t.Helper()

	service, err := NewService(ServiceConfig{
		Database:        db,
		IDProvider:      &sequentialIDProvider{prefix: "quote"},
		Customers:       directory,
		DefaultCurrency: "USD",
	})
	if err != nil {
		t.Fatalf("failed to construct quote service: %v", err)
	}
	return service
}

func seedSettings(t *testing.T, db *gorm.DB, pricePerGram float64, currency string) {
	t.Helper()

	settings := catalog.Settings{ID: catalog.SettingsRowID, PricePerGram: pricePerGram, Currency: currency}
	if err := db.Save(&settings).Error; err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}
}

func seedMaterial(t *testing.T, db *gorm.DB, id, name string, pricePerGram *float64) {
	t.Helper()

	material := catalog.Material{ID: id, Name: name, PricePerGram: pricePerGram}
	if err := db.Create(&material).Error; err != nil {
		t.Fatalf("failed to seed material: %v", err)
	}
}

func seedFilament(t *testing.T, db *gorm.DB, id, materialID, colourID string, active bool) {
	t.Helper()

	filament := catalog.Filament{
		ID:         id,
		Name:       id,
		MaterialID: materialID,
		ColourID:   colourID,
		VendorID:   "vendor-1",
		Active:     active,
	}
	if err := db.Create(&filament).Error; err != nil {
		t.Fatalf("failed to seed filament: %v", err)
	}
}

func countGcodes(t *testing.T, db *gorm.DB, quoteID string) int64 {
	t.Helper()

	var total int64
	if err := db.Model(&Gcode{}).Where("quote_id = ?", quoteID).Count(&total).Error; err != nil {
		t.Fatalf("failed to count gcodes: %v", err)
	}
	return total
}

func floatPointer(value float64) *float64 {
	return &value
}

func stringPointer(value string) *string {
	return &value
}
