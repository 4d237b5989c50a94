package catalog

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var errMissingOptionsDatabase = errors.New("catalog: database handle is required")

// MaterialOption is a customer-selectable material with its effective
// price-per-gram already resolved against the settings default.
type MaterialOption struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	PricePerGram float64 `json:"pricePerGram"`
}

// ColourOption is a customer-selectable colour with display metadata.
type ColourOption struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Finish   string   `json:"finish"`
	Type     string   `json:"type"`
	Swatches []string `json:"swatches"`
}

// ProcessOption is a customer-selectable, active process.
type ProcessOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Combination names one (material, colour) pair reachable via an active filament.
type Combination struct {
	MaterialID string `json:"materialId"`
	ColourID   string `json:"colourId"`
}

// WizardOptions is everything the quote wizard needs to render its selects:
// materials and colours restricted to active filament combinations, active
// processes, and the combination list itself for dependent filtering.
type WizardOptions struct {
	Materials    []MaterialOption `json:"materials"`
	Colours      []ColourOption   `json:"colours"`
	Processes    []ProcessOption  `json:"processes"`
	Combinations []Combination    `json:"combinations"`
}

// LoadWizardOptions loads catalog entities concurrently and assembles the
// customer-facing option sets. Materials and colours that no active filament
// reaches are excluded, and every list is sorted by name.
func LoadWizardOptions(ctx context.Context, db *gorm.DB, fallbackCurrency string) (WizardOptions, error) {
	if db == nil {
		return WizardOptions{}, errMissingOptionsDatabase
	}

	var (
		filaments []Filament
		materials []Material
		colours   []Colour
		processes []Process
	)
	defaults := LoadPricingDefaults(ctx, db, fallbackCurrency)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return db.WithContext(groupCtx).Where("active = ?", true).Find(&filaments).Error
	})
	group.Go(func() error {
		return db.WithContext(groupCtx).Find(&materials).Error
	})
	group.Go(func() error {
		return db.WithContext(groupCtx).Preload("Swatches", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position")
		}).Find(&colours).Error
	})
	group.Go(func() error {
		return db.WithContext(groupCtx).Where("active = ?", true).Find(&processes).Error
	})
	if err := group.Wait(); err != nil {
		return WizardOptions{}, err
	}

	combinations := make([]Combination, 0, len(filaments))
	seen := map[string]struct{}{}
	allowedMaterials := map[string]struct{}{}
	allowedColours := map[string]struct{}{}
	for _, filament := range filaments {
		if filament.MaterialID == "" || filament.ColourID == "" {
			continue
		}
		key := filament.MaterialID + ":" + filament.ColourID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		combinations = append(combinations, Combination{
			MaterialID: filament.MaterialID,
			ColourID:   filament.ColourID,
		})
		allowedMaterials[filament.MaterialID] = struct{}{}
		allowedColours[filament.ColourID] = struct{}{}
	}

	options := WizardOptions{Combinations: combinations}

	for _, material := range materials {
		if _, ok := allowedMaterials[material.ID]; !ok {
			continue
		}
		perGram := defaults.PricePerGram
		if material.PricePerGram != nil {
			perGram = *material.PricePerGram
		}
		options.Materials = append(options.Materials, MaterialOption{
			ID:           material.ID,
			Name:         material.Name,
			PricePerGram: perGram,
		})
	}
	sort.Slice(options.Materials, func(i, j int) bool {
		return options.Materials[i].Name < options.Materials[j].Name
	})

	for _, colour := range colours {
		if _, ok := allowedColours[colour.ID]; !ok {
			continue
		}
		swatches := make([]string, 0, len(colour.Swatches))
		for _, swatch := range colour.Swatches {
			swatches = append(swatches, swatch.Hexcode)
		}
		options.Colours = append(options.Colours, ColourOption{
			ID:       colour.ID,
			Name:     colour.Name,
			Finish:   string(colour.Finish),
			Type:     string(colour.Type),
			Swatches: swatches,
		})
	}
	sort.Slice(options.Colours, func(i, j int) bool {
		return options.Colours[i].Name < options.Colours[j].Name
	})

	for _, process := range processes {
		options.Processes = append(options.Processes, ProcessOption{
			ID:   process.ID,
			Name: process.Name,
		})
	}
	sort.Slice(options.Processes, func(i, j int) bool {
		return options.Processes[i].Name < options.Processes[j].Name
	})

	return options, nil
}
