package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/pricing"
)

var errMissingResolverDatabase = errors.New("catalog: database handle is required")

// Resolver answers filament and material-price lookups for a single pricing
// pass. Lookups are memoized per instance, so one resolver must not be shared
// across requests.
type Resolver struct {
	db             *gorm.DB
	logger         *zap.Logger
	filamentMemo   map[string]string
	materialPrices map[string]*float64
}

// NewResolver constructs a per-pass resolver bound to the given transaction
// or connection handle.
func NewResolver(db *gorm.DB, logger *zap.Logger) (*Resolver, error) {
	if db == nil {
		return nil, errMissingResolverDatabase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		db:             db,
		logger:         logger,
		filamentMemo:   map[string]string{},
		materialPrices: map[string]*float64{},
	}, nil
}

// ResolveFilament returns the id of the first active filament supplying the
// (material, colour) combination, or "" when either input is empty or no
// active filament matches. Repeated pairs within one pass cost one lookup.
func (r *Resolver) ResolveFilament(ctx context.Context, materialID, colourID string) (string, error) {
	if materialID == "" || colourID == "" {
		return "", nil
	}

	memoKey := materialID + ":" + colourID
	if cached, ok := r.filamentMemo[memoKey]; ok {
		return cached, nil
	}

	var matches []Filament
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND colour_id = ? AND active = ?", materialID, colourID, true).
		Order("id").
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return "", err
	}

	filamentID := ""
	if len(matches) > 0 {
		filamentID = matches[0].ID
	}
	r.filamentMemo[memoKey] = filamentID
	return filamentID, nil
}

// MaterialPricePerGram returns the material's own price-per-gram override, or
// nil when the material has none. A populated value supplied by the caller is
// preferred over a fetch; fetch failures degrade to no-override. Results are
// cached per material id within the pass.
func (r *Resolver) MaterialPricePerGram(ctx context.Context, materialID string, populated *float64) *float64 {
	if materialID == "" {
		return nil
	}

	if cached, ok := r.materialPrices[materialID]; ok {
		return cached
	}

	price := populated
	if price == nil {
		var material Material
		err := r.db.WithContext(ctx).
			Where("id = ?", materialID).
			Take(&material).Error
		if err == nil {
			price = material.PricePerGram
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("material price lookup failed",
				zap.String("material_id", materialID),
				zap.Error(err))
		}
	}

	r.materialPrices[materialID] = price
	return price
}

// LoadPricingDefaults reads the settings singleton once for a pricing pass.
// A missing or unreadable row degrades to a zero price-per-gram and the
// provided fallback currency rather than failing the pass.
func LoadPricingDefaults(ctx context.Context, db *gorm.DB, fallbackCurrency string) pricing.Defaults {
	defaults := pricing.Defaults{Currency: fallbackCurrency}
	if db == nil {
		return defaults
	}

	var settings Settings
	err := db.WithContext(ctx).
		Where("id = ?", SettingsRowID).
		Take(&settings).Error
	if err != nil {
		return defaults
	}

	if settings.PricePerGram > 0 {
		defaults.PricePerGram = settings.PricePerGram
	}
	if settings.Currency != "" {
		defaults.Currency = settings.Currency
	}
	return defaults
}
