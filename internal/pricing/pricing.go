package pricing

import "math"

// Defaults carries the storefront-wide pricing inputs for one pass. They are
// fetched fresh per normalization and threaded through as a value.
type Defaults struct {
	PricePerGram float64
	Currency     string
}

// Line represents the pricing inputs of a single quote item. PriceOverride is
// a staff-entered per-unit price in major currency units. MaterialPricePerGram
// is the material's own override when it has one; it wins over the default.
type Line struct {
	Quantity             int
	Grams                float64
	PriceOverride        *float64
	MaterialPricePerGram *float64
}

// PriceLine computes the line amount in integer minor currency units (cents).
//
// Tiers, in priority order: a price override prices the line at
// override x quantity regardless of grams; otherwise positive grams price at
// the effective price-per-gram x grams x quantity; otherwise the line is zero.
// Rounding is half away from zero, applied once at the final multiplication.
func PriceLine(line Line, defaults Defaults) int64 {
	quantity := line.Quantity
	if quantity < 1 {
		quantity = 1
	}

	if line.PriceOverride != nil {
		override := math.Max(0, *line.PriceOverride)
		return int64(math.Round(override * float64(quantity) * 100))
	}

	if line.Grams <= 0 {
		return 0
	}

	perGram := defaults.PricePerGram
	if line.MaterialPricePerGram != nil {
		perGram = *line.MaterialPricePerGram
	}
	if perGram <= 0 {
		return 0
	}

	return int64(math.Round(perGram * line.Grams * float64(quantity) * 100))
}

// NormalizeQuantity clamps a raw quantity to an integer of at least one.
// Non-finite input defaults to one.
func NormalizeQuantity(raw float64) int {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	quantity := int(math.Floor(raw))
	if quantity < 1 {
		return 1
	}
	return quantity
}

// NormalizeGrams treats non-positive weight estimates as absent.
func NormalizeGrams(raw float64) float64 {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	return raw
}
