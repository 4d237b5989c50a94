package catalog

// CombinationIndex answers "which colours can this material print in" (and
// the reverse) in O(1), precomputed once from the active filament set.
type CombinationIndex struct {
	coloursByMaterial map[string]map[string]struct{}
	materialsByColour map[string]map[string]struct{}
}

// NewCombinationIndex builds the bidirectional index from deduplicated
// (material, colour) combinations.
func NewCombinationIndex(combinations []Combination) *CombinationIndex {
	index := &CombinationIndex{
		coloursByMaterial: map[string]map[string]struct{}{},
		materialsByColour: map[string]map[string]struct{}{},
	}
	for _, combo := range combinations {
		if combo.MaterialID == "" || combo.ColourID == "" {
			continue
		}
		if index.coloursByMaterial[combo.MaterialID] == nil {
			index.coloursByMaterial[combo.MaterialID] = map[string]struct{}{}
		}
		index.coloursByMaterial[combo.MaterialID][combo.ColourID] = struct{}{}
		if index.materialsByColour[combo.ColourID] == nil {
			index.materialsByColour[combo.ColourID] = map[string]struct{}{}
		}
		index.materialsByColour[combo.ColourID][combo.MaterialID] = struct{}{}
	}
	return index
}

// Allows reports whether an active filament covers the (material, colour) pair.
func (ci *CombinationIndex) Allows(materialID, colourID string) bool {
	colours, ok := ci.coloursByMaterial[materialID]
	if !ok {
		return false
	}
	_, ok = colours[colourID]
	return ok
}

// ColoursFor returns the set of colour ids reachable from the material.
func (ci *CombinationIndex) ColoursFor(materialID string) map[string]struct{} {
	return ci.coloursByMaterial[materialID]
}

// MaterialsFor returns the set of material ids reachable from the colour.
func (ci *CombinationIndex) MaterialsFor(colourID string) map[string]struct{} {
	return ci.materialsByColour[colourID]
}
