package quotes

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type gcodeTuple struct {
	modelID    string
	materialID string
	processID  string
	filamentID string
}

func (t gcodeTuple) key() string {
	return strings.Join([]string{t.modelID, t.materialID, t.processID, t.filamentID}, ":")
}

// materializeGcodes ensures exactly one gcode record exists per unique
// (model, material, process, filament) tuple referenced by the quote's items.
// Items missing any of the four references are skipped silently, and the
// existence check makes repeated saves of the same quote a no-op.
func (s *Service) materializeGcodes(ctx context.Context, tx *gorm.DB, quote *Quote) error {
	if quote == nil || quote.ID == "" || len(quote.Items) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	tuples := make([]gcodeTuple, 0, len(quote.Items))
	for _, item := range quote.Items {
		tuple := gcodeTuple{
			modelID:    item.ModelID,
			materialID: item.MaterialID,
			processID:  item.ProcessID,
			filamentID: item.FilamentID,
		}
		if tuple.modelID == "" || tuple.materialID == "" || tuple.processID == "" || tuple.filamentID == "" {
			continue
		}
		if _, ok := seen[tuple.key()]; ok {
			continue
		}
		seen[tuple.key()] = struct{}{}
		tuples = append(tuples, tuple)
	}

	for _, tuple := range tuples {
		var existing []Gcode
		err := tx.WithContext(ctx).
			Where("quote_id = ? AND model_id = ? AND material_id = ? AND process_id = ? AND filament_id = ?",
				quote.ID, tuple.modelID, tuple.materialID, tuple.processID, tuple.filamentID).
			Limit(1).
			Find(&existing).Error
		if err != nil {
			s.logError(opCreate, "gcode_lookup_failed", err, zap.String("quote_id", quote.ID))
			return newServiceError(opCreate, "gcode_lookup_failed", err)
		}
		if len(existing) > 0 {
			continue
		}

		gcodeID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err, zap.String("quote_id", quote.ID))
			return newServiceError(opCreate, "id_generation_failed", err)
		}
		record := Gcode{
			ID:         gcodeID,
			QuoteID:    quote.ID,
			ModelID:    tuple.modelID,
			MaterialID: tuple.materialID,
			ProcessID:  tuple.processID,
			FilamentID: tuple.filamentID,
			CreatedAt:  s.clock().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&record).Error; err != nil {
			s.logError(opCreate, "gcode_insert_failed", err, zap.String("quote_id", quote.ID))
			return newServiceError(opCreate, "gcode_insert_failed", err)
		}
	}

	return nil
}
