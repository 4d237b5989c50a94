package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestQuoteOptionsExposeActiveCombinations(t *testing.T) {
	env := newTestEnvironment(t)
	env.seedPricing(t, 0.05)
	env.seedCombination(t, "mat-pla", "col-red", "fil-1")

	response := env.performJSON(t, http.MethodGet, "/api/quote-options", "", nil)
	if response.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", response.Code, response.Body.String())
	}

	var payload struct {
		Materials []struct {
			ID           string  `json:"id"`
			PricePerGram float64 `json:"pricePerGram"`
		} `json:"materials"`
		Colours []struct {
			ID string `json:"id"`
		} `json:"colours"`
		Combinations []struct {
			MaterialID string `json:"materialId"`
			ColourID   string `json:"colourId"`
		} `json:"combinations"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode options: %v", err)
	}

	if len(payload.Materials) != 1 || payload.Materials[0].ID != "mat-pla" {
		t.Fatalf("unexpected materials %+v", payload.Materials)
	}
	if payload.Materials[0].PricePerGram != 0.05 {
		t.Fatalf("expected settings default price, got %v", payload.Materials[0].PricePerGram)
	}
	if len(payload.Colours) != 1 || payload.Colours[0].ID != "col-red" {
		t.Fatalf("unexpected colours %+v", payload.Colours)
	}
	if len(payload.Combinations) != 1 || payload.Combinations[0].MaterialID != "mat-pla" || payload.Combinations[0].ColourID != "col-red" {
		t.Fatalf("unexpected combinations %+v", payload.Combinations)
	}
}
