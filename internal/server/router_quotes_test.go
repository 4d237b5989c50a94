package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestQuoteEndpointsCoverGuestLifecycle(t *testing.T) {
	env := newTestEnvironment(t)
	env.seedPricing(t, 0.05)
	env.seedCombination(t, "mat-pla", "col-red", "fil-1")

	create := env.performJSON(t, http.MethodPost, "/api/quotes", "", map[string]interface{}{
		"customerEmail": " Guest@Example.COM ",
		"items": []map[string]interface{}{
			{
				"model":    "model-1",
				"material": "mat-pla",
				"colour":   "col-red",
				"process":  "proc-fdm",
				"quantity": 3,
				"grams":    20,
			},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}
	doc := decodeDoc(t, create)
	quoteID, _ := doc["id"].(string)
	if quoteID == "" {
		t.Fatalf("expected quote id in response")
	}
	if amount, _ := doc["amount"].(float64); amount != 300 {
		t.Fatalf("expected amount 300, got %v", doc["amount"])
	}
	if email, _ := doc["customerEmail"].(string); email != "guest@example.com" {
		t.Fatalf("expected normalized guest email, got %v", doc["customerEmail"])
	}

	lookup := env.performJSON(t, http.MethodGet,
		fmt.Sprintf("/api/quotes/%s?email=%s", quoteID, url.QueryEscape("guest@example.com")), "", nil)
	if lookup.Code != http.StatusOK {
		t.Fatalf("expected guest lookup to succeed, got %d: %s", lookup.Code, lookup.Body.String())
	}

	denied := env.performJSON(t, http.MethodGet,
		fmt.Sprintf("/api/quotes/%s?email=%s", quoteID, url.QueryEscape("stranger@example.com")), "", nil)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong email, got %d", denied.Code)
	}

	anonymous := env.performJSON(t, http.MethodGet, "/api/quotes/"+quoteID, "", nil)
	if anonymous.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without email, got %d", anonymous.Code)
	}

	missing := env.performJSON(t, http.MethodGet, "/api/quotes/nope?email=guest@example.com", "", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown quote, got %d", missing.Code)
	}
}

func TestQuoteCreateSurfacesGuestContactMessage(t *testing.T) {
	env := newTestEnvironment(t)

	response := env.performJSON(t, http.MethodPost, "/api/quotes", "", map[string]interface{}{
		"items": []map[string]interface{}{
			{"model": "model-1", "quantity": 1},
		},
	})
	if response.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", response.Code)
	}
	if !strings.Contains(response.Body.String(), "Please include a contact email so we can follow up about your quote.") {
		t.Fatalf("expected verbatim contact message, got %s", response.Body.String())
	}
}

func TestQuoteUpdateRequiresStaff(t *testing.T) {
	env := newTestEnvironment(t)
	env.seedPricing(t, 0.05)

	customerToken := env.login(t, "customer@example.com")
	staffToken := env.login(t, "staff@example.com")
	env.promoteAdmin(t, "staff@example.com")

	create := env.performJSON(t, http.MethodPost, "/api/quotes", customerToken, map[string]interface{}{})
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}
	quoteID, _ := decodeDoc(t, create)["id"].(string)

	unauthenticated := env.performJSON(t, http.MethodPatch, "/api/quotes/"+quoteID, "", map[string]interface{}{
		"status": "approved",
	})
	if unauthenticated.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", unauthenticated.Code)
	}

	forbidden := env.performJSON(t, http.MethodPatch, "/api/quotes/"+quoteID, customerToken, map[string]interface{}{
		"status": "approved",
	})
	if forbidden.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer status change, got %d", forbidden.Code)
	}

	invalid := env.performJSON(t, http.MethodPatch, "/api/quotes/"+quoteID, staffToken, map[string]interface{}{
		"status": "bogus",
	})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", invalid.Code)
	}

	approved := env.performJSON(t, http.MethodPatch, "/api/quotes/"+quoteID, staffToken, map[string]interface{}{
		"status": "approved",
	})
	if approved.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", approved.Code, approved.Body.String())
	}
	if status, _ := decodeDoc(t, approved)["status"].(string); status != "approved" {
		t.Fatalf("expected approved status, got %q", status)
	}
}

func TestQuoteListRequiresAuthentication(t *testing.T) {
	env := newTestEnvironment(t)
	env.seedPricing(t, 0.05)

	anonymous := env.performJSON(t, http.MethodGet, "/api/quotes", "", nil)
	if anonymous.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", anonymous.Code)
	}

	token := env.login(t, "customer@example.com")
	if create := env.performJSON(t, http.MethodPost, "/api/quotes", token, map[string]interface{}{}); create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}

	listed := env.performJSON(t, http.MethodGet, "/api/quotes", token, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", listed.Code, listed.Body.String())
	}
	if !strings.Contains(listed.Body.String(), `"docs"`) {
		t.Fatalf("expected docs envelope, got %s", listed.Body.String())
	}
}
