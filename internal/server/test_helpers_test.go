package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/database"
	"github.com/printforge/printforge/internal/quotes"
	"github.com/printforge/printforge/internal/uploads"
	"github.com/printforge/printforge/internal/users"
)

type testEnvironment struct {
	handler http.Handler
	db      *gorm.DB
	users   *users.Service
}

func newTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	usersService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}
	quotesService, err := quotes.NewService(quotes.ServiceConfig{
		Database:        db,
		IDProvider:      quotes.NewUUIDProvider(),
		Customers:       usersService,
		DefaultCurrency: "USD",
	})
	if err != nil {
		t.Fatalf("failed to construct quote service: %v", err)
	}
	uploadsService, err := uploads.NewService(uploads.ServiceConfig{
		Database:    db,
		StoragePath: t.TempDir(),
		MaxBytes:    1 << 20,
	})
	if err != nil {
		t.Fatalf("failed to construct upload service: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("router-test-secret"),
		Issuer:        "printforge-auth",
		Audience:      "printforge-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to construct token issuer: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager:    issuer,
		QuotesService:   quotesService,
		UploadsService:  uploadsService,
		UsersService:    usersService,
		Database:        db,
		Logger:          zap.NewNop(),
		DefaultCurrency: "USD",
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	return &testEnvironment{handler: handler, db: db, users: usersService}
}

func (env *testEnvironment) seedPricing(t *testing.T, pricePerGram float64) {
	t.Helper()

	err := env.db.Model(&catalog.Settings{}).
		Where("id = ?", catalog.SettingsRowID).
		Update("price_per_gram", pricePerGram).Error
	if err != nil {
		t.Fatalf("failed to seed pricing: %v", err)
	}
}

func (env *testEnvironment) seedCombination(t *testing.T, materialID, colourID, filamentID string) {
	t.Helper()

	if err := env.db.Create(&catalog.Material{ID: materialID, Name: materialID}).Error; err != nil {
		t.Fatalf("failed to seed material: %v", err)
	}
	if err := env.db.Create(&catalog.Colour{ID: colourID, Name: colourID}).Error; err != nil {
		t.Fatalf("failed to seed colour: %v", err)
	}
	filament := catalog.Filament{
		ID:         filamentID,
		Name:       filamentID,
		MaterialID: materialID,
		ColourID:   colourID,
		VendorID:   "vendor-1",
		Active:     true,
	}
	if err := env.db.Create(&filament).Error; err != nil {
		t.Fatalf("failed to seed filament: %v", err)
	}
}

func (env *testEnvironment) login(t *testing.T, email string) string {
	t.Helper()

	response := env.performJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email})
	if response.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", response.Code, response.Body.String())
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(response.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if payload.AccessToken == "" {
		t.Fatalf("expected access token in response")
	}
	return payload.AccessToken
}

func (env *testEnvironment) promoteAdmin(t *testing.T, email string) {
	t.Helper()

	account, err := env.users.ResolveByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("failed to resolve account: %v", err)
	}
	err = env.db.Model(&users.Customer{}).
		Where("id = ?", account.ID).
		Update("role", users.RoleAdmin).Error
	if err != nil {
		t.Fatalf("failed to promote account: %v", err)
	}
}

func (env *testEnvironment) performJSON(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, target, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, request)
	return recorder
}

func (env *testEnvironment) performUpload(t *testing.T, token, filename, contents string) *httptest.ResponseRecorder {
	t.Helper()

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write([]byte(contents)); err != nil {
		t.Fatalf("failed to write multipart payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to finish multipart body: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/api/models", &buffer)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeDoc(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload struct {
		Doc map[string]interface{} `json:"doc"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response document: %v", err)
	}
	if payload.Doc == nil {
		t.Fatalf("expected doc envelope, got %s", recorder.Body.String())
	}
	return payload.Doc
}
