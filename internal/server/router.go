package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/printforge/printforge/internal/auth"
	"github.com/printforge/printforge/internal/catalog"
	"github.com/printforge/printforge/internal/quotes"
	"github.com/printforge/printforge/internal/uploads"
	"github.com/printforge/printforge/internal/users"
)

const requesterContextKey = "printforge_requester"

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingQuotesService  = errors.New("quote service dependency required")
	errMissingUploadsService = errors.New("upload service dependency required")
	errMissingUsersService   = errors.New("account service dependency required")
	errMissingDatabase       = errors.New("database dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// SessionTokenManager issues and validates customer session tokens.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, claims auth.SessionClaims) (string, int64, error)
	ValidateToken(token string) (auth.SessionClaims, error)
}

// Dependencies wires the HTTP surface to the storefront services.
type Dependencies struct {
	TokenManager    SessionTokenManager
	QuotesService   *quotes.Service
	UploadsService  *uploads.Service
	UsersService    *users.Service
	Database        *gorm.DB
	Logger          *zap.Logger
	DefaultCurrency string
}

// NewHTTPHandler assembles the storefront API router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.QuotesService == nil {
		return nil, errMissingQuotesService
	}
	if deps.UploadsService == nil {
		return nil, errMissingUploadsService
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.Database == nil {
		return nil, errMissingDatabase
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:          deps.TokenManager,
		quotesService:   deps.QuotesService,
		uploadsService:  deps.UploadsService,
		usersService:    deps.UsersService,
		db:              deps.Database,
		logger:          logger,
		defaultCurrency: currency,
	}

	api := router.Group("/api")
	api.Use(handler.resolveRequester)

	api.POST("/auth/login", handler.handleLogin)
	api.GET("/quote-options", handler.handleQuoteOptions)
	api.POST("/models", handler.handleModelUpload)
	api.POST("/quotes", handler.handleQuoteCreate)
	api.GET("/quotes/:id", handler.handleQuoteGet)

	authenticated := api.Group("/")
	authenticated.Use(handler.requireRequester)
	authenticated.GET("/quotes", handler.handleQuoteList)
	authenticated.PATCH("/quotes/:id", handler.handleQuoteUpdate)

	return router, nil
}

type httpHandler struct {
	tokens          SessionTokenManager
	quotesService   *quotes.Service
	uploadsService  *uploads.Service
	usersService    *users.Service
	db              *gorm.DB
	logger          *zap.Logger
	defaultCurrency string
}

type loginRequestPayload struct {
	Email string `json:"email"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	customer, err := h.usersService.ResolveByEmail(c.Request.Context(), request.Email)
	if errors.Is(err, users.ErrInvalidEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), auth.SessionClaims{
		Subject: customer.ID,
		Email:   customer.Email,
	})
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleQuoteOptions(c *gin.Context) {
	options, err := catalog.LoadWizardOptions(c.Request.Context(), h.db, h.defaultCurrency)
	if err != nil {
		h.logger.Error("failed to load quote options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "options_failed"})
		return
	}
	c.JSON(http.StatusOK, options)
}

func (h *httpHandler) handleModelUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer file.Close()

	requester := requesterFrom(c)
	record, err := h.uploadsService.Store(c.Request.Context(), requester.ID, fileHeader.Filename, file)
	if errors.Is(err, uploads.ErrTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}
	if errors.Is(err, uploads.ErrEmptyPayload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_file"})
		return
	}
	if err != nil {
		h.logger.Error("failed to store model", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"doc": record})
}

func (h *httpHandler) handleQuoteCreate(c *gin.Context) {
	var input quotes.QuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	quote, err := h.quotesService.Create(c.Request.Context(), requesterFrom(c), input)
	if err != nil {
		h.renderQuoteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"doc": quote})
}

func (h *httpHandler) handleQuoteUpdate(c *gin.Context) {
	var input quotes.QuoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	quote, err := h.quotesService.Update(c.Request.Context(), requesterFrom(c), c.Param("id"), input)
	if err != nil {
		h.renderQuoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doc": quote})
}

func (h *httpHandler) handleQuoteGet(c *gin.Context) {
	quote, err := h.quotesService.Get(c.Request.Context(), c.Param("id"), requesterFrom(c), c.Query("email"))
	if err != nil {
		h.renderQuoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"doc": quote})
}

func (h *httpHandler) handleQuoteList(c *gin.Context) {
	requester := requesterFrom(c)
	listed, err := h.quotesService.ListForCustomer(c.Request.Context(), requester.ID)
	if err != nil {
		h.renderQuoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"docs": listed})
}

func (h *httpHandler) renderQuoteError(c *gin.Context, err error) {
	var validation *quotes.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.Is(err, quotes.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, quotes.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		h.logger.Error("quote request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// resolveRequester validates an Authorization header when one is present and
// attaches the resulting identity. Requests without a header stay anonymous.
func (h *httpHandler) resolveRequester(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requester := quotes.Requester{ID: claims.Subject, Email: claims.Email}
	if account, err := h.usersService.Get(c.Request.Context(), claims.Subject); err == nil {
		requester.Email = account.Email
		requester.Admin = account.Role == users.RoleAdmin
	}

	c.Set(requesterContextKey, requester)
	c.Next()
}

func (h *httpHandler) requireRequester(c *gin.Context) {
	if requesterFrom(c).Anonymous() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	c.Next()
}

func requesterFrom(c *gin.Context) quotes.Requester {
	value, ok := c.Get(requesterContextKey)
	if !ok {
		return quotes.Requester{}
	}
	requester, ok := value.(quotes.Requester)
	if !ok {
		return quotes.Requester{}
	}
	return requester
}
