package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates the quote does not exist.
	ErrNotFound = errors.New("quotes: not found")
	// ErrForbidden indicates the requester may not access the quote.
	ErrForbidden = errors.New("quotes: access denied")
)

// ValidationError carries a customer-facing message suitable for direct
// display; the HTTP layer surfaces it verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServiceError wraps a failure with an operation-scoped code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "quotes.service.new"
	opCreate     = "quotes.create"
	opUpdate     = "quotes.update"
	opGet        = "quotes.get"
	opList       = "quotes.list"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for quotes and gcode records.
type IDProvider interface {
	NewID() (string, error)
}

// CustomerDirectory resolves the email of a linked customer account, used to
// verify guest ownership lookups. Optional; without one only stored guest
// emails are matched.
type CustomerDirectory interface {
	EmailByID(ctx context.Context, customerID string) (string, error)
}

// ServiceConfig describes the dependencies of the quote service.
type ServiceConfig struct {
	Database        *gorm.DB
	Clock           func() time.Time
	IDProvider      IDProvider
	Logger          *zap.Logger
	Customers       CustomerDirectory
	DefaultCurrency string
}

// Service owns quote persistence: every save runs customer normalization,
// filament resolution, pricing, and gcode materialization inside one
// transaction, so a failed save leaves nothing behind.
type Service struct {
	db              *gorm.DB
	clock           func() time.Time
	idProvider      IDProvider
	logger          *zap.Logger
	customers       CustomerDirectory
	defaultCurrency string
}

// NewService constructs the quote service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}

	return &Service{
		db:              cfg.Database,
		clock:           clock,
		idProvider:      cfg.IDProvider,
		logger:          logger,
		customers:       cfg.Customers,
		defaultCurrency: currency,
	}, nil
}

// Create persists a new quote from a public submission.
func (s *Service) Create(ctx context.Context, requester Requester, input QuoteInput) (*Quote, error) {
	quoteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return nil, newServiceError(opCreate, "id_generation_failed", err)
	}

	quote := &Quote{
		ID:        quoteID,
		Status:    StatusNew,
		CreatedAt: s.clock().UTC(),
	}
	if input.Notes != nil {
		quote.Notes = strings.TrimSpace(*input.Notes)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.normalizeQuote(ctx, tx, requester, input, nil, quote); err != nil {
			return err
		}
		if err := tx.Create(quote).Error; err != nil {
			s.logError(opCreate, "quote_insert_failed", err, zap.String("quote_id", quoteID))
			return newServiceError(opCreate, "quote_insert_failed", err)
		}
		return s.materializeGcodes(ctx, tx, quote)
	})
	if txErr != nil {
		return nil, txErr
	}

	return quote, nil
}

// Update re-normalizes and persists an existing quote. Staff may change the
// status; items omitted from the input are kept but still re-resolved and
// re-priced, so stale filament or pricing data never survives a save.
func (s *Service) Update(ctx context.Context, requester Requester, quoteID string, input QuoteInput) (*Quote, error) {
	var updated *Quote

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := s.loadQuote(ctx, tx, quoteID, true)
		if err != nil {
			return err
		}
		if !requester.Admin && requester.ID != prior.CustomerID {
			return ErrForbidden
		}

		quote := &Quote{
			ID:        prior.ID,
			Status:    prior.Status,
			Notes:     prior.Notes,
			CreatedAt: prior.CreatedAt,
		}
		if input.Status != "" {
			if !requester.Admin {
				return ErrForbidden
			}
			status, err := ParseStatus(input.Status)
			if err != nil {
				return &ValidationError{Message: fmt.Sprintf("Unknown quote status %q.", input.Status)}
			}
			quote.Status = status
		}
		if input.Notes != nil {
			quote.Notes = strings.TrimSpace(*input.Notes)
		}
		if input.Currency == "" {
			input.Currency = prior.Currency
		}
		if input.Items == nil {
			input.Items = itemInputsFromStored(prior.Items)
		}

		if err := s.normalizeQuote(ctx, tx, requester, input, prior, quote); err != nil {
			return err
		}

		if err := tx.Where("quote_id = ?", quote.ID).Delete(&QuoteItem{}).Error; err != nil {
			s.logError(opUpdate, "items_delete_failed", err, zap.String("quote_id", quote.ID))
			return newServiceError(opUpdate, "items_delete_failed", err)
		}
		if err := tx.Omit("Items").Save(quote).Error; err != nil {
			s.logError(opUpdate, "quote_save_failed", err, zap.String("quote_id", quote.ID))
			return newServiceError(opUpdate, "quote_save_failed", err)
		}
		if len(quote.Items) > 0 {
			if err := tx.Create(&quote.Items).Error; err != nil {
				s.logError(opUpdate, "items_insert_failed", err, zap.String("quote_id", quote.ID))
				return newServiceError(opUpdate, "items_insert_failed", err)
			}
		}
		if err := s.materializeGcodes(ctx, tx, quote); err != nil {
			return err
		}

		updated = quote
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return updated, nil
}

// Get loads a quote, enforcing ownership: staff see everything, customers see
// their own quotes, and guests must present the matching email.
func (s *Service) Get(ctx context.Context, quoteID string, requester Requester, guestEmail string) (*Quote, error) {
	quote, err := s.loadQuote(ctx, s.db, quoteID, false)
	if err != nil {
		return nil, err
	}

	if requester.Admin {
		return quote, nil
	}
	if !requester.Anonymous() && requester.ID == quote.CustomerID {
		return quote, nil
	}

	lookup := strings.ToLower(strings.TrimSpace(guestEmail))
	if lookup != "" {
		if quote.CustomerEmail != "" && strings.EqualFold(quote.CustomerEmail, lookup) {
			return quote, nil
		}
		if quote.CustomerID != "" && s.customers != nil {
			email, err := s.customers.EmailByID(ctx, quote.CustomerID)
			if err == nil && email != "" && strings.EqualFold(email, lookup) {
				return quote, nil
			}
		}
	}

	return nil, ErrForbidden
}

// ListForCustomer returns the customer's quotes, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Quote, error) {
	if customerID == "" {
		return nil, newServiceError(opList, "missing_customer_id", errors.New("customer identifier is required"))
	}

	var results []Quote
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") }).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("customer_id", customerID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return results, nil
}

func (s *Service) loadQuote(ctx context.Context, db *gorm.DB, quoteID string, forUpdate bool) (*Quote, error) {
	if quoteID == "" {
		return nil, ErrNotFound
	}

	query := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position") })
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var quote Quote
	err := query.Where("id = ?", quoteID).Take(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("quote_id", quoteID))
		return nil, newServiceError(opGet, "query_failed", err)
	}
	return &quote, nil
}

func itemInputsFromStored(items []QuoteItem) []*ItemInput {
	inputs := make([]*ItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, &ItemInput{
			Model:         RelationRef{ID: item.ModelID},
			Material:      RelationRef{ID: item.MaterialID},
			Colour:        RelationRef{ID: item.ColourID},
			Process:       RelationRef{ID: item.ProcessID},
			Quantity:      float64(item.Quantity),
			Grams:         item.Grams,
			PriceOverride: item.PriceOverride,
		})
	}
	return inputs
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("quote service error", attrs...)
}
