package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	operationNewService = "uploads.service.new"
	operationStore      = "uploads.service.store"
	operationGet        = "uploads.service.get"
	operationOpen       = "uploads.service.open"
)

// ErrNotFound indicates no stored model matches the identifier.
var ErrNotFound = errors.New("uploads: model not found")

// ErrTooLarge indicates the payload exceeds the configured size limit.
var ErrTooLarge = errors.New("uploads: payload exceeds size limit")

// ErrEmptyPayload indicates the payload carried no bytes.
var ErrEmptyPayload = errors.New("uploads: empty payload")

// ServiceError wraps storage failures with an operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("%s: %v", e.code, e.err) }
func (e *ServiceError) Unwrap() error { return e.err }
func (e *ServiceError) Code() string  { return e.code }

func newServiceError(operation string, reason string, cause error) *ServiceError {
	if cause == nil {
		cause = errors.New(reason)
	} else if reason != "" {
		cause = fmt.Errorf("%s: %w", reason, cause)
	}
	return &ServiceError{code: operation, err: cause}
}

// ServiceConfig describes the dependencies for model intake.
type ServiceConfig struct {
	Database    *gorm.DB
	StoragePath string
	MaxBytes    int64
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Service receives model files, writes them to disk and records them.
type Service struct {
	db          *gorm.DB
	storagePath string
	maxBytes    int64
	now         func() time.Time
	logger      *zap.Logger
}

// NewService validates the configuration and prepares the storage directory.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(operationNewService, "database connection required", nil)
	}
	if strings.TrimSpace(cfg.StoragePath) == "" {
		return nil, newServiceError(operationNewService, "storage path required", nil)
	}
	if cfg.MaxBytes <= 0 {
		return nil, newServiceError(operationNewService, "positive size limit required", nil)
	}
	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return nil, newServiceError(operationNewService, "failed to prepare storage directory", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          cfg.Database,
		storagePath: cfg.StoragePath,
		maxBytes:    cfg.MaxBytes,
		now:         clock,
		logger:      logger,
	}, nil
}

// Store writes the payload to the storage directory under a unique name and
// records it. The stored filename keeps the original extension so slicers can
// recognize the format.
func (s *Service) Store(ctx context.Context, ownerID string, originalName string, payload io.Reader) (*Model, error) {
	trimmedName := strings.TrimSpace(originalName)
	if trimmedName == "" {
		trimmedName = "model"
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, newServiceError(operationStore, "failed to generate model id", err)
	}
	storedName := id.String() + sanitizeExtension(trimmedName)
	destination := filepath.Join(s.storagePath, storedName)

	file, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.logError(operationStore, "failed to create storage file", err, zap.String("storedName", storedName))
		return nil, newServiceError(operationStore, "failed to create storage file", err)
	}

	written, err := io.Copy(file, io.LimitReader(payload, s.maxBytes+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil && written == 0 {
		err = ErrEmptyPayload
	}
	if err != nil {
		_ = os.Remove(destination)
		if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrEmptyPayload) {
			return nil, err
		}
		s.logError(operationStore, "failed to write payload", err, zap.String("storedName", storedName))
		return nil, newServiceError(operationStore, "failed to write payload", err)
	}

	record := Model{
		ID:           id.String(),
		OwnerID:      strings.TrimSpace(ownerID),
		OriginalName: trimmedName,
		StoredName:   storedName,
		SizeBytes:    written,
		ContentType:  contentTypeFor(trimmedName),
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		_ = os.Remove(destination)
		s.logError(operationStore, "failed to persist model record", err, zap.String("modelID", record.ID))
		return nil, newServiceError(operationStore, "failed to persist model record", err)
	}

	return &record, nil
}

// Get loads a stored model record by id.
func (s *Service) Get(ctx context.Context, modelID string) (*Model, error) {
	if modelID == "" {
		return nil, ErrNotFound
	}
	var record Model
	err := s.db.WithContext(ctx).
		Where("id = ?", modelID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, newServiceError(operationGet, "failed to load model record", err)
	}
	return &record, nil
}

// Open returns the stored payload for reading. The caller closes it.
func (s *Service) Open(ctx context.Context, modelID string) (io.ReadCloser, *Model, error) {
	record, err := s.Get(ctx, modelID)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(filepath.Join(s.storagePath, record.StoredName))
	if err != nil {
		s.logError(operationOpen, "failed to open stored payload", err, zap.String("modelID", modelID))
		return nil, nil, newServiceError(operationOpen, "failed to open stored payload", err)
	}
	return file, record, nil
}

// Exists reports whether a model record with the id is stored.
func (s *Service) Exists(ctx context.Context, modelID string) (bool, error) {
	_, err := s.Get(ctx, modelID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) logError(operation string, reason string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	s.logger.Error("uploads service operation failed", allFields...)
}

// sanitizeExtension keeps only a plain alphanumeric extension from the name.
func sanitizeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".stl":
		return "model/stl"
	case ".obj":
		return "model/obj"
	case ".3mf":
		return "model/3mf"
	case ".step", ".stp":
		return "model/step"
	case ".gcode":
		return "text/x.gcode"
	default:
		return "application/octet-stream"
	}
}
