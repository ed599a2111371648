package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crawdwall/capital-review-api/internal/models"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type officerStore interface {
	Create(ctx context.Context, officer *models.Officer) error
	GetByID(ctx context.Context, id string) (*models.Officer, error)
	FindByEmail(ctx context.Context, email string) (*models.Officer, error)
	List(ctx context.Context) ([]models.Officer, error)
	UpdateStatus(ctx context.Context, id string, status models.OfficerStatus) error
	Delete(ctx context.Context, id string) error
	CountActive(ctx context.Context) (int, error)
}

// CreateOfficerRequest onboards a new review officer.
type CreateOfficerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// OfficerService manages the reviewer roster. Status changes here feed
// directly into threshold evaluation: only ACTIVE officers count.
type OfficerService struct {
	officers  officerStore
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

func NewOfficerService(officers officerStore, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *OfficerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficerService{officers: officers, audit: audit, validator: validate, logger: logger}
}

// Create registers a new officer as ACTIVE.
func (s *OfficerService) Create(ctx context.Context, adminID string, req CreateOfficerRequest) (*models.Officer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid officer payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.officers.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "officer email already registered")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check officer email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	officer := &models.Officer{
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Status:       models.OfficerActive,
	}
	if err := s.officers.Create(ctx, officer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create officer")
	}

	s.record(ctx, models.AuditActionOfficerCreated, adminID, map[string]interface{}{
		"officer_id": officer.ID,
		"email":      officer.Email,
	})
	s.logger.Info("officer created", zap.String("officer_id", officer.ID), zap.String("admin_id", adminID))
	return officer, nil
}

// List returns the full roster.
func (s *OfficerService) List(ctx context.Context) ([]models.Officer, error) {
	officers, err := s.officers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officers")
	}
	return officers, nil
}

// Get fetches a single officer.
func (s *OfficerService) Get(ctx context.Context, id string) (*models.Officer, error) {
	officer, err := s.officers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	return officer, nil
}

// UpdateStatus activates, deactivates or suspends an officer. Deactivation
// shrinks the active pool, which can tip pending proposals into
// auto-rejection on their next vote.
func (s *OfficerService) UpdateStatus(ctx context.Context, adminID, officerID string, status models.OfficerStatus) (*models.Officer, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown officer status")
	}
	officer, err := s.Get(ctx, officerID)
	if err != nil {
		return nil, err
	}
	if officer.Status == status {
		return officer, nil
	}
	if err := s.officers.UpdateStatus(ctx, officerID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update officer status")
	}

	s.record(ctx, models.AuditActionOfficerStatusChange, adminID, map[string]interface{}{
		"officer_id": officerID,
		"old_status": officer.Status,
		"new_status": status,
	})
	officer.Status = status
	return officer, nil
}

// Delete removes an officer. Existing votes stay in the ledger.
func (s *OfficerService) Delete(ctx context.Context, adminID, officerID string) error {
	if err := s.officers.Delete(ctx, officerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete officer")
	}
	s.record(ctx, models.AuditActionOfficerDeleted, adminID, map[string]interface{}{
		"officer_id": officerID,
	})
	return nil
}

// ActiveCount returns the current active officer pool size.
func (s *OfficerService) ActiveCount(ctx context.Context) (int, error) {
	count, err := s.officers.CountActive(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active officers")
	}
	return count, nil
}

func (s *OfficerService) record(ctx context.Context, action, adminID string, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	entry := &models.AuditEntry{
		Action:          action,
		PerformedBy:     adminID,
		PerformedByRole: models.RoleAdmin,
		Details:         payload,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to record officer audit", zap.String("action", action), zap.Error(err))
	}
}
