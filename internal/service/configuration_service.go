package service

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/pkg/config"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type configStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	GetAll(ctx context.Context) ([]models.ConfigEntry, error)
	Upsert(ctx context.Context, key, value, updatedBy string) error
}

// UpdateSettingsRequest carries the adjustable platform parameters. Nil
// fields are left unchanged.
type UpdateSettingsRequest struct {
	AcceptanceThreshold *int     `json:"acceptance_threshold" validate:"omitempty,min=1"`
	CallbackOffsetDays  *int     `json:"callback_offset_days" validate:"omitempty,min=1"`
	ReapplyOffsetDays   *int     `json:"reapply_offset_days" validate:"omitempty,min=1"`
	MinimumInvestment   *float64 `json:"minimum_investment" validate:"omitempty,gt=0"`
}

// ConfigurationService exposes runtime voting parameters backed by the
// platform_config table, with environment defaults as fallback. Settings are
// read fresh on every call so a threshold change applies to the very next
// vote evaluation.
type ConfigurationService struct {
	store      configStore
	audit      auditWriter
	defaults   config.VotingConfig
	investment config.InvestmentConfig
	logger     *zap.Logger
}

func NewConfigurationService(store configStore, audit auditWriter, defaults config.VotingConfig, investment config.InvestmentConfig, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{store: store, audit: audit, defaults: defaults, investment: investment, logger: logger}
}

// Settings returns the effective voting parameters.
func (s *ConfigurationService) Settings(ctx context.Context) (models.PlatformSettings, error) {
	settings := models.PlatformSettings{
		AcceptanceThreshold: s.defaults.AcceptanceThreshold,
		CallbackOffsetDays:  s.defaults.CallbackOffsetDays,
		ReapplyOffsetDays:   s.defaults.ReapplyOffsetDays,
		MinimumInvestment:   s.investment.MinimumAmount,
	}

	threshold, err := s.intSetting(ctx, models.ConfigKeyAcceptanceThreshold)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	if threshold != nil {
		settings.AcceptanceThreshold = *threshold
	}

	callback, err := s.intSetting(ctx, models.ConfigKeyCallbackOffsetDays)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	if callback != nil {
		settings.CallbackOffsetDays = *callback
	}

	reapply, err := s.intSetting(ctx, models.ConfigKeyReapplyOffsetDays)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	if reapply != nil {
		settings.ReapplyOffsetDays = *reapply
	}

	minimum, err := s.floatSetting(ctx, models.ConfigKeyMinimumInvestment)
	if err != nil {
		return models.PlatformSettings{}, err
	}
	if minimum != nil {
		settings.MinimumInvestment = *minimum
	}
	return settings, nil
}

// Update persists the supplied overrides and audits each change.
func (s *ConfigurationService) Update(ctx context.Context, adminID string, req UpdateSettingsRequest) (models.PlatformSettings, error) {
	changes := map[string]*int{
		models.ConfigKeyAcceptanceThreshold: req.AcceptanceThreshold,
		models.ConfigKeyCallbackOffsetDays:  req.CallbackOffsetDays,
		models.ConfigKeyReapplyOffsetDays:   req.ReapplyOffsetDays,
	}
	for key, value := range changes {
		if value == nil {
			continue
		}
		if *value < 1 {
			return models.PlatformSettings{}, appErrors.Clone(appErrors.ErrValidation, "setting "+key+" must be at least 1")
		}
		if err := s.store.Upsert(ctx, key, strconv.Itoa(*value), adminID); err != nil {
			return models.PlatformSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting "+key)
		}
		s.recordChange(ctx, adminID, key, strconv.Itoa(*value))
	}

	if req.MinimumInvestment != nil {
		if *req.MinimumInvestment <= 0 {
			return models.PlatformSettings{}, appErrors.Clone(appErrors.ErrValidation, "setting "+models.ConfigKeyMinimumInvestment+" must be positive")
		}
		raw := strconv.FormatFloat(*req.MinimumInvestment, 'f', -1, 64)
		if err := s.store.Upsert(ctx, models.ConfigKeyMinimumInvestment, raw, adminID); err != nil {
			return models.PlatformSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting "+models.ConfigKeyMinimumInvestment)
		}
		s.recordChange(ctx, adminID, models.ConfigKeyMinimumInvestment, raw)
	}
	return s.Settings(ctx)
}

func (s *ConfigurationService) floatSetting(ctx context.Context, key string) (*float64, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting "+key)
	}
	if !ok {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn("ignoring malformed platform setting", zap.String("key", key), zap.String("value", raw))
		return nil, nil
	}
	return &value, nil
}

func (s *ConfigurationService) intSetting(ctx context.Context, key string) (*int, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load setting "+key)
	}
	if !ok {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed platform setting", zap.String("key", key), zap.String("value", raw))
		return nil, nil
	}
	return &value, nil
}

func (s *ConfigurationService) recordChange(ctx context.Context, adminID, key, value string) {
	details, _ := json.Marshal(map[string]interface{}{"key": key, "value": value})
	entry := &models.AuditEntry{
		Action:          models.AuditActionConfigUpdated,
		PerformedBy:     adminID,
		PerformedByRole: models.RoleAdmin,
		Details:         details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to audit config update", zap.String("key", key), zap.Error(err))
	}
}
