package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/pkg/config"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

type mockConfigStore struct {
	values map[string]string
}

func (m *mockConfigStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockConfigStore) GetAll(ctx context.Context) ([]models.ConfigEntry, error) {
	var entries []models.ConfigEntry
	for k, v := range m.values {
		entries = append(entries, models.ConfigEntry{Key: k, Value: v})
	}
	return entries, nil
}

func (m *mockConfigStore) Upsert(ctx context.Context, key, value, updatedBy string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func configDefaults() config.VotingConfig {
	return config.VotingConfig{AcceptanceThreshold: 4, CallbackOffsetDays: 7, ReapplyOffsetDays: 30}
}

func investmentDefaults() config.InvestmentConfig {
	return config.InvestmentConfig{MinimumAmount: 1000}
}

func TestSettingsDefaultsWhenTableEmpty(t *testing.T) {
	svc := NewConfigurationService(&mockConfigStore{}, &fakeAudit{}, configDefaults(), investmentDefaults(), zap.NewNop())

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.PlatformSettings{AcceptanceThreshold: 4, CallbackOffsetDays: 7, ReapplyOffsetDays: 30, MinimumInvestment: 1000}, settings)
}

func TestSettingsOverridesApplied(t *testing.T) {
	store := &mockConfigStore{values: map[string]string{
		models.ConfigKeyAcceptanceThreshold: "6",
		models.ConfigKeyReapplyOffsetDays:   "14",
	}}
	svc := NewConfigurationService(store, &fakeAudit{}, configDefaults(), investmentDefaults(), zap.NewNop())

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, settings.AcceptanceThreshold)
	assert.Equal(t, 7, settings.CallbackOffsetDays)
	assert.Equal(t, 14, settings.ReapplyOffsetDays)
}

func TestSettingsMalformedValueIgnored(t *testing.T) {
	store := &mockConfigStore{values: map[string]string{
		models.ConfigKeyAcceptanceThreshold: "not-a-number",
	}}
	svc := NewConfigurationService(store, &fakeAudit{}, configDefaults(), investmentDefaults(), zap.NewNop())

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, settings.AcceptanceThreshold)
}

func TestUpdateSettingsPersistsAndAudits(t *testing.T) {
	store := &mockConfigStore{}
	audit := &fakeAudit{}
	svc := NewConfigurationService(store, audit, configDefaults(), investmentDefaults(), zap.NewNop())

	threshold := 5
	reapply := 60
	settings, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{
		AcceptanceThreshold: &threshold,
		ReapplyOffsetDays:   &reapply,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, settings.AcceptanceThreshold)
	assert.Equal(t, 60, settings.ReapplyOffsetDays)
	assert.Equal(t, "5", store.values[models.ConfigKeyAcceptanceThreshold])

	require.Len(t, audit.entries, 2)
	for _, entry := range audit.entries {
		assert.Equal(t, models.AuditActionConfigUpdated, entry.Action)
		assert.Equal(t, "admin-1", entry.PerformedBy)
	}
}

func TestUpdateSettingsRejectsNonPositive(t *testing.T) {
	store := &mockConfigStore{}
	audit := &fakeAudit{}
	svc := NewConfigurationService(store, audit, configDefaults(), investmentDefaults(), zap.NewNop())

	zero := 0
	_, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{AcceptanceThreshold: &zero})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, store.values)
	assert.Empty(t, audit.entries)
}

func TestSettingsMinimumInvestmentOverride(t *testing.T) {
	store := &mockConfigStore{values: map[string]string{
		models.ConfigKeyMinimumInvestment: "2500.50",
	}}
	svc := NewConfigurationService(store, &fakeAudit{}, configDefaults(), investmentDefaults(), zap.NewNop())

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500.50, settings.MinimumInvestment)
}

func TestUpdateSettingsMinimumInvestment(t *testing.T) {
	store := &mockConfigStore{}
	audit := &fakeAudit{}
	svc := NewConfigurationService(store, audit, configDefaults(), investmentDefaults(), zap.NewNop())

	minimum := 500.0
	settings, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{MinimumInvestment: &minimum})
	require.NoError(t, err)
	assert.Equal(t, 500.0, settings.MinimumInvestment)
	assert.Equal(t, "500", store.values[models.ConfigKeyMinimumInvestment])
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionConfigUpdated, audit.entries[0].Action)

	negative := -10.0
	_, err = svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{MinimumInvestment: &negative})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUpdateSettingsNilFieldsUntouched(t *testing.T) {
	store := &mockConfigStore{values: map[string]string{
		models.ConfigKeyCallbackOffsetDays: "10",
	}}
	svc := NewConfigurationService(store, &fakeAudit{}, configDefaults(), investmentDefaults(), zap.NewNop())

	threshold := 3
	settings, err := svc.Update(context.Background(), "admin-1", UpdateSettingsRequest{AcceptanceThreshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, 3, settings.AcceptanceThreshold)
	assert.Equal(t, 10, settings.CallbackOffsetDays)
	assert.Equal(t, 30, settings.ReapplyOffsetDays)
}
