package models

import "time"

// Platform configuration keys.
const (
	ConfigKeyAcceptanceThreshold = "voting.acceptance_threshold"
	ConfigKeyCallbackOffsetDays  = "voting.callback_offset_days"
	ConfigKeyReapplyOffsetDays   = "voting.reapply_offset_days"
	ConfigKeyMinimumInvestment   = "investment.minimum_amount"
)

// ConfigEntry is one key-value row of runtime platform configuration.
type ConfigEntry struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PlatformSettings is the typed view of the runtime platform configuration.
type PlatformSettings struct {
	AcceptanceThreshold int     `json:"acceptance_threshold"`
	CallbackOffsetDays  int     `json:"callback_offset_days"`
	ReapplyOffsetDays   int     `json:"reapply_offset_days"`
	MinimumInvestment   float64 `json:"minimum_investment"`
}
