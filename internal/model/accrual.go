package model

// Seed values used when no persisted counter exists.
const (
	SeedTokens              = 2450
	SeedContributionMinutes = 1840
	SeedCO2SavedKg          = 23.7
	SeedTasksCompleted      = 156
)

// AccrualState holds the persisted reward and impact counters.
type AccrualState struct {
	Tokens              int     `json:"tokens"`
	ContributionMinutes int     `json:"contribution_minutes"`
	CO2SavedKg          float64 `json:"co2_saved_kg"` // always one decimal place
	TasksCompleted      int     `json:"tasks_completed"`
}

// SeedState returns the default counters for a fresh installation.
func SeedState() AccrualState {
	return AccrualState{
		Tokens:              SeedTokens,
		ContributionMinutes: SeedContributionMinutes,
		CO2SavedKg:          SeedCO2SavedKg,
		TasksCompleted:      SeedTasksCompleted,
	}
}

// Stats is the read-only view handed to the presentation layer.
type Stats struct {
	AccrualState
	SustainabilityScore int `json:"sustainability_score"`
}
