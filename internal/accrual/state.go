package accrual

import (
	"log"
	"math"
	"strconv"
	"strings"

	"GreenConnect/internal/model"
	"GreenConnect/internal/store"
)

// LoadState reads the counters from s. Missing, corrupt or negative values
// fall back to the seed defaults individually.
func LoadState(s store.Store) model.AccrualState {
	seed := model.SeedState()
	return model.AccrualState{
		Tokens:              loadCount(s, store.KeyTokens, seed.Tokens),
		ContributionMinutes: loadCount(s, store.KeyMinutes, seed.ContributionMinutes),
		CO2SavedKg:          loadKg(s, store.KeyCO2, seed.CO2SavedKg),
		TasksCompleted:      loadCount(s, store.KeyTasks, seed.TasksCompleted),
	}
}

func loadCount(s store.Store, key string, def int) int {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		log.Printf("[WARN] ignoring invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func loadKg(s store.Store, key string, def float64) float64 {
	raw, ok := s.Get(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		log.Printf("[WARN] ignoring invalid %s=%q, using %.1f", key, raw, def)
		return def
	}
	return RoundTenth(v)
}

func formatCount(v int) string { return strconv.Itoa(v) }

func formatKg(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
