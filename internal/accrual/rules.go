package accrual

import (
	"math"

	"GreenConnect/internal/model"
)

const (
	// MinBatteryLevel is the level a device must exceed to contribute.
	MinBatteryLevel = 20

	baseTokenRate  = 1.0
	batteryBonus   = 0.5 // battery above 80%
	networkBonus   = 0.3 // online
	highBatteryMin = 80

	// co2 is tracked in hundredths of a kilogram while rounding.
	co2PerTickHundredths = 5

	taskCompletionThreshold = 0.95
)

// Eligible reports whether the device may contribute during this tick.
func Eligible(st model.DeviceStatus) bool {
	return st.IsCharging && st.IsIdle && st.BatteryLevel > MinBatteryLevel
}

// TokenRate returns the per-minute token rate for an eligible device.
func TokenRate(st model.DeviceStatus) float64 {
	rate := baseTokenRate
	if st.BatteryLevel > highBatteryMin {
		rate += batteryBonus
	}
	if st.IsOnline {
		rate += networkBonus
	}
	return rate
}

// TokensForTick floors the rate; fractional bonuses are dropped every tick.
func TokensForTick(st model.DeviceStatus) int {
	return int(math.Floor(TokenRate(st)))
}

// AddCO2 adds one tick of impact to kg and rounds half-up to one decimal.
func AddCO2(kg float64) float64 {
	hundredths := int64(math.Round(kg*100)) + co2PerTickHundredths
	return float64((hundredths+5)/10) / 10
}

// RoundTenth rounds half-up to one decimal place.
func RoundTenth(kg float64) float64 {
	return math.Floor(kg*10+0.5) / 10
}

// Score blends time, tokens and CO2 into a 0-100 sustainability score.
func Score(s model.AccrualState) int {
	timeScore := math.Min(float64(s.ContributionMinutes)/2000*40, 40)
	tokenScore := math.Min(float64(s.Tokens)/5000*30, 30)
	co2Score := math.Min(s.CO2SavedKg/50*30, 30)

	score := int(math.Floor(timeScore + tokenScore + co2Score))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
