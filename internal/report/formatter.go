package report

import (
	"fmt"
	"strings"
	"time"

	"GreenConnect/internal/model"
)

// FormatDeviceStatus renders the sampled status. Simulated metrics are marked
// so they are never presented as real.
func FormatDeviceStatus(st model.DeviceStatus, caps model.Capabilities) string {
	var b strings.Builder
	b.WriteString("📱 Device status\n\n")

	power := ""
	if !caps.Power {
		power = " (simulated)"
	}
	b.WriteString(fmt.Sprintf("Charging: %s%s\n", yesNo(st.IsCharging), power))
	b.WriteString(fmt.Sprintf("Battery: %d%%%s\n", st.BatteryLevel, power))

	network := ""
	if !caps.Network {
		network = " (not introspectable)"
	}
	b.WriteString(fmt.Sprintf("Network: %s, %s%s\n", onlineLabel(st.IsOnline), st.NetworkType, network))

	b.WriteString(fmt.Sprintf("Idle: %s\n", yesNo(st.IsIdle)))
	b.WriteString(fmt.Sprintf("Session time: %s\n", time.Duration(st.ScreenTime)*time.Second))
	b.WriteString(fmt.Sprintf("Last activity: %s\n", st.LastActivity.Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatStats renders the accrual counters and score.
func FormatStats(s model.Stats) string {
	var b strings.Builder
	b.WriteString("🌱 Contribution\n\n")
	b.WriteString(fmt.Sprintf("Tokens: %d\n", s.Tokens))
	b.WriteString(fmt.Sprintf("Contribution time: %s\n", FormatMinutes(s.ContributionMinutes)))
	b.WriteString(fmt.Sprintf("CO₂ saved: %.1f kg\n", s.CO2SavedKg))
	b.WriteString(fmt.Sprintf("Tasks completed: %d\n", s.TasksCompleted))
	b.WriteString(fmt.Sprintf("Sustainability score: %d/100\n", s.SustainabilityScore))
	return b.String()
}

// FormatMinutes renders minutes as "30h 40m".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

// FormatSummary renders the exported summary report.
func FormatSummary(now time.Time, s model.Stats, st model.DeviceStatus, caps model.Capabilities) string {
	var b strings.Builder
	b.WriteString("Green Connect Summary Report\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", now.UTC().Format(time.RFC3339)))
	b.WriteString("Impact Data:\n")
	b.WriteString(fmt.Sprintf("- CO₂ Saved: %.1f kg\n", s.CO2SavedKg))
	b.WriteString(fmt.Sprintf("- Contribution Time: %s\n", FormatMinutes(s.ContributionMinutes)))
	b.WriteString(fmt.Sprintf("- Tasks Completed: %d\n", s.TasksCompleted))
	b.WriteString(fmt.Sprintf("- Tokens: %d\n", s.Tokens))
	b.WriteString(fmt.Sprintf("- Sustainability Score: %d/100\n\n", s.SustainabilityScore))
	b.WriteString(FormatDeviceStatus(st, caps))
	return b.String()
}

// SummaryFileName is the export file name for the given day.
func SummaryFileName(now time.Time) string {
	return fmt.Sprintf("green-connect-summary-%s.txt", now.UTC().Format("2006-01-02"))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onlineLabel(v bool) string {
	if v {
		return "online"
	}
	return "offline"
}
