package scheduler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"GreenConnect/internal/accrual"
	"GreenConnect/internal/recorder"
	"GreenConnect/internal/report"
	"GreenConnect/internal/sensor"

	"github.com/robfig/cron/v3"
)

// Scheduler wires the sampler and accrual engine together and runs the
// periodic report.
type Scheduler struct {
	Cron      *cron.Cron
	Sampler   *sensor.Sampler
	Engine    *accrual.Engine
	Recorder  recorder.Recorder
	ExportDir string
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(sampler *sensor.Sampler, engine *accrual.Engine, rec recorder.Recorder, exportDir string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default())))),
		Sampler:   sampler,
		Engine:    engine,
		Recorder:  rec,
		ExportDir: exportDir,
		Now:       time.Now,
	}
}

// RegisterAll registers the periodic status report.
func (s *Scheduler) RegisterAll(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts sampling first so the first accrual tick sees real data.
func (s *Scheduler) Start() error {
	if err := s.Sampler.Start(); err != nil {
		return fmt.Errorf("start sampler: %w", err)
	}
	if err := s.Engine.Start(); err != nil {
		s.Sampler.Stop()
		return fmt.Errorf("start accrual engine: %w", err)
	}
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
	return nil
}

// Stop tears everything down in reverse order.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Engine.Stop()
	s.Sampler.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunReportNow executes the report task immediately.
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	status := s.Sampler.CurrentStatus()
	caps := s.Sampler.Capabilities()
	stats := s.Engine.Stats()

	log.Printf("[INFO] report: tokens=%d minutes=%d co2=%.1fkg tasks=%d score=%d charging=%t idle=%t battery=%d simulated_power=%t",
		stats.Tokens, stats.ContributionMinutes, stats.CO2SavedKg, stats.TasksCompleted, stats.SustainabilityScore,
		status.IsCharging, status.IsIdle, status.BatteryLevel, !caps.Power)

	if err := s.Recorder.RecordStatus(&recorder.StatusSnapshot{
		SessionID:    s.Sampler.SessionID(),
		Status:       status,
		Capabilities: caps,
		Score:        stats.SustainabilityScore,
	}); err != nil {
		log.Printf("[ERROR] record status: %v", err)
	}
}

// Export writes the summary report to ExportDir and returns its path.
func (s *Scheduler) Export() (string, error) {
	now := s.Now()
	if err := os.MkdirAll(s.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.ExportDir, report.SummaryFileName(now))
	body := report.FormatSummary(now, s.Engine.Stats(), s.Sampler.CurrentStatus(), s.Sampler.Capabilities())
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.TrimPrefix(strings.ToLower(fields[0]), "/") {
	case "status":
		return report.FormatDeviceStatus(s.Sampler.CurrentStatus(), s.Sampler.Capabilities())
	case "stats":
		return report.FormatStats(s.Engine.Stats())
	case "redeem":
		if len(fields) != 2 {
			return "usage: redeem <amount>"
		}
		amount, err := strconv.Atoi(fields[1])
		if err != nil || amount < 0 {
			return fmt.Sprintf("invalid amount %q", fields[1])
		}
		ok, balance := s.Engine.RedeemBalance(amount)
		if !ok {
			return fmt.Sprintf("❌ insufficient balance: %d tokens available", balance)
		}
		log.Printf("[INFO] redeemed %d tokens", amount)
		return fmt.Sprintf("✅ redeemed %d tokens, %d remaining", amount, balance)
	case "export":
		path, err := s.Export()
		if err != nil {
			log.Printf("[ERROR] export: %v", err)
			return "❌ export failed"
		}
		return "report written to " + path
	default:
		return "commands:\n• status\n• stats\n• redeem <amount>\n• export"
	}
}
