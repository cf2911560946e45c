package recorder

import "GreenConnect/internal/model"

// TickEvent holds the outcome of one accrual tick.
type TickEvent struct {
	SessionID     string
	Eligible      bool
	TokensAdded   int
	TaskCompleted bool
	Status        model.DeviceStatus
	State         model.AccrualState // counters after the tick
}

// RedemptionEvent records a token redemption attempt.
type RedemptionEvent struct {
	SessionID    string
	Amount       int
	Success      bool
	TokensBefore int
	TokensAfter  int
}

// StatusSnapshot is a periodic copy of the sampled device status.
type StatusSnapshot struct {
	SessionID    string
	Status       model.DeviceStatus
	Capabilities model.Capabilities
	Score        int
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordTick(evt *TickEvent) error
	RecordRedemption(evt *RedemptionEvent) error
	RecordStatus(snap *StatusSnapshot) error
	Close() error
}
