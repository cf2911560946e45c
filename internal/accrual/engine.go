package accrual

import (
	"fmt"
	"log"
	"sync"

	"GreenConnect/internal/model"
	"GreenConnect/internal/recorder"
	"GreenConnect/internal/store"

	"github.com/robfig/cron/v3"
)

// TickSpec is the cadence of the accrual tick.
const TickSpec = "@every 1m"

// StatusProvider supplies the sampled device status.
type StatusProvider interface {
	CurrentStatus() model.DeviceStatus
	SessionID() string
}

// Rand drives probabilistic task completion.
type Rand interface {
	Float64() float64
}

// TickResult describes what a single tick changed.
type TickResult struct {
	Eligible      bool
	TokensAdded   int
	TaskCompleted bool
}

// Engine converts eligible device time into persisted counters. Tick and
// Redeem are serialized by mu.
type Engine struct {
	store    store.Store
	status   StatusProvider
	rng      Rand
	recorder recorder.Recorder
	cron     *cron.Cron

	mu      sync.Mutex
	state   model.AccrualState
	started bool
	stopped bool
}

// NewEngine loads the counters from st and wires the engine. rec may be nil.
func NewEngine(st store.Store, status StatusProvider, rng Rand, rec recorder.Recorder) *Engine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Engine{
		store:    st,
		status:   status,
		rng:      rng,
		recorder: rec,
		state:    LoadState(st),
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))),
		),
	}
}

// Start schedules the periodic tick. Calling it again, or after Stop, does nothing.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return nil
	}
	if _, err := e.cron.AddFunc(TickSpec, func() { e.Tick() }); err != nil {
		return fmt.Errorf("register accrual tick: %w", err)
	}
	e.started = true
	e.cron.Start()
	log.Println("[INFO] accrual engine started")
	return nil
}

// Stop cancels the tick and waits for a running one to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	<-e.cron.Stop().Done()
	log.Println("[INFO] accrual engine stopped")
}

// Tick runs one accrual cycle against the current device status.
func (e *Engine) Tick() TickResult {
	st := e.status.CurrentStatus()

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return TickResult{}
	}
	var res TickResult
	if Eligible(st) {
		res.Eligible = true
		res.TokensAdded = TokensForTick(st)

		e.state.Tokens += res.TokensAdded
		e.persist(store.KeyTokens, formatCount(e.state.Tokens))

		e.state.ContributionMinutes++
		e.persist(store.KeyMinutes, formatCount(e.state.ContributionMinutes))

		e.state.CO2SavedKg = AddCO2(e.state.CO2SavedKg)
		e.persist(store.KeyCO2, formatKg(e.state.CO2SavedKg))

		if e.rng.Float64() > taskCompletionThreshold {
			res.TaskCompleted = true
			e.state.TasksCompleted++
			e.persist(store.KeyTasks, formatCount(e.state.TasksCompleted))
		}
	}
	after := e.state
	e.mu.Unlock()

	if err := e.recorder.RecordTick(&recorder.TickEvent{
		SessionID:     e.status.SessionID(),
		Eligible:      res.Eligible,
		TokensAdded:   res.TokensAdded,
		TaskCompleted: res.TaskCompleted,
		Status:        st,
		State:         after,
	}); err != nil {
		log.Printf("[ERROR] record tick: %v", err)
	}
	return res
}

// Redeem spends amount tokens. It fails without side effects when amount is
// negative or exceeds the balance.
func (e *Engine) Redeem(amount int) bool {
	ok, _ := e.RedeemBalance(amount)
	return ok
}

// RedeemBalance is Redeem that also returns the balance left by this
// redemption, read under the same lock.
func (e *Engine) RedeemBalance(amount int) (bool, int) {
	e.mu.Lock()
	before := e.state.Tokens
	ok := amount >= 0 && before >= amount
	if ok {
		e.state.Tokens -= amount
		e.persist(store.KeyTokens, formatCount(e.state.Tokens))
	}
	after := e.state.Tokens
	e.mu.Unlock()

	if err := e.recorder.RecordRedemption(&recorder.RedemptionEvent{
		SessionID:    e.status.SessionID(),
		Amount:       amount,
		Success:      ok,
		TokensBefore: before,
		TokensAfter:  after,
	}); err != nil {
		log.Printf("[ERROR] record redemption: %v", err)
	}
	return ok, after
}

// State returns a copy of the counters.
func (e *Engine) State() model.AccrualState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns the counters with the derived score.
func (e *Engine) Stats() model.Stats {
	s := e.State()
	return model.Stats{AccrualState: s, SustainabilityScore: Score(s)}
}

func (e *Engine) persist(key, value string) {
	if err := e.store.Set(key, value); err != nil {
		log.Printf("[ERROR] failed to persist %s: %v", key, err)
	}
}
