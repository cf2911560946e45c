package sensor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"GreenConnect/internal/model"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	PowerPollInterval     = 5 * time.Second
	SyntheticPollInterval = 10 * time.Second
	IdleCheckInterval     = 5 * time.Second
	IdleThreshold         = 30 * time.Second
	ScreenTimeInterval    = time.Second
)

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// Sampler keeps a continuously refreshed DeviceStatus. It is safe for
// concurrent use; every mutation happens under mu.
type Sampler struct {
	power   PowerSource
	network NetworkSource
	now     func() time.Time
	cron    *cron.Cron

	mu           sync.Mutex
	status       model.DeviceStatus
	lastActivity time.Time
	startedAt    time.Time
	sessionID    string
	started      bool
	stopped      bool
	cancels      []func()
}

// NewSampler creates a sampler over the given strategies.
func NewSampler(power PowerSource, network NetworkSource, opts ...Option) *Sampler {
	s := &Sampler{
		power:   power,
		network: network,
		now:     time.Now,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	now := s.now()
	s.status = model.DeviceStatus{
		NetworkType:  model.NetworkUnknown,
		LastActivity: now,
	}
	s.lastActivity = now
	return s
}

// Start begins sampling. Calling it again, or after Stop, does nothing.
func (s *Sampler) Start() error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	now := s.now()
	s.startedAt = now
	s.lastActivity = now
	s.status.LastActivity = now
	s.sessionID = uuid.NewString()
	s.mu.Unlock()

	s.PollPower()
	s.NetworkChanged()

	cancelPower := s.power.Subscribe(s.PowerChanged)
	cancelNetwork := s.network.Subscribe(s.NetworkChanged)

	// Stop may have run while subscribing; jobs are only added and the cron
	// only started while stopped is known to be false.
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancelPower()
		cancelNetwork()
		return nil
	}
	s.cancels = append(s.cancels, cancelPower, cancelNetwork)

	powerEvery := PowerPollInterval
	if !s.power.Live() {
		powerEvery = SyntheticPollInterval
	}
	jobs := []struct {
		every time.Duration
		fn    func()
	}{
		{powerEvery, s.PollPower},
		{IdleCheckInterval, s.CheckIdle},
		{ScreenTimeInterval, s.UpdateScreenTime},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", j.every), j.fn); err != nil {
			s.mu.Unlock()
			s.Stop()
			return fmt.Errorf("register sampler job: %w", err)
		}
	}
	s.cron.Start()
	s.mu.Unlock()

	log.Printf("[INFO] sampler started: power=%s network=%s session=%s", s.power.Name(), s.network.Name(), s.SessionID())
	return nil
}

// Stop releases every subscription and timer. No status update happens
// once Stop has returned.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancels := s.cancels
	s.cancels = nil
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	<-s.cron.Stop().Done()
	log.Println("[INFO] sampler stopped")
}

// CurrentStatus returns a copy of the latest status.
func (s *Sampler) CurrentStatus() model.DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Capabilities reports which metrics are sensor-backed.
func (s *Sampler) Capabilities() model.Capabilities {
	return model.Capabilities{Power: s.power.Live(), Network: s.network.Live()}
}

// SessionID identifies the current sampling session; empty before Start.
func (s *Sampler) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// PollPower reads the power source and applies the result.
func (s *Sampler) PollPower() {
	r, err := s.power.Read()
	if err != nil {
		log.Printf("[WARN] power read (%s): %v", s.power.Name(), err)
		return
	}
	s.update(func(st *model.DeviceStatus) {
		st.IsCharging = r.Charging
		st.BatteryLevel = model.ClampBattery(r.Level)
	})
}

// PowerChanged handles a change notification from the power source.
func (s *Sampler) PowerChanged() { s.PollPower() }

// NetworkChanged recomputes reachability and connection class.
func (s *Sampler) NetworkChanged() {
	online := s.network.Online()
	kind := s.network.Type()
	if kind == "" {
		kind = model.NetworkUnknown
	}
	s.update(func(st *model.DeviceStatus) {
		st.IsOnline = online
		st.NetworkType = kind
	})
}

// RecordActivity registers a genuine input event. The device leaves the
// idle state immediately.
func (s *Sampler) RecordActivity(kind model.ActivityKind) {
	if !kind.Valid() {
		log.Printf("[WARN] ignoring unknown activity kind %q", kind)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	now := s.now()
	s.lastActivity = now
	s.status.LastActivity = now
	s.status.IsIdle = false
}

// CheckIdle marks the device idle once no input has been seen for
// IdleThreshold.
func (s *Sampler) CheckIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.status.IsIdle = s.now().Sub(s.lastActivity) >= IdleThreshold
}

// UpdateScreenTime recomputes the elapsed session seconds.
func (s *Sampler) UpdateScreenTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || !s.started {
		return
	}
	elapsed := int(s.now().Sub(s.startedAt) / time.Second)
	if elapsed > s.status.ScreenTime {
		s.status.ScreenTime = elapsed
	}
}

func (s *Sampler) update(fn func(*model.DeviceStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fn(&s.status)
}
