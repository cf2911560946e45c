package accrual

import (
	"errors"
	"sync"
	"testing"

	"GreenConnect/internal/model"
	"GreenConnect/internal/recorder"
	"GreenConnect/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatus struct {
	mu     sync.Mutex
	status model.DeviceStatus
}

func (s *stubStatus) CurrentStatus() model.DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *stubStatus) SessionID() string { return "test-session" }

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// countingStore counts writes on top of a MemoryStore.
type countingStore struct {
	*store.MemoryStore
	mu     sync.Mutex
	writes int
	fail   bool
}

func (c *countingStore) Set(key, value string) error {
	c.mu.Lock()
	c.writes++
	fail := c.fail
	c.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return c.MemoryStore.Set(key, value)
}

type captureRecorder struct {
	recorder.NoopRecorder
	mu          sync.Mutex
	ticks       []recorder.TickEvent
	redemptions []recorder.RedemptionEvent
}

func (c *captureRecorder) RecordTick(evt *recorder.TickEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, *evt)
	return nil
}

func (c *captureRecorder) RecordRedemption(evt *recorder.RedemptionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redemptions = append(c.redemptions, *evt)
	return nil
}

var eligibleStatus = model.DeviceStatus{IsCharging: true, IsIdle: true, IsOnline: true, BatteryLevel: 85}

func newTestEngine(status model.DeviceStatus, rng float64) (*Engine, *countingStore, *stubStatus, *captureRecorder) {
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	provider := &stubStatus{status: status}
	rec := &captureRecorder{}
	return NewEngine(st, provider, fixedRand(rng), rec), st, provider, rec
}

func TestNewEngine_SeedsWhenStoreEmpty(t *testing.T) {
	e, _, _, _ := newTestEngine(model.DeviceStatus{}, 0)
	assert.Equal(t, model.AccrualState{Tokens: 2450, ContributionMinutes: 1840, CO2SavedKg: 23.7, TasksCompleted: 156}, e.State())
	assert.Equal(t, 65, e.Stats().SustainabilityScore)
}

func TestLoadState_InvalidValuesFallBack(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(store.KeyTokens, "12abc"))
	require.NoError(t, s.Set(store.KeyMinutes, "-4"))
	require.NoError(t, s.Set(store.KeyCO2, "NaN"))
	require.NoError(t, s.Set(store.KeyTasks, " 200 "))

	got := LoadState(s)
	assert.Equal(t, 2450, got.Tokens)
	assert.Equal(t, 1840, got.ContributionMinutes)
	assert.Equal(t, 23.7, got.CO2SavedKg)
	assert.Equal(t, 200, got.TasksCompleted)

	require.NoError(t, s.Set(store.KeyCO2, "30.25"))
	assert.Equal(t, 30.3, LoadState(s).CO2SavedKg)
}

func TestTick_EligibleExample(t *testing.T) {
	e, st, _, rec := newTestEngine(eligibleStatus, 0.5)

	res := e.Tick()
	assert.Equal(t, TickResult{Eligible: true, TokensAdded: 1}, res)
	assert.Equal(t, model.AccrualState{Tokens: 2451, ContributionMinutes: 1841, CO2SavedKg: 23.8, TasksCompleted: 156}, e.State())

	for key, want := range map[string]string{
		store.KeyTokens:  "2451",
		store.KeyMinutes: "1841",
		store.KeyCO2:     "23.8",
	} {
		got, ok := st.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := st.Get(store.KeyTasks)
	assert.False(t, ok, "tasks untouched when no task completes")

	require.Len(t, rec.ticks, 1)
	assert.True(t, rec.ticks[0].Eligible)
	assert.Equal(t, "test-session", rec.ticks[0].SessionID)
	assert.Equal(t, 2451, rec.ticks[0].State.Tokens)
}

func TestTick_TaskCompletion(t *testing.T) {
	tests := []struct {
		rng  float64
		want int
	}{
		{0.95, 156},
		{0.951, 157},
		{0.999, 157},
		{0.0, 156},
	}
	for _, tt := range tests {
		e, st, _, _ := newTestEngine(eligibleStatus, tt.rng)
		res := e.Tick()
		assert.Equal(t, tt.want, e.State().TasksCompleted, "rng=%v", tt.rng)
		assert.Equal(t, tt.want == 157, res.TaskCompleted)
		if tt.want == 157 {
			v, _ := st.Get(store.KeyTasks)
			assert.Equal(t, "157", v)
		}
	}
}

func TestTick_IneligibleIsNoop(t *testing.T) {
	statuses := []model.DeviceStatus{
		{IsCharging: false, IsIdle: true, IsOnline: true, BatteryLevel: 85},
		{IsCharging: true, IsIdle: false, IsOnline: true, BatteryLevel: 85},
		{IsCharging: true, IsIdle: true, IsOnline: true, BatteryLevel: 20},
		{},
	}
	for _, st := range statuses {
		e, s, _, rec := newTestEngine(st, 0.99)
		before := e.State()
		res := e.Tick()
		assert.False(t, res.Eligible)
		assert.Equal(t, before, e.State())
		assert.Equal(t, 0, s.writes, "ineligible tick must not write")
		require.Len(t, rec.ticks, 1)
		assert.False(t, rec.ticks[0].Eligible)
	}
}

func TestTick_CountersNonDecreasing(t *testing.T) {
	e, _, provider, _ := newTestEngine(eligibleStatus, 0.97)
	prev := e.State()
	for i := 0; i < 200; i++ {
		provider.mu.Lock()
		provider.status.IsIdle = i%3 != 0
		provider.mu.Unlock()

		e.Tick()
		cur := e.State()
		assert.GreaterOrEqual(t, cur.Tokens, prev.Tokens)
		assert.GreaterOrEqual(t, cur.ContributionMinutes, prev.ContributionMinutes)
		assert.GreaterOrEqual(t, cur.CO2SavedKg, prev.CO2SavedKg)
		assert.GreaterOrEqual(t, cur.TasksCompleted, prev.TasksCompleted)
		assert.Equal(t, cur.CO2SavedKg, RoundTenth(cur.CO2SavedKg), "co2 stays at one decimal")
		prev = cur
	}
}

func TestTick_PersistFailureKeepsRunning(t *testing.T) {
	e, st, _, _ := newTestEngine(eligibleStatus, 0)
	st.fail = true
	e.Tick()
	assert.Equal(t, 2451, e.State().Tokens)
}

func TestRedeem(t *testing.T) {
	e, st, _, rec := newTestEngine(eligibleStatus, 0)
	e.Tick()

	assert.False(t, e.Redeem(3000))
	assert.Equal(t, 2451, e.State().Tokens)

	assert.False(t, e.Redeem(-1))
	assert.Equal(t, 2451, e.State().Tokens)

	assert.True(t, e.Redeem(0))
	assert.Equal(t, 2451, e.State().Tokens)

	assert.True(t, e.Redeem(451))
	assert.Equal(t, 2000, e.State().Tokens)
	v, _ := st.Get(store.KeyTokens)
	assert.Equal(t, "2000", v)

	assert.True(t, e.Redeem(2000))
	assert.Equal(t, 0, e.State().Tokens)

	require.Len(t, rec.redemptions, 5)
	assert.False(t, rec.redemptions[0].Success)
	assert.Equal(t, 2451, rec.redemptions[0].TokensAfter)
	assert.Equal(t, 2000, rec.redemptions[3].TokensAfter)
}

func TestRedeemBalance_ReportsBalanceOfThisRedemption(t *testing.T) {
	e, _, _, _ := newTestEngine(eligibleStatus, 0)

	ok, balance := e.RedeemBalance(450)
	assert.True(t, ok)
	assert.Equal(t, 2000, balance)

	e.Tick()
	ok, balance = e.RedeemBalance(5000)
	assert.False(t, ok)
	assert.Equal(t, 2001, balance)

	assert.Equal(t, 2001, e.State().Tokens)
}

func TestRedeem_SurvivesReload(t *testing.T) {
	s := store.NewMemoryStore()
	e := NewEngine(s, &stubStatus{status: eligibleStatus}, fixedRand(0), nil)
	require.True(t, e.Redeem(450))

	reloaded := NewEngine(s, &stubStatus{}, fixedRand(0), nil)
	assert.Equal(t, 2000, reloaded.State().Tokens)
}

func TestEngine_ConcurrentTickAndRedeem(t *testing.T) {
	e, _, _, _ := newTestEngine(eligibleStatus, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Tick()
		}()
		go func() {
			defer wg.Done()
			e.Redeem(1)
		}()
	}
	wg.Wait()

	st := e.State()
	assert.Equal(t, 2450, st.Tokens)
	assert.Equal(t, 1940, st.ContributionMinutes)
}

func TestEngine_StopHaltsTicks(t *testing.T) {
	e, _, _, _ := newTestEngine(eligibleStatus, 0)
	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	e.Stop()
	e.Stop()

	before := e.State()
	res := e.Tick()
	assert.Equal(t, TickResult{}, res)
	assert.Equal(t, before, e.State())
	require.NoError(t, e.Start())
}
