package sensor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultPowerSupplyDir is where Linux exposes batteries and adapters.
const DefaultPowerSupplyDir = "/sys/class/power_supply"

// PowerReading is a single charging/battery observation.
type PowerReading struct {
	Charging bool
	Level    int
}

// PowerSource provides charging state and battery level.
type PowerSource interface {
	Name() string
	// Live reports whether readings come from real hardware.
	Live() bool
	Read() (PowerReading, error)
	// Subscribe registers fn for change notifications. The returned func
	// cancels the subscription; fn is not called after it returns.
	Subscribe(fn func()) (cancel func())
}

// Rand is the random source used for simulated values.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// DetectPower probes dir for a battery and returns a sysfs-backed source, or
// a synthetic source when none is present.
func DetectPower(dir string, watchInterval time.Duration, rng Rand) PowerSource {
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	battery, mains := probeSupplies(dir)
	if battery == "" {
		log.Printf("[WARN] no battery under %s, using simulated power data", dir)
		return NewSyntheticPower(rng)
	}
	p := &SysfsPower{battery: battery, mains: mains, watchInterval: watchInterval}
	if _, err := p.Read(); err != nil {
		log.Printf("[WARN] battery %s unreadable, using simulated power data: %v", battery, err)
		return NewSyntheticPower(rng)
	}
	log.Printf("[INFO] power source: %s", battery)
	return p
}

func probeSupplies(dir string) (battery string, mains []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		kind, err := readTrimmed(filepath.Join(path, "type"))
		if err != nil {
			continue
		}
		switch kind {
		case "Battery":
			if battery == "" {
				battery = path
			}
		case "Mains", "USB":
			mains = append(mains, path)
		}
	}
	return battery, mains
}

// SysfsPower reads a Linux power_supply battery.
type SysfsPower struct {
	battery       string
	mains         []string
	watchInterval time.Duration
}

func (p *SysfsPower) Name() string { return "sysfs:" + filepath.Base(p.battery) }
func (p *SysfsPower) Live() bool   { return true }

func (p *SysfsPower) Read() (PowerReading, error) {
	raw, err := readTrimmed(filepath.Join(p.battery, "capacity"))
	if err != nil {
		return PowerReading{}, fmt.Errorf("read capacity: %w", err)
	}
	level, err := strconv.Atoi(raw)
	if err != nil {
		return PowerReading{}, fmt.Errorf("parse capacity %q: %w", raw, err)
	}
	status, err := readTrimmed(filepath.Join(p.battery, "status"))
	if err != nil {
		return PowerReading{}, fmt.Errorf("read status: %w", err)
	}
	charging := status == "Charging" || status == "Full"
	for _, m := range p.mains {
		if online, err := readTrimmed(filepath.Join(m, "online")); err == nil && online == "1" {
			charging = true
		}
	}
	return PowerReading{Charging: charging, Level: level}, nil
}

// Subscribe watches the battery files and calls fn when they change.
func (p *SysfsPower) Subscribe(fn func()) func() {
	return watch(p.watchInterval, func() string {
		r, err := p.Read()
		if err != nil {
			return "error"
		}
		return fmt.Sprintf("%t/%d", r.Charging, r.Level)
	}, fn)
}

// SyntheticPower produces simulated readings for devices without a battery.
type SyntheticPower struct {
	mu  sync.Mutex
	rng Rand
}

func NewSyntheticPower(rng Rand) *SyntheticPower {
	return &SyntheticPower{rng: rng}
}

func (p *SyntheticPower) Name() string { return "synthetic" }
func (p *SyntheticPower) Live() bool   { return false }

// Read charges 30% of the time; the level never drops below 20 so the
// simulation stays eligible for accrual.
func (p *SyntheticPower) Read() (PowerReading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	charging := p.rng.Float64() > 0.7
	level := p.rng.Intn(100)
	if level < 20 {
		level = 20
	}
	return PowerReading{Charging: charging, Level: level}, nil
}

func (p *SyntheticPower) Subscribe(func()) func() { return func() {} }

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// watch calls fn whenever probe's result changes. Cancelling waits for the
// watcher goroutine to exit.
func watch(interval time.Duration, probe func() string, fn func()) func() {
	if interval <= 0 {
		return func() {}
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := probe()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				cur := probe()
				if cur != last {
					last = cur
					fn()
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}
