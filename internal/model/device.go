package model

import "time"

// DeviceStatus is the latest best-effort view of the local device.
type DeviceStatus struct {
	IsCharging   bool      `json:"is_charging"`
	BatteryLevel int       `json:"battery_level"` // 0-100
	IsOnline     bool      `json:"is_online"`
	NetworkType  string    `json:"network_type"` // "wifi", "ethernet", "cellular", "4g", "unknown" ...
	IsIdle       bool      `json:"is_idle"`
	ScreenTime   int       `json:"screen_time"` // seconds since the sampler started
	LastActivity time.Time `json:"last_activity"`
}

// Capabilities reports which metrics come from a real sensor.
// A false flag means the matching fields are simulated.
type Capabilities struct {
	Power   bool `json:"power"`
	Network bool `json:"network"`
}

// NetworkUnknown is reported when the connection class cannot be introspected.
const NetworkUnknown = "unknown"

// ActivityKind identifies a genuine user input event.
type ActivityKind string

const (
	ActivityPointer ActivityKind = "pointer"
	ActivityKey     ActivityKind = "key"
	ActivityScroll  ActivityKind = "scroll"
	ActivityTouch   ActivityKind = "touch"
	ActivityClick   ActivityKind = "click"
)

// Valid reports whether k is one of the recognised input kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityPointer, ActivityKey, ActivityScroll, ActivityTouch, ActivityClick:
		return true
	}
	return false
}

// ClampBattery bounds a battery percentage to [0,100].
func ClampBattery(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
