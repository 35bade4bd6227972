// Package status provides a thread-safe status tracker for the posture-sensor daemon.
// The run loop writes it once per tick; HTTP handlers and system events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/posture-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PeriodMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	Device      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Indicator     logic.Color
	Buzzing       bool
	Temperature   float64
	Diagnostics   logic.Diagnostics
	Counts        logic.EventCounts
	Ticks         uint64
	SensorFaults  int
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int // messages waiting in the offline outbox
	MQTTDropped   int // outbox messages lost to overflow since startup
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, boot id and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateStanding,
			Indicator: logic.ColorGreen,
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the outcome of one tick. Called from runLoop on every tick.
func (t *Tracker) Update(r logic.Result, counts logic.EventCounts, ticks uint64) {
	t.mu.Lock()
	t.snap.State = r.State
	t.snap.Indicator = r.Intent.Indicator
	t.snap.Buzzing = r.Intent.Buzzer
	t.snap.Temperature = r.Diagnostics.Latest
	t.snap.Diagnostics = r.Diagnostics
	t.snap.Counts = counts
	t.snap.Ticks = ticks
	t.mu.Unlock()
}

// SetTemperature records a temperature outside of a tick, e.g. the baseline.
func (t *Tracker) SetTemperature(c float64) {
	t.mu.Lock()
	t.snap.Temperature = c
	t.mu.Unlock()
}

// SensorFault counts a failed sensor read.
func (t *Tracker) SensorFault() {
	t.mu.Lock()
	t.snap.SensorFaults++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetOutbox records the offline outbox depth and overflow total.
func (t *Tracker) SetOutbox(buffered, dropped int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = buffered
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
