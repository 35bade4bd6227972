// Package logic contains pure business logic for posture state tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Posture thresholds. Temperatures are in degrees Celsius and durations are
// in ticks (nominally one second each).
const (
	MaxReadings           = 100
	ReadingsTrimThreshold = MaxReadings + 30

	SitTimeThreshold     = 60 * 30 // about 30 minutes
	StandTimeRequirement = 60 * 3  // about 3 minutes

	SamplesToDetectSit   = 30
	SamplesToDetectStand = 30

	// SitDeltaC is the window rise that means body heat is accumulating.
	SitDeltaC = 2.0
	// StandDeltaC is the window drop that means the seat is cooling.
	StandDeltaC = -2.0

	// NotifyCadence is the number of overdue ticks between notifications.
	NotifyCadence = 10
)

// State represents the posture of the user.
type State string

const (
	StateStanding State = "STANDING"
	StateSeated   State = "SEATED"
)

// Color is the status indicator color.
type Color string

const (
	ColorGreen Color = "GREEN" // standing
	ColorBlue  Color = "BLUE"  // seated
	ColorRed   Color = "RED"   // alert
)

// RGB returns the 8-bit channel values for the color.
func (c Color) RGB() (r, g, b uint8) {
	switch c {
	case ColorGreen:
		return 0, 255, 0
	case ColorBlue:
		return 0, 0, 255
	case ColorRed:
		return 255, 0, 0
	}
	return 0, 0, 0
}

// EventType represents a posture event.
type EventType string

const (
	EventSatDown    EventType = "SAT_DOWN"
	EventShortBreak EventType = "SHORT_BREAK" // sat down again before the stand counted
	EventStoodUp    EventType = "STOOD_UP"
	EventNotify     EventType = "NOTIFY"
)

// Event represents a posture event to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	State       State
	SeatedTicks int
	Temperature float64
}

// Input represents a single temperature sample.
type Input struct {
	Celsius float64
	Time    time.Time
}

// Intent is the actuator output for a single tick.
type Intent struct {
	Indicator Color
	// ReleaseBuzzer is set when the buzzer was asserted on the previous tick
	// and must be switched off before anything else.
	ReleaseBuzzer bool
	// Buzzer asserts the buzzer for this tick only.
	Buzzer bool
}

// Diagnostics is the per-tick observation tuple. It is informational only.
type Diagnostics struct {
	SeatedTicks   int
	StandingTicks int
	NotifyTicks   int
	LookbackStand float64
	LookbackSit   float64
	Latest        float64
}

// Result is everything a single tick produces.
type Result struct {
	State       State
	Intent      Intent
	Events      []Event
	Diagnostics Diagnostics
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	SatDown    int
	ShortBreak int
	StoodUp    int
	Notify     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Ticks     uint64
	Counts    EventCounts
}
