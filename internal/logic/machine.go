package logic

import "time"

// Machine tracks posture state and decides when to notify.
// It is not safe for concurrent use; the run loop owns it.
type Machine struct {
	buf   *SampleBuffer
	state State
	esc   Escalation

	// buzzing is true when the buzzer was asserted on the previous tick.
	buzzing bool

	ticks         uint64
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewMachine creates a machine seeded with the first real sensor reading.
// The user is assumed to be standing at power-on.
// The startTime is used for calculating uptime in heartbeat events.
func NewMachine(baseline float64, startTime time.Time) *Machine {
	return &Machine{
		buf:           NewSampleBuffer(baseline),
		state:         StateStanding,
		esc:           NewEscalation(),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Tick consumes one sample and returns the actuator intent, any events and
// the diagnostics for this tick.
func (m *Machine) Tick(input Input) Result {
	intent := Intent{ReleaseBuzzer: m.buzzing}
	m.buzzing = false

	m.buf.Append(input.Celsius)
	m.ticks++

	var (
		fired EventType
		alert bool
	)

	switch m.state {
	case StateSeated:
		m.esc.Seated++
		if DetectsStand(m.buf) {
			m.state = StateStanding
			m.esc.StoodUp()
			fired = EventStoodUp
		} else if m.esc.ShouldNotify() {
			alert = true
			m.buzzing = true
			fired = EventNotify
		}
	default:
		m.esc.Standing++
		if DetectsSit(m.buf) {
			m.state = StateSeated
			if m.esc.SatDown() {
				fired = EventSatDown
			} else {
				// Back in the chair without having really stood up.
				alert = true
				fired = EventShortBreak
			}
		}
	}

	intent.Buzzer = m.buzzing
	intent.Indicator = restingColor(m.state)
	if alert {
		intent.Indicator = ColorRed
	}

	res := Result{
		State:       m.state,
		Intent:      intent,
		Diagnostics: m.diagnostics(),
	}

	if fired != "" {
		res.Events = []Event{{
			Timestamp:   input.Time,
			Type:        fired,
			State:       m.state,
			SeatedTicks: m.esc.Seated,
			Temperature: input.Celsius,
		}}
		m.count(fired)
	}

	m.buf.Compact()
	return res
}

func (m *Machine) diagnostics() Diagnostics {
	return Diagnostics{
		SeatedTicks:   m.esc.Seated,
		StandingTicks: m.esc.Standing,
		NotifyTicks:   m.esc.Notify,
		LookbackStand: m.buf.Lookback(SamplesToDetectStand),
		LookbackSit:   m.buf.Lookback(SamplesToDetectSit),
		Latest:        m.buf.Latest(),
	}
}

func (m *Machine) count(t EventType) {
	switch t {
	case EventSatDown:
		m.eventCounts.SatDown++
	case EventShortBreak:
		m.eventCounts.ShortBreak++
	case EventStoodUp:
		m.eventCounts.StoodUp++
	case EventNotify:
		m.eventCounts.Notify++
	}
}

func restingColor(s State) Color {
	if s == StateSeated {
		return ColorBlue
	}
	return ColorGreen
}

// CurrentState returns the current posture.
func (m *Machine) CurrentState() State {
	return m.state
}

// Indicator returns the resting indicator color for the current posture.
func (m *Machine) Indicator() Color {
	return restingColor(m.state)
}

// Counters returns a copy of the escalation counters.
func (m *Machine) Counters() Escalation {
	return m.esc
}

// Ticks returns the number of samples processed.
func (m *Machine) Ticks() uint64 {
	return m.ticks
}

// EventCountsSnapshot returns the event counts since startup.
func (m *Machine) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Ticks:     m.ticks,
		Counts:    m.eventCounts,
	}
}
