package logic

// Escalation holds the time-in-state counters, in ticks.
type Escalation struct {
	// Seated counts ticks spent seated. It carries over a short break.
	Seated int
	// Standing counts ticks spent standing since the user last sat down.
	Standing int
	// Notify is the notification cadence phase, modulo NotifyCadence.
	Notify int
}

// NewEscalation returns counters for a device switched on while the user
// is standing. The standing counter starts past the requirement so the
// first sit counts as a real rest.
func NewEscalation() Escalation {
	return Escalation{Standing: StandTimeRequirement + 1}
}

// Overdue reports whether the user has been seated too long.
func (e *Escalation) Overdue() bool {
	return e.Seated > SitTimeThreshold
}

// RestedEnough reports whether the current stand lasted long enough to count.
func (e *Escalation) RestedEnough() bool {
	return e.Standing > StandTimeRequirement
}

// ShouldNotify advances the cadence while overdue and reports whether a
// notification fires on this tick. The cadence is left untouched when not
// overdue so it always resumes at the same phase.
func (e *Escalation) ShouldNotify() bool {
	if !e.Overdue() {
		return false
	}
	e.Notify = (e.Notify + 1) % NotifyCadence
	return e.Notify == 1
}

// SatDown records a sit transition. Returns false when the stand was too
// short; in that case Seated keeps its value from before the stand.
func (e *Escalation) SatDown() bool {
	rested := e.RestedEnough()
	if rested {
		// Sitting started about one detection window ago.
		e.Seated = SamplesToDetectSit
	}
	e.Standing = 0
	return rested
}

// StoodUp records a stand transition.
func (e *Escalation) StoodUp() {
	e.Standing = SamplesToDetectStand
}
