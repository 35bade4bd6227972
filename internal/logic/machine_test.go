package logic

import (
	"testing"
	"time"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// ticker feeds samples to a machine one second apart.
type ticker struct {
	m *Machine
	n int
}

func (tk *ticker) tick(celsius float64) Result {
	tk.n++
	return tk.m.Tick(Input{Celsius: celsius, Time: testStart.Add(time.Duration(tk.n) * time.Second)})
}

func (tk *ticker) hold(celsius float64, n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = tk.tick(celsius)
	}
	return out
}

// ramp feeds from+step, from+2*step, ... for n ticks. Steps of 0.125°C keep
// every sample exactly representable.
func (tk *ticker) ramp(from, step float64, n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = tk.tick(from + step*float64(i+1))
	}
	return out
}

// firstEvent returns the 1-based index of the first result carrying an event
// of the given type, or 0.
func firstEvent(results []Result, typ EventType) int {
	for i, r := range results {
		for _, e := range r.Events {
			if e.Type == typ {
				return i + 1
			}
		}
	}
	return 0
}

func newTicker(baseline float64) *ticker {
	return &ticker{m: NewMachine(baseline, testStart)}
}

// seatedTicker returns a machine that is already seated with the given
// seated counter.
func seatedTicker(t *testing.T, baseline float64, seated int) *ticker {
	t.Helper()
	tk := newTicker(baseline)
	tk.m.state = StateSeated
	tk.m.esc = Escalation{Seated: seated}
	return tk
}

func TestNewMachine(t *testing.T) {
	m := NewMachine(20, testStart)
	if m.CurrentState() != StateStanding {
		t.Errorf("expected initial state STANDING, got %s", m.CurrentState())
	}
	if m.Indicator() != ColorGreen {
		t.Errorf("expected initial indicator GREEN, got %s", m.Indicator())
	}
	c := m.Counters()
	if c.Standing != StandTimeRequirement+1 || c.Seated != 0 || c.Notify != 0 {
		t.Errorf("unexpected initial counters: %+v", c)
	}
	if m.buf.Len() != MaxReadings {
		t.Errorf("expected pre-seeded history of %d, got %d", MaxReadings, m.buf.Len())
	}
	if !m.startTime.Equal(testStart) || !m.lastHeartbeat.Equal(testStart) {
		t.Error("start and heartbeat times should be the start time")
	}
}

func TestFlatBaselineStaysStanding(t *testing.T) {
	tk := newTicker(20)

	for i, r := range tk.hold(20, 100) {
		if r.State != StateStanding {
			t.Fatalf("tick %d: expected STANDING, got %s", i+1, r.State)
		}
		if r.Intent.Indicator != ColorGreen {
			t.Fatalf("tick %d: expected GREEN, got %s", i+1, r.Intent.Indicator)
		}
		if r.Intent.Buzzer || r.Intent.ReleaseBuzzer {
			t.Fatalf("tick %d: buzzer should never be touched", i+1)
		}
		if len(r.Events) != 0 {
			t.Fatalf("tick %d: expected no events, got %v", i+1, r.Events)
		}
	}
	if tk.m.Counters().Standing != StandTimeRequirement+1+100 {
		t.Errorf("Standing: expected %d, got %d", StandTimeRequirement+1+100, tk.m.Counters().Standing)
	}
}

func TestSlowRampSitsOnFirstWindowRiseOverTwo(t *testing.T) {
	tk := newTicker(20)

	// 20.0 -> 23.0 over 30 ticks. The window still reaches back to the
	// 20.0 baseline, so only the endpoints matter: +2.0 at tick 20 is not
	// enough and +2.1 at tick 21 is.
	results := tk.ramp(20, 0.1, 30)

	if at := firstEvent(results, EventSatDown); at != 21 {
		t.Fatalf("expected SAT_DOWN at tick 21, got %d", at)
	}
	if results[19].State != StateStanding {
		t.Error("a rise of exactly 2.0 should not count as sitting")
	}
	if results[29].State != StateSeated {
		t.Errorf("expected SEATED at the end of the ramp, got %s", results[29].State)
	}
}

func TestSitAfterRestSeedsSeatedTimer(t *testing.T) {
	tk := newTicker(20)

	// 20.0 -> 23.0 in 24 ticks. The window rise first exceeds 2°C at
	// 0.125*17 = 2.125.
	results := tk.ramp(20, 0.125, 24)

	at := firstEvent(results, EventSatDown)
	if at != 17 {
		t.Fatalf("expected SAT_DOWN at tick 17, got %d", at)
	}
	for i := 0; i < at-1; i++ {
		if results[i].State != StateStanding {
			t.Fatalf("tick %d: sat down too early", i+1)
		}
	}

	r := results[at-1]
	if r.State != StateSeated {
		t.Errorf("expected SEATED, got %s", r.State)
	}
	if r.Intent.Indicator != ColorBlue {
		t.Errorf("expected BLUE, got %s", r.Intent.Indicator)
	}
	if r.Diagnostics.SeatedTicks != SamplesToDetectSit {
		t.Errorf("Seated: expected %d, got %d", SamplesToDetectSit, r.Diagnostics.SeatedTicks)
	}
	if r.Diagnostics.StandingTicks != 0 {
		t.Errorf("Standing: expected 0, got %d", r.Diagnostics.StandingTicks)
	}

	e := r.Events[0]
	if e.State != StateSeated || e.SeatedTicks != SamplesToDetectSit || e.Temperature != 22.125 {
		t.Errorf("unexpected event: %+v", e)
	}
	if !e.Timestamp.Equal(testStart.Add(17 * time.Second)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}

	// Counting continues from the seed.
	if got := results[len(results)-1].Diagnostics.SeatedTicks; got != SamplesToDetectSit+7 {
		t.Errorf("Seated after ramp: expected %d, got %d", SamplesToDetectSit+7, got)
	}
}

func TestOverdueNotificationCadence(t *testing.T) {
	tk := seatedTicker(t, 20, SitTimeThreshold+1)

	results := tk.hold(20, 20)

	for i, r := range results {
		rel := i + 1
		fire := rel == 1 || rel == 11
		if r.Intent.Buzzer != fire {
			t.Errorf("tick %d: buzzer=%v, want %v", rel, r.Intent.Buzzer, fire)
		}
		wantColor := ColorBlue
		if fire {
			wantColor = ColorRed
		}
		if r.Intent.Indicator != wantColor {
			t.Errorf("tick %d: indicator=%s, want %s", rel, r.Intent.Indicator, wantColor)
		}
		release := rel == 2 || rel == 12
		if r.Intent.ReleaseBuzzer != release {
			t.Errorf("tick %d: release=%v, want %v", rel, r.Intent.ReleaseBuzzer, release)
		}
		if fire && (len(r.Events) != 1 || r.Events[0].Type != EventNotify) {
			t.Errorf("tick %d: expected NOTIFY event, got %v", rel, r.Events)
		}
		if r.State != StateSeated {
			t.Errorf("tick %d: expected SEATED, got %s", rel, r.State)
		}
	}
}

func TestNotificationStartsWhenThresholdCrossed(t *testing.T) {
	tk := seatedTicker(t, 20, SitTimeThreshold-5)

	var fired []int
	for i, r := range tk.hold(20, 30) {
		if r.Intent.Buzzer {
			fired = append(fired, i+1)
		}
		if i+1 <= 5 && r.Diagnostics.NotifyTicks != 0 {
			t.Errorf("tick %d: cadence advanced before overdue", i+1)
		}
	}

	// Seated reaches 1801 on relative tick 6.
	want := []int{6, 16, 26}
	if len(fired) != len(want) {
		t.Fatalf("expected fires at %v, got %v", want, fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fire %d: expected tick %d, got %d", i, want[i], fired[i])
		}
	}
}

func TestShortBreakKeepsSeatedTimer(t *testing.T) {
	tk := newTicker(20)
	tk.m.esc = Escalation{Seated: 900, Standing: 50}

	results := tk.ramp(20, 0.125, 24)

	at := firstEvent(results, EventShortBreak)
	if at != 17 {
		t.Fatalf("expected SHORT_BREAK at tick 17, got %d", at)
	}
	if firstEvent(results, EventSatDown) != 0 {
		t.Error("a short break must not be reported as SAT_DOWN")
	}

	r := results[at-1]
	if r.State != StateSeated {
		t.Errorf("expected SEATED, got %s", r.State)
	}
	if r.Intent.Indicator != ColorRed {
		t.Errorf("expected RED, got %s", r.Intent.Indicator)
	}
	if r.Diagnostics.SeatedTicks != 900 {
		t.Errorf("Seated must be unchanged: expected 900, got %d", r.Diagnostics.SeatedTicks)
	}
	if r.Diagnostics.StandingTicks != 0 {
		t.Errorf("Standing: expected 0, got %d", r.Diagnostics.StandingTicks)
	}
	if r.Intent.Buzzer {
		t.Error("a short break alone does not buzz")
	}

	// Resting color afterwards, counting from the carried value.
	next := results[at]
	if next.Intent.Indicator != ColorBlue {
		t.Errorf("tick after short break: expected BLUE, got %s", next.Intent.Indicator)
	}
	if next.Diagnostics.SeatedTicks != 901 {
		t.Errorf("Seated: expected 901, got %d", next.Diagnostics.SeatedTicks)
	}
}

func TestFullCycleWithShortBreak(t *testing.T) {
	tk := newTicker(20)

	// Sit down properly.
	if at := firstEvent(tk.ramp(20, 0.125, 24), EventSatDown); at != 17 {
		t.Fatalf("expected SAT_DOWN at 17, got %d", at)
	}
	for _, r := range tk.hold(23, 100) {
		if r.State != StateSeated {
			t.Fatal("warm seat should stay seated")
		}
	}

	// Stand up: the seat cools from 23.0.
	drop := tk.ramp(23, -0.125, 24)
	at := firstEvent(drop, EventStoodUp)
	if at != 17 {
		t.Fatalf("expected STOOD_UP at 17, got %d", at)
	}
	stood := drop[at-1]
	if stood.Intent.Indicator != ColorGreen {
		t.Errorf("expected GREEN, got %s", stood.Intent.Indicator)
	}
	if stood.Diagnostics.StandingTicks != SamplesToDetectStand {
		t.Errorf("Standing: expected %d, got %d", SamplesToDetectStand, stood.Diagnostics.StandingTicks)
	}
	seatedBeforeStand := stood.Diagnostics.SeatedTicks
	if seatedBeforeStand != SamplesToDetectSit+7+100+17 {
		t.Fatalf("Seated: expected %d, got %d", SamplesToDetectSit+7+100+17, seatedBeforeStand)
	}

	// Sit back down well before the stand counts.
	tk.hold(20, 20)
	results := tk.ramp(20, 0.125, 24)
	at = firstEvent(results, EventShortBreak)
	if at == 0 {
		t.Fatal("expected SHORT_BREAK")
	}
	if got := results[at-1].Diagnostics.SeatedTicks; got != seatedBeforeStand {
		t.Errorf("Seated: expected carried value %d, got %d", seatedBeforeStand, got)
	}

	counts := tk.m.EventCountsSnapshot()
	if counts.SatDown != 1 || counts.StoodUp != 1 || counts.ShortBreak != 1 || counts.Notify != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestSeatedHysteresisUsesWindowEndpoints(t *testing.T) {
	tk := seatedTicker(t, 15, 100)

	// Window start is low, so a single low sample 29 ticks later is no drop.
	tk.tick(15)
	tk.hold(20, SamplesToDetectStand-2)
	r := tk.tick(15)
	if r.Diagnostics.LookbackStand != 15 {
		t.Fatalf("window start: expected 15, got %v", r.Diagnostics.LookbackStand)
	}
	if r.State != StateSeated {
		t.Fatal("a drop with a low window start must not stand")
	}

	// One tick later the window starts at 20 and the same reading is a drop.
	r = tk.tick(15)
	if r.State != StateStanding {
		t.Fatal("expected STANDING once the window spans a 5°C drop")
	}
}

func TestSeatedIgnoresSmallDrop(t *testing.T) {
	tk := seatedTicker(t, 23, 100)

	for i, r := range tk.hold(21, 60) {
		if r.State != StateSeated {
			t.Fatalf("tick %d: a 2°C drop is not a stand", i+1)
		}
	}
}

func TestBuzzerPulsesOneTick(t *testing.T) {
	tk := seatedTicker(t, 20, SitTimeThreshold+1)

	r1 := tk.tick(20)
	if !r1.Intent.Buzzer || r1.Intent.ReleaseBuzzer {
		t.Fatalf("tick 1: expected assert only, got %+v", r1.Intent)
	}
	r2 := tk.tick(20)
	if r2.Intent.Buzzer || !r2.Intent.ReleaseBuzzer {
		t.Fatalf("tick 2: expected release only, got %+v", r2.Intent)
	}
	r3 := tk.tick(20)
	if r3.Intent.Buzzer || r3.Intent.ReleaseBuzzer {
		t.Fatalf("tick 3: expected no buzzer activity, got %+v", r3.Intent)
	}
}

func TestStandingUpStopsNotifications(t *testing.T) {
	tk := seatedTicker(t, 23, SitTimeThreshold+1)

	// Notification on the first overdue tick, then cool down.
	if !tk.tick(23).Intent.Buzzer {
		t.Fatal("expected notification")
	}
	results := tk.ramp(23, -0.125, 24)
	at := firstEvent(results, EventStoodUp)
	if at == 0 {
		t.Fatal("expected STOOD_UP")
	}
	for _, r := range results[at-1:] {
		if r.Intent.Buzzer {
			t.Fatal("no notifications while standing")
		}
	}
}

func TestDiagnostics(t *testing.T) {
	tk := newTicker(20)
	tk.hold(20, 10)
	r := tk.tick(20.5)

	d := r.Diagnostics
	if d.Latest != 20.5 {
		t.Errorf("Latest: expected 20.5, got %v", d.Latest)
	}
	if d.LookbackSit != 20 || d.LookbackStand != 20 {
		t.Errorf("lookbacks: expected 20, got %v / %v", d.LookbackSit, d.LookbackStand)
	}
	if d.StandingTicks != StandTimeRequirement+1+11 {
		t.Errorf("Standing: expected %d, got %d", StandTimeRequirement+1+11, d.StandingTicks)
	}
	if tk.m.Ticks() != 11 {
		t.Errorf("Ticks: expected 11, got %d", tk.m.Ticks())
	}
}

func TestLongRunBufferInvariant(t *testing.T) {
	tk := newTicker(20)
	for i := 0; i < 10000; i++ {
		// Sawtooth between 18 and 26 with a period of 80 ticks.
		tk.tick(18 + 0.1*float64(i%80))
		if n := tk.m.buf.Len(); n < MaxReadings || n > ReadingsTrimThreshold {
			t.Fatalf("tick %d: history length %d out of range", i, n)
		}
	}
}

func TestColorRGB(t *testing.T) {
	tests := []struct {
		c       Color
		r, g, b uint8
	}{
		{ColorGreen, 0, 255, 0},
		{ColorBlue, 0, 0, 255},
		{ColorRed, 255, 0, 0},
		{Color(""), 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := tt.c.RGB()
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("%q: got (%d,%d,%d), want (%d,%d,%d)", tt.c, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

// Heartbeat tests

func TestEventCountsIncrementOnTransition(t *testing.T) {
	tk := newTicker(20)
	tk.ramp(20, 0.125, 24)
	tk.hold(23, 40)
	tk.ramp(23, -0.125, 24)

	counts := tk.m.EventCountsSnapshot()
	if counts.SatDown != 1 {
		t.Errorf("SatDown: expected 1, got %d", counts.SatDown)
	}
	if counts.StoodUp != 1 {
		t.Errorf("StoodUp: expected 1, got %d", counts.StoodUp)
	}
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	m := NewMachine(20, testStart)

	if hb := m.CheckHeartbeat(testStart.Add(15*time.Minute), 0); hb != nil {
		t.Error("should not return heartbeat when interval is 0 (disabled)")
	}
	if hb := m.CheckHeartbeat(testStart.Add(15*time.Minute), -1*time.Minute); hb != nil {
		t.Error("should not return heartbeat when interval is negative")
	}
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	m := NewMachine(20, testStart)

	if hb := m.CheckHeartbeat(testStart.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat before interval")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	tk := newTicker(20)
	tk.hold(20, 5)

	checkTime := testStart.Add(15 * time.Minute)
	hb := tk.m.CheckHeartbeat(checkTime, 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat at interval")
	}
	if !hb.Timestamp.Equal(checkTime) {
		t.Errorf("expected timestamp %v, got %v", checkTime, hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if hb.Ticks != 5 {
		t.Errorf("expected 5 ticks, got %d", hb.Ticks)
	}
}

func TestCheckHeartbeatUpdatesLastTime(t *testing.T) {
	m := NewMachine(20, testStart)

	t1 := testStart.Add(15 * time.Minute)
	if m.CheckHeartbeat(t1, 15*time.Minute) == nil {
		t.Fatal("should return first heartbeat")
	}

	if m.CheckHeartbeat(t1.Add(10*time.Minute), 15*time.Minute) != nil {
		t.Error("should not return heartbeat before the next interval")
	}

	t2 := t1.Add(15 * time.Minute)
	hb := m.CheckHeartbeat(t2, 15*time.Minute)
	if hb == nil {
		t.Fatal("should return second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("expected uptime 30m, got %v", hb.Uptime)
	}
}

func TestHeartbeatContainsEventCounts(t *testing.T) {
	tk := newTicker(20)
	tk.ramp(20, 0.125, 24)

	hb := tk.m.CheckHeartbeat(testStart.Add(time.Hour), 15*time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat")
	}
	if hb.Counts.SatDown != 1 {
		t.Errorf("expected SatDown=1 in heartbeat, got %d", hb.Counts.SatDown)
	}
}
