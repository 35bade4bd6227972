package gpio

import "github.com/sweeney/posture-sensor/internal/logic"

// Call records a single actuator call.
type Call struct {
	Indicator logic.Color // set for indicator calls
	Buzzer    *bool       // set for buzzer calls
}

// FakeOutputs is a test double that records actuator calls in order.
type FakeOutputs struct {
	// Calls contains every actuator call, in order.
	Calls []Call

	// Indicator is the last color shown.
	Indicator logic.Color

	// Buzzing is the current buzzer state.
	Buzzing bool

	// Closed tracks if Close was called
	Closed bool

	// IndicatorError, if set, will be returned by SetIndicator()
	IndicatorError error

	// BuzzerError, if set, will be returned by SetBuzzer()
	BuzzerError error
}

// NewFakeOutputs creates a FakeOutputs.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{}
}

// SetIndicator records the color.
func (f *FakeOutputs) SetIndicator(c logic.Color) error {
	if f.IndicatorError != nil {
		return f.IndicatorError
	}
	f.Indicator = c
	f.Calls = append(f.Calls, Call{Indicator: c})
	return nil
}

// SetBuzzer records the buzzer state.
func (f *FakeOutputs) SetBuzzer(on bool) error {
	if f.BuzzerError != nil {
		return f.BuzzerError
	}
	f.Buzzing = on
	f.Calls = append(f.Calls, Call{Buzzer: &on})
	return nil
}

// Close switches everything off and marks the outputs as closed.
func (f *FakeOutputs) Close() error {
	f.Indicator = ""
	f.Buzzing = false
	f.Closed = true
	return nil
}

// BuzzerCalls returns the recorded buzzer states, in order.
func (f *FakeOutputs) BuzzerCalls() []bool {
	var out []bool
	for _, c := range f.Calls {
		if c.Buzzer != nil {
			out = append(out, *c.Buzzer)
		}
	}
	return out
}

// IndicatorCalls returns the recorded colors, in order.
func (f *FakeOutputs) IndicatorCalls() []logic.Color {
	var out []logic.Color
	for _, c := range f.Calls {
		if c.Buzzer == nil {
			out = append(out, c.Indicator)
		}
	}
	return out
}

// Reset clears recorded calls.
func (f *FakeOutputs) Reset() {
	f.Calls = nil
	f.Indicator = ""
	f.Buzzing = false
	f.Closed = false
	f.IndicatorError = nil
	f.BuzzerError = nil
}
