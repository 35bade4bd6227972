// Package gpio drives the status LED and the haptic buzzer.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/posture-sensor/internal/logic"

// Indicator shows the posture status color.
type Indicator interface {
	SetIndicator(c logic.Color) error
}

// Buzzer drives the haptic motor.
type Buzzer interface {
	SetBuzzer(on bool) error
}

// Outputs is the full actuator set of the node.
type Outputs interface {
	Indicator
	Buzzer

	// Close switches everything off and releases GPIO resources.
	Close() error
}

// Pins holds BCM pin numbers for the actuators.
type Pins struct {
	Red    int
	Green  int
	Blue   int
	Buzzer int
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinRed    = 17
	DefaultPinGreen  = 27
	DefaultPinBlue   = 22
	DefaultPinBuzzer = 23
)

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Red:    DefaultPinRed,
		Green:  DefaultPinGreen,
		Blue:   DefaultPinBlue,
		Buzzer: DefaultPinBuzzer,
	}
}

// levels maps an indicator color to line values for the red, green and
// blue LED lines. Any non-zero channel switches its line on.
func levels(c logic.Color) []int {
	r, g, b := c.RGB()
	return []int{on(r), on(g), on(b)}
}

func on(v uint8) int {
	if v > 0 {
		return 1
	}
	return 0
}
