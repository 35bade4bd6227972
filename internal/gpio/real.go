//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/posture-sensor/internal/logic"
)

// RealOutputs drives actual hardware using Linux GPIO character device.
type RealOutputs struct {
	chip   *gpiocdev.Chip
	led    *gpiocdev.Lines
	buzzer *gpiocdev.Line
}

// NewRealOutputs requests the LED and buzzer lines as outputs, all off.
func NewRealOutputs(pins Pins) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	led, err := chip.RequestLines([]int{pins.Red, pins.Green, pins.Blue}, gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pins %d,%d,%d: %w", pins.Red, pins.Green, pins.Blue, err)
	}

	buzzer, err := chip.RequestLine(pins.Buzzer, gpiocdev.AsOutput(0))
	if err != nil {
		led.Close()
		chip.Close()
		return nil, fmt.Errorf("request buzzer pin %d: %w", pins.Buzzer, err)
	}

	return &RealOutputs{
		chip:   chip,
		led:    led,
		buzzer: buzzer,
	}, nil
}

// SetIndicator shows the color on the RGB LED.
func (r *RealOutputs) SetIndicator(c logic.Color) error {
	if err := r.led.SetValues(levels(c)); err != nil {
		return fmt.Errorf("set LED %s: %w", c, err)
	}
	return nil
}

// SetBuzzer switches the haptic motor.
func (r *RealOutputs) SetBuzzer(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.buzzer.SetValue(v); err != nil {
		return fmt.Errorf("set buzzer: %w", err)
	}
	return nil
}

// Close switches the actuators off and releases GPIO resources.
// Pins are returned to input with pull-down (matching Pi boot defaults) so
// nothing is left driven across a reboot.
func (r *RealOutputs) Close() error {
	var errs []error

	if r.buzzer != nil {
		if err := r.buzzer.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off buzzer: %w", err))
		}
		if err := r.buzzer.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure buzzer pin: %w", err))
		}
		if err := r.buzzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close buzzer pin: %w", err))
		}
	}
	if r.led != nil {
		if err := r.led.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("switch off LED: %w", err))
		}
		if err := r.led.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pins: %w", err))
		}
		if err := r.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
