//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/posture-sensor/internal/logic"
)

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(pins Pins) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetIndicator is not implemented on non-Linux platforms.
func (r *RealOutputs) SetIndicator(c logic.Color) error {
	return errors.New("gpio: not supported")
}

// SetBuzzer is not implemented on non-Linux platforms.
func (r *RealOutputs) SetBuzzer(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutputs) Close() error {
	return nil
}
