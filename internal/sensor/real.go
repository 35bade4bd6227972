//go:build linux

package sensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RealReader reads a thermistor divider from a Linux IIO ADC channel.
type RealReader struct {
	f          *os.File
	path       string
	fullScale  int
	thermistor Thermistor
}

// NewRealReader opens the sysfs raw value file of an IIO ADC channel.
func NewRealReader(path string, fullScale int, th Thermistor) (*RealReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}
	return &RealReader{
		f:          f,
		path:       path,
		fullScale:  fullScale,
		thermistor: th,
	}, nil
}

// Read samples the ADC and converts the value to degrees Celsius.
func (r *RealReader) Read() (float64, error) {
	// sysfs attributes must be re-read from offset 0 to get a fresh sample.
	buf := make([]byte, 32)
	n, err := r.f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0, fmt.Errorf("read %s: %w", r.path, err)
	}

	raw, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", r.path, err)
	}

	c, err := r.thermistor.Celsius(raw, r.fullScale)
	if err != nil {
		return 0, fmt.Errorf("convert %s: %w", r.path, err)
	}
	return c, nil
}

// Close releases the channel file.
func (r *RealReader) Close() error {
	if r.f == nil {
		return nil
	}
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close adc channel: %w", err)
	}
	return nil
}
