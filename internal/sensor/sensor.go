// Package sensor provides temperature reading with hardware abstraction.
// The real implementation reads a thermistor divider through a Linux IIO ADC.
// The fake implementation allows testing without hardware.
package sensor

// Reader reads the seat temperature.
type Reader interface {
	// Read returns the temperature in degrees Celsius.
	Read() (float64, error)

	// Close releases sensor resources.
	Close() error
}

// DefaultIIOPath is the raw ADC channel of the first IIO device.
const DefaultIIOPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

// DefaultFullScale is the maximum raw value of a 12-bit ADC.
const DefaultFullScale = 4095
