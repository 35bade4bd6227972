package sensor

import (
	"errors"
	"fmt"
	"math"
)

const kelvinOffset = 273.15

// ErrRawOutOfRange is returned when the ADC reading is at or beyond either
// rail, which means an open or shorted divider.
var ErrRawOutOfRange = errors.New("sensor: raw reading out of range")

// Thermistor describes an NTC thermistor in a voltage divider.
type Thermistor struct {
	SeriesOhms   float64 // fixed resistor in the divider
	NominalOhms  float64 // thermistor resistance at NominalC
	NominalC     float64
	BCoefficient float64
	// HighSide is true when the thermistor sits between the supply and the
	// ADC input, with the series resistor to ground.
	HighSide bool
}

// DefaultThermistor is a 10k NTC (B 3950) wired high-side with a 10k
// series resistor.
var DefaultThermistor = Thermistor{
	SeriesOhms:   10000,
	NominalOhms:  10000,
	NominalC:     25,
	BCoefficient: 3950,
	HighSide:     true,
}

// Resistance converts a raw ADC value into thermistor resistance.
func (t Thermistor) Resistance(raw, fullScale int) (float64, error) {
	if fullScale <= 0 {
		return 0, fmt.Errorf("sensor: invalid full scale %d", fullScale)
	}
	if raw <= 0 || raw >= fullScale {
		return 0, fmt.Errorf("%w: %d of %d", ErrRawOutOfRange, raw, fullScale)
	}
	ratio := float64(raw) / float64(fullScale)
	if t.HighSide {
		return t.SeriesOhms/ratio - t.SeriesOhms, nil
	}
	return t.SeriesOhms / (1/ratio - 1), nil
}

// Celsius converts a raw ADC value into degrees Celsius using the
// simplified B-parameter Steinhart-Hart equation.
func (t Thermistor) Celsius(raw, fullScale int) (float64, error) {
	r, err := t.Resistance(raw, fullScale)
	if err != nil {
		return 0, err
	}
	inv := math.Log(r/t.NominalOhms)/t.BCoefficient + 1/(t.NominalC+kelvinOffset)
	return 1/inv - kelvinOffset, nil
}

// Fahrenheit converts degrees Celsius to Fahrenheit.
func Fahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}
