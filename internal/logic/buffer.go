package logic

import "fmt"

// SampleBuffer is the recent temperature history.
//
// It is pre-seeded to MaxReadings and only compacted back down to
// MaxReadings, so any lookback up to MaxReadings is always valid.
// Compaction is batched: the history grows to ReadingsTrimThreshold before
// the oldest samples are dropped.
type SampleBuffer struct {
	samples []float64
}

// NewSampleBuffer returns a buffer holding MaxReadings copies of baseline.
func NewSampleBuffer(baseline float64) *SampleBuffer {
	samples := make([]float64, MaxReadings, ReadingsTrimThreshold+1)
	for i := range samples {
		samples[i] = baseline
	}
	return &SampleBuffer{samples: samples}
}

// Append adds a sample to the end of the history.
func (b *SampleBuffer) Append(celsius float64) {
	b.samples = append(b.samples, celsius)
}

// Lookback returns the sample at index Len()-n, so Lookback(1) is the most
// recent sample. It panics if n is outside [1, Len()].
func (b *SampleBuffer) Lookback(n int) float64 {
	if n < 1 || n > len(b.samples) {
		panic(fmt.Sprintf("logic: lookback %d out of range (len %d)", n, len(b.samples)))
	}
	return b.samples[len(b.samples)-n]
}

// Latest returns the most recent sample.
func (b *SampleBuffer) Latest() float64 {
	return b.Lookback(1)
}

// Compact drops all but the newest MaxReadings samples once the history is
// longer than ReadingsTrimThreshold. The backing array is reused.
func (b *SampleBuffer) Compact() {
	if len(b.samples) <= ReadingsTrimThreshold {
		return
	}
	n := copy(b.samples, b.samples[len(b.samples)-MaxReadings:])
	b.samples = b.samples[:n]
}

// Len returns the number of samples held.
func (b *SampleBuffer) Len() int {
	return len(b.samples)
}
