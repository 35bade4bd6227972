package logic

// DetectsStand reports whether the temperature dropped by more than 2°C
// across the stand window. Only the window endpoints are compared.
func DetectsStand(b *SampleBuffer) bool {
	return b.Latest()-b.Lookback(SamplesToDetectStand) < StandDeltaC
}

// DetectsSit reports whether the temperature rose by more than 2°C across
// the sit window.
func DetectsSit(b *SampleBuffer) bool {
	return b.Latest()-b.Lookback(SamplesToDetectSit) > SitDeltaC
}
