package alarm

import "math"

const (
	// SeverityMin is the lowest reportable severity.
	SeverityMin = 1
	// SeverityMax is the highest reportable severity.
	SeverityMax = 1000
	// SeverityInactive is reported while a threshold alarm is not active.
	SeverityInactive = 100
	// SeverityRaised is the passthrough severity of a raised boolean condition.
	SeverityRaised = 500
	// SeverityDefaultThreshold is used by single-threshold alarms without a configured severity.
	SeverityDefaultThreshold = 700
)

// DefaultBandSeverities are used for bands without a configured severity.
//
//nolint:gochecknoglobals // Read-only defaults.
var DefaultBandSeverities = BandSeverities{
	LowLow:   900,
	Low:      600,
	High:     600,
	HighHigh: 900,
}

// ClassifyExclusive selects exactly one band for value.
// HighHigh wins over High and LowLow over Low when limits coincide.
func ClassifyExclusive(value float64, limits Limits) LimitBand {
	switch {
	case limits.HighHigh != nil && value >= *limits.HighHigh:
		return BandHighHigh
	case limits.High != nil && value >= *limits.High:
		return BandHigh
	case limits.LowLow != nil && value <= *limits.LowLow:
		return BandLowLow
	case limits.Low != nil && value <= *limits.Low:
		return BandLow
	default:
		return BandNormal
	}
}

// ClassifyLevels evaluates every configured band against value independently.
func ClassifyLevels(value float64, limits Limits) LevelSet {
	var set LevelSet

	if limits.LowLow != nil && value <= *limits.LowLow {
		set = set.With(BandLowLow)
	}

	if limits.Low != nil && value <= *limits.Low {
		set = set.With(BandLow)
	}

	if limits.High != nil && value >= *limits.High {
		set = set.With(BandHigh)
	}

	if limits.HighHigh != nil && value >= *limits.HighHigh {
		set = set.With(BandHighHigh)
	}

	return set
}

// SeverityFromValue passes a sample through as a severity.
// Numbers are rounded and clamped into [SeverityMin, SeverityMax]; NaN is inactive.
func SeverityFromValue(v Value) int {
	switch v.Kind() {
	case KindNumber:
		if math.IsNaN(v.number) {
			return SeverityInactive
		}

		// Clamp before converting: out-of-range floats do not survive int conversion.
		return int(math.Max(SeverityMin, math.Min(SeverityMax, math.Round(v.number))))
	case KindBool:
		if v.flag {
			return SeverityRaised
		}

		return SeverityInactive
	default:
		return SeverityInactive
	}
}

// ClampSeverity bounds a severity to [SeverityMin, SeverityMax].
func ClampSeverity(severity int) int {
	return max(SeverityMin, min(SeverityMax, severity))
}

// For returns the severity of band, falling back to DefaultBandSeverities.
func (s BandSeverities) For(band LimitBand) int {
	pick := func(configured, fallback int) int {
		if configured > 0 {
			return ClampSeverity(configured)
		}

		return fallback
	}

	switch band {
	case BandLowLow:
		return pick(s.LowLow, DefaultBandSeverities.LowLow)
	case BandLow:
		return pick(s.Low, DefaultBandSeverities.Low)
	case BandHigh:
		return pick(s.High, DefaultBandSeverities.High)
	case BandHighHigh:
		return pick(s.HighHigh, DefaultBandSeverities.HighHigh)
	default:
		return SeverityInactive
	}
}

// Highest returns the largest severity among the bands in set.
func (s BandSeverities) Highest(set LevelSet) int {
	highest := SeverityInactive

	for _, band := range set.Bands() {
		highest = max(highest, s.For(band))
	}

	return highest
}
