package alarm

import (
	"fmt"
	"strings"
)

// LimitBand is one zone of a limit alarm.
type LimitBand uint8

const (
	// BandNormal means no limit is exceeded.
	BandNormal LimitBand = iota
	// BandLowLow is at or below the low-low limit.
	BandLowLow
	// BandLow is at or below the low limit.
	BandLow
	// BandHigh is at or above the high limit.
	BandHigh
	// BandHighHigh is at or above the high-high limit.
	BandHighHigh
)

// limitBands lists the non-normal bands in reporting order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var limitBands = [...]LimitBand{BandLowLow, BandLow, BandHigh, BandHighHigh}

// String returns the band name used in config, logs and on the wire.
func (b LimitBand) String() string {
	switch b {
	case BandNormal:
		return "normal"
	case BandLowLow:
		return "low_low"
	case BandLow:
		return "low"
	case BandHigh:
		return "high"
	case BandHighHigh:
		return "high_high"
	default:
		return fmt.Sprintf("band(%d)", uint8(b))
	}
}

// ParseLimitBand is the inverse of LimitBand.String.
func ParseLimitBand(s string) (LimitBand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return BandNormal, nil
	case "low_low":
		return BandLowLow, nil
	case "low":
		return BandLow, nil
	case "high":
		return BandHigh, nil
	case "high_high":
		return BandHighHigh, nil
	default:
		return BandNormal, fmt.Errorf("unknown limit band %q", s)
	}
}

// title is the band name used in human-readable messages.
func (b LimitBand) title() string {
	switch b {
	case BandLowLow:
		return "LowLow"
	case BandLow:
		return "Low"
	case BandHigh:
		return "High"
	case BandHighHigh:
		return "HighHigh"
	default:
		return "Normal"
	}
}

// LevelSet holds independently active bands of a non-exclusive level alarm.
type LevelSet uint8

// With returns the set with band added.
func (s LevelSet) With(b LimitBand) LevelSet {
	if b == BandNormal {
		return s
	}

	return s | 1<<b
}

// Has reports whether band is active.
func (s LevelSet) Has(b LimitBand) bool {
	return b != BandNormal && s&(1<<b) != 0
}

// Empty reports whether no band is active.
func (s LevelSet) Empty() bool {
	return s == 0
}

// Bands lists active bands in reporting order.
func (s LevelSet) Bands() []LimitBand {
	bands := make([]LimitBand, 0, len(limitBands))

	for _, b := range limitBands {
		if s.Has(b) {
			bands = append(bands, b)
		}
	}

	return bands
}

// String joins active band names with "+", or "normal".
func (s LevelSet) String() string {
	if s.Empty() {
		return BandNormal.String()
	}

	names := make([]string, 0, len(limitBands))
	for _, b := range s.Bands() {
		names = append(names, b.String())
	}

	return strings.Join(names, "+")
}
