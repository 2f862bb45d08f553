package alarm

import (
	"fmt"
	"strings"
	"time"
)

// Category is the fixed kind of an alarm. It never changes after creation.
type Category uint8

const (
	// CategoryAcknowledgeable is a condition raised by the feed's raise predicate.
	CategoryAcknowledgeable Category = iota + 1
	// CategorySingleThreshold trips on a boolean or on a single numeric threshold.
	CategorySingleThreshold
	// CategoryExclusiveLimit reports exactly one limit band at a time.
	CategoryExclusiveLimit
	// CategoryNonExclusiveLevel reports every exceeded band independently.
	CategoryNonExclusiveLevel
)

// String returns the config and wire name of the category.
func (c Category) String() string {
	switch c {
	case CategoryAcknowledgeable:
		return "acknowledgeable"
	case CategorySingleThreshold:
		return "single_threshold"
	case CategoryExclusiveLimit:
		return "exclusive_limit"
	case CategoryNonExclusiveLevel:
		return "non_exclusive_level"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "acknowledgeable":
		return CategoryAcknowledgeable, nil
	case "single_threshold":
		return CategorySingleThreshold, nil
	case "exclusive_limit":
		return CategoryExclusiveLimit, nil
	case "non_exclusive_level":
		return CategoryNonExclusiveLevel, nil
	default:
		return 0, fmt.Errorf("%w: unknown category %q", ErrInvalidDefinition, s)
	}
}

// Capabilities are the optional features enabled for one alarm.
type Capabilities struct {
	// Acknowledge enables the acknowledged sub-state.
	Acknowledge bool
	// Confirm enables the confirmed sub-state. Requires Acknowledge.
	Confirm bool
	// Suppress enables the suppressed sub-state.
	Suppress bool
	// Shelve enables the shelving sub-state machine.
	Shelve bool
	// Latch keeps the alarm latched after it clears until reset.
	Latch bool
	// Branching records unresolved prior occurrences as branches on a new trip.
	Branching bool
	// MaxShelveTime clamps shelve durations. Zero means unbounded.
	MaxShelveTime time.Duration
}

// Limits are the configured band limits. Any subset may be set.
type Limits struct {
	// LowLow is the low-low limit.
	LowLow *float64
	// Low is the low limit.
	Low *float64
	// High is the high limit.
	High *float64
	// HighHigh is the high-high limit.
	HighHigh *float64
}

// Empty reports whether no limit is configured.
func (l Limits) Empty() bool {
	return l.LowLow == nil && l.Low == nil && l.High == nil && l.HighHigh == nil
}

// Validate checks LowLow <= Low < High <= HighHigh over the configured limits.
func (l Limits) Validate() error {
	if l.Empty() {
		return fmt.Errorf("%w: no limits configured", ErrInvalidDefinition)
	}

	ordered := []*float64{l.LowLow, l.Low, l.High, l.HighHigh}

	var (
		previous    *float64
		previousIdx int
	)

	for i, limit := range ordered {
		if limit == nil {
			continue
		}

		if previous != nil {
			crossesNormal := previousIdx <= 1 && i >= 2
			if *limit < *previous || (crossesNormal && *limit == *previous) {
				return fmt.Errorf("%w: %s limit %v is not above %s limit %v",
					ErrInvalidDefinition, limitBands[i], *limit, limitBands[previousIdx], *previous)
			}
		}

		previous, previousIdx = limit, i
	}

	return nil
}

// BandSeverities map each non-normal band to a severity.
type BandSeverities struct {
	// LowLow is the severity reported in the low-low band.
	LowLow int
	// Low is the severity reported in the low band.
	Low int
	// High is the severity reported in the high band.
	High int
	// HighHigh is the severity reported in the high-high band.
	HighHigh int
}

// Variant is the category tag with its category-specific payload.
type Variant struct {
	// Category selects the behavior from the dispatch table.
	Category Category
	// Threshold is the numeric trip point of a single-threshold alarm.
	Threshold float64
	// Severity is the fixed active severity of a single-threshold alarm.
	Severity int
	// Limits configure limit and level alarms.
	Limits Limits
	// Severities override the default per-band severities. Zero entries use the default.
	Severities BandSeverities
}

// Definition describes an alarm at registration time.
type Definition struct {
	// Source is the owning source (for example a tank or a pump).
	Source string
	// Name is the alarm name within the source.
	Name string
	// Variant is the category and its payload.
	Variant Variant
	// Capabilities are the optional features enabled.
	Capabilities Capabilities
}

// Identity is the stable correlation key "source/name".
func (d *Definition) Identity() string {
	return d.Source + "/" + d.Name
}

// Validate checks the definition for consistency.
func (d *Definition) Validate() error {
	if d.Source == "" || d.Name == "" {
		return fmt.Errorf("%w: source and name are required", ErrInvalidDefinition)
	}

	if _, ok := behaviors[d.Variant.Category]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, d.Variant.Category)
	}

	caps := d.Capabilities
	if caps.Confirm && !caps.Acknowledge {
		return fmt.Errorf("%w: confirmation requires acknowledgement", ErrInvalidDefinition)
	}

	if caps.MaxShelveTime < 0 {
		return fmt.Errorf("%w: negative max shelve time", ErrInvalidDefinition)
	}

	switch d.Variant.Category {
	case CategoryExclusiveLimit, CategoryNonExclusiveLevel:
		return d.Variant.Limits.Validate()
	case CategorySingleThreshold:
		if d.Variant.Severity < 0 || d.Variant.Severity > SeverityMax {
			return fmt.Errorf("%w: severity %d out of range", ErrInvalidDefinition, d.Variant.Severity)
		}
	case CategoryAcknowledgeable:
	}

	return nil
}
