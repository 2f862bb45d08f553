package alarm

import (
	"fmt"
	"strings"
)

// Input is one sample of the trigger feed.
type Input struct {
	// Value is the current trigger value.
	Value Value
	// Raise is the feed's raise predicate.
	Raise bool
	// Suppress is the feed's suppress predicate.
	Suppress bool
	// Unsuppress is the feed's unsuppress predicate.
	Unsuppress bool
}

// Classification is the category-specific reading of one Input.
type Classification struct {
	// Active reports whether the condition holds.
	Active bool
	// Severity is the severity of the reading.
	Severity int
	// Band is the exclusive limit band.
	Band LimitBand
	// Levels are the active level bands.
	Levels LevelSet
	// Summary describes the reading for event messages.
	Summary string
}

// behavior is the per-category entry of the dispatch table.
type behavior struct {
	// classify maps an input to a classification.
	classify func(variant *Variant, in Input) (Classification, error)
	// trips reports whether moving from prev to next starts a new occurrence.
	trips func(prev, next Classification) bool
	// retain computes the derived retain flag of the main condition.
	retain func(c *Condition, caps Capabilities) bool
	// settle normalizes category sub-state after each mutation.
	settle func(c *Condition)
}

// behaviors is the closed dispatch table keyed by category.
//
//nolint:gochecknoglobals // Read-only dispatch table.
var behaviors = map[Category]behavior{
	CategoryAcknowledgeable: {
		classify: classifyRaised,
		trips:    activeEdge,
		retain:   defaultRetain,
		settle:   func(*Condition) {},
	},
	CategorySingleThreshold: {
		classify: classifyThreshold,
		trips:    activeEdge,
		retain:   defaultRetain,
		settle:   func(*Condition) {},
	},
	CategoryExclusiveLimit: {
		classify: classifyExclusive,
		trips:    activeEdge,
		retain:   defaultRetain,
		settle:   settleExclusive,
	},
	CategoryNonExclusiveLevel: {
		classify: classifyLevel,
		trips:    levelEdge,
		retain:   defaultRetain,
		settle:   func(*Condition) {},
	},
}

// defaultRetain keeps a condition while active, latched, or awaiting an operator.
func defaultRetain(c *Condition, caps Capabilities) bool {
	return c.Active || c.Latched || (c.occurred && c.awaitingOperator(caps))
}

// settleExclusive resets the band to normal whenever the alarm is inactive.
func settleExclusive(c *Condition) {
	if !c.Active {
		c.Band = BandNormal
	}
}

// activeEdge trips on inactive to active.
func activeEdge(prev, next Classification) bool {
	return !prev.Active && next.Active
}

// levelEdge trips whenever a band that was clear becomes active.
func levelEdge(prev, next Classification) bool {
	return next.Levels&^prev.Levels != 0
}

func classifyRaised(_ *Variant, in Input) (Classification, error) {
	c := Classification{
		Active:   in.Raise,
		Severity: SeverityFromValue(in.Value),
		Summary:  "Condition cleared",
	}

	if in.Raise {
		c.Summary = "Condition raised"
		if in.Value.Kind() == KindBool {
			c.Severity = SeverityRaised
		}
	}

	return c, nil
}

func classifyThreshold(variant *Variant, in Input) (Classification, error) {
	severity := variant.Severity
	if severity == 0 {
		severity = SeverityDefaultThreshold
	}

	var active bool

	switch in.Value.Kind() {
	case KindBool:
		active = in.Value.flag
	case KindNumber:
		active = in.Value.number >= variant.Threshold
	default:
		return Classification{}, fmt.Errorf("%w: no trigger value", ErrTypeMismatch)
	}

	if !active {
		return Classification{
			Severity: SeverityInactive,
			Summary:  fmt.Sprintf("Alarm cleared (value %s)", in.Value),
		}, nil
	}

	return Classification{
		Active:   true,
		Severity: ClampSeverity(severity),
		Summary:  fmt.Sprintf("Alarm tripped (value %s)", in.Value),
	}, nil
}

func classifyExclusive(variant *Variant, in Input) (Classification, error) {
	value, err := in.Value.Float()
	if err != nil {
		return Classification{}, err
	}

	band := ClassifyExclusive(value, variant.Limits)
	if band == BandNormal {
		return Classification{
			Severity: SeverityInactive,
			Summary:  fmt.Sprintf("Value %s back within limits", in.Value),
		}, nil
	}

	return Classification{
		Active:   true,
		Severity: variant.Severities.For(band),
		Band:     band,
		Summary:  fmt.Sprintf("%s limit exceeded (value %s)", band.title(), in.Value),
	}, nil
}

func classifyLevel(variant *Variant, in Input) (Classification, error) {
	value, err := in.Value.Float()
	if err != nil {
		return Classification{}, err
	}

	levels := ClassifyLevels(value, variant.Limits)
	if levels.Empty() {
		return Classification{
			Severity: SeverityInactive,
			Summary:  fmt.Sprintf("Value %s back within levels", in.Value),
		}, nil
	}

	titles := make([]string, 0, len(limitBands))
	for _, band := range levels.Bands() {
		titles = append(titles, band.title())
	}

	return Classification{
		Active:   true,
		Severity: variant.Severities.Highest(levels),
		Levels:   levels,
		Summary:  fmt.Sprintf("%s level exceeded (value %s)", strings.Join(titles, ", "), in.Value),
	}, nil
}

// checkShape validates that a manually written value fits the category.
func checkShape(category Category, v Value) error {
	if !v.Finite() {
		return fmt.Errorf("%w: %s is not a finite number", ErrTypeMismatch, v)
	}

	switch category {
	case CategoryExclusiveLimit, CategoryNonExclusiveLevel:
		_, err := v.Float()

		return err
	case CategorySingleThreshold:
		if v.IsZero() {
			return fmt.Errorf("%w: no trigger value", ErrTypeMismatch)
		}
	case CategoryAcknowledgeable:
	}

	return nil
}
