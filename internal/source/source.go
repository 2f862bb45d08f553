package source

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/alarm-conditions/internal/config"
	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

const (
	// KindStatic holds a value until it is written.
	KindStatic = "static"
	// KindRamp moves linearly between min and max and back once per period.
	KindRamp = "ramp"
	// KindSquare holds min for the first half of each period and max for the second.
	KindSquare = "square"
)

// ErrInvalidFeed is returned for feed settings that cannot produce values.
var ErrInvalidFeed = errors.New("invalid trigger feed")

// New builds the feed described by cfg for an alarm of the given category.
//
//nolint:ireturn // Feeds are selected by configuration.
func New(cfg *config.FeedConfig, category domain.Category) (domain.TriggerFeed, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindStatic:
		initial, err := initialValue(cfg.Initial, category)
		if err != nil {
			return nil, err
		}

		return NewStatic(initial, cfg.SuppressAbove), nil
	case KindRamp:
		return NewRamp(cfg.Min, cfg.Max, cfg.Period, cfg.SuppressAbove)
	case KindSquare:
		return NewSquare(cfg.Min, cfg.Max, cfg.Period, cfg.SuppressAbove)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidFeed, cfg.Kind)
	}
}

// initialValue parses the configured start value, defaulting by category.
func initialValue(raw string, category domain.Category) (domain.Value, error) {
	if strings.TrimSpace(raw) == "" {
		switch category {
		case domain.CategoryExclusiveLimit, domain.CategoryNonExclusiveLevel:
			return domain.Number(0), nil
		default:
			return domain.Bool(false), nil
		}
	}

	v, err := domain.ParseValue(raw)
	if err != nil {
		return domain.Value{}, fmt.Errorf("%w: initial value: %w", ErrInvalidFeed, err)
	}

	return v, nil
}

// suppression derives the suppress predicates from a value threshold.
type suppression struct {
	// above is the suppression threshold; nil disables suppression.
	above *float64
}

func (s suppression) suppress(v domain.Value) bool {
	if s.above == nil {
		return false
	}

	f, err := v.Float()

	return err == nil && f >= *s.above
}

func (s suppression) unsuppress(v domain.Value) bool {
	return s.above != nil && !s.suppress(v)
}

// Static is a writable feed holding a single value.
type Static struct {
	suppression

	// mu guards value.
	mu sync.Mutex
	// value is the current sample.
	value domain.Value
}

// NewStatic creates a static feed.
func NewStatic(initial domain.Value, suppressAbove *float64) *Static {
	return &Static{
		suppression: suppression{above: suppressAbove},
		value:       initial,
	}
}

// CurrentValue returns the held value.
func (s *Static) CurrentValue() domain.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}

// ShouldRaise is true while the value is truthy.
func (s *Static) ShouldRaise() bool {
	return s.CurrentValue().Truthy()
}

// ShouldSuppress is true at or above the suppression threshold.
func (s *Static) ShouldSuppress() bool {
	return s.suppress(s.CurrentValue())
}

// ShouldUnsuppress is true below the suppression threshold.
func (s *Static) ShouldUnsuppress() bool {
	return s.unsuppress(s.CurrentValue())
}

// Write replaces the held value.
func (s *Static) Write(v domain.Value) error {
	if v.IsZero() {
		return fmt.Errorf("%w: empty value", ErrInvalidFeed)
	}

	s.mu.Lock()
	s.value = v
	s.mu.Unlock()

	return nil
}

// wave is the shared clocked generator behind Ramp and Square.
type wave struct {
	suppression

	// low is the lower bound.
	low float64
	// high is the upper bound.
	high float64
	// period is the cycle length.
	period time.Duration
	// start anchors the phase.
	start time.Time
}

func newWave(low, high float64, period time.Duration, suppressAbove *float64) (wave, error) {
	if period <= 0 {
		return wave{}, fmt.Errorf("%w: period must be positive", ErrInvalidFeed)
	}

	if high <= low {
		return wave{}, fmt.Errorf("%w: max %v is not above min %v", ErrInvalidFeed, high, low)
	}

	return wave{
		suppression: suppression{above: suppressAbove},
		low:         low,
		high:        high,
		period:      period,
		start:       time.Now(),
	}, nil
}

// phase returns the position within the current cycle in [0, 1).
func (w *wave) phase() float64 {
	elapsed := time.Since(w.start) % w.period

	return float64(elapsed) / float64(w.period)
}

// Ramp rises from min to max over half a period and falls back over the other half.
type Ramp struct {
	wave
}

// NewRamp creates a ramp feed.
func NewRamp(low, high float64, period time.Duration, suppressAbove *float64) (*Ramp, error) {
	w, err := newWave(low, high, period, suppressAbove)
	if err != nil {
		return nil, err
	}

	return &Ramp{wave: w}, nil
}

// CurrentValue returns the ramp position at the current time.
func (r *Ramp) CurrentValue() domain.Value {
	p := r.phase()

	position := 2 * p
	if p >= 0.5 {
		position = 2 * (1 - p)
	}

	return domain.Number(r.low + (r.high-r.low)*position)
}

// ShouldRaise is true above the midpoint.
func (r *Ramp) ShouldRaise() bool {
	f, _ := r.CurrentValue().Float()

	return f > (r.low+r.high)/2
}

// ShouldSuppress is true at or above the suppression threshold.
func (r *Ramp) ShouldSuppress() bool {
	return r.suppress(r.CurrentValue())
}

// ShouldUnsuppress is true below the suppression threshold.
func (r *Ramp) ShouldUnsuppress() bool {
	return r.unsuppress(r.CurrentValue())
}

// Square alternates between min and max every half period.
type Square struct {
	wave
}

// NewSquare creates a square feed.
func NewSquare(low, high float64, period time.Duration, suppressAbove *float64) (*Square, error) {
	w, err := newWave(low, high, period, suppressAbove)
	if err != nil {
		return nil, err
	}

	return &Square{wave: w}, nil
}

// CurrentValue returns min in the first half of the period and max in the second.
func (s *Square) CurrentValue() domain.Value {
	if s.phase() < 0.5 {
		return domain.Number(s.low)
	}

	return domain.Number(s.high)
}

// ShouldRaise is true in the high half of the period.
func (s *Square) ShouldRaise() bool {
	return s.phase() >= 0.5
}

// ShouldSuppress is true at or above the suppression threshold.
func (s *Square) ShouldSuppress() bool {
	return s.suppress(s.CurrentValue())
}

// ShouldUnsuppress is true below the suppression threshold.
func (s *Square) ShouldUnsuppress() bool {
	return s.unsuppress(s.CurrentValue())
}
