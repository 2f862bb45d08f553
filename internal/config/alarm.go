package config

import (
	"fmt"
	"time"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

// AlarmConfig describes one alarm registered at startup.
type AlarmConfig struct {
	// Source is the owning source, for example "boiler".
	Source string `yaml:"source"`
	// Name is the alarm name within the source.
	Name string `yaml:"name"`
	// Category is one of acknowledgeable, single_threshold, exclusive_limit, non_exclusive_level.
	Category string `yaml:"category"`
	// Acknowledge enables acknowledgement.
	Acknowledge bool `yaml:"acknowledge,omitempty"`
	// Confirm enables confirmation.
	Confirm bool `yaml:"confirm,omitempty"`
	// Suppress enables suppression driven by the feed.
	Suppress bool `yaml:"suppress,omitempty"`
	// Shelve enables shelving.
	Shelve bool `yaml:"shelve,omitempty"`
	// Latch keeps the alarm latched until reset.
	Latch bool `yaml:"latch,omitempty"`
	// Branching keeps unresolved occurrences as branches.
	Branching bool `yaml:"branching,omitempty"`
	// MaxShelveTime clamps shelve durations.
	MaxShelveTime time.Duration `yaml:"max_shelve_time,omitempty"`
	// Severity is the active severity of a single-threshold alarm.
	Severity int `yaml:"severity,omitempty"`
	// Threshold is the trip point of a numeric single-threshold alarm.
	Threshold float64 `yaml:"threshold,omitempty"`
	// Limits configure limit and level alarms.
	Limits LimitsConfig `yaml:"limits,omitempty"`
	// Severities override the per-band severities.
	Severities SeveritiesConfig `yaml:"severities,omitempty"`
	// Feed configures the simulated trigger source.
	Feed FeedConfig `yaml:"feed"`
}

// LimitsConfig holds optional band limits.
type LimitsConfig struct {
	LowLow   *float64 `yaml:"low_low,omitempty"`
	Low      *float64 `yaml:"low,omitempty"`
	High     *float64 `yaml:"high,omitempty"`
	HighHigh *float64 `yaml:"high_high,omitempty"`
}

// SeveritiesConfig holds optional per-band severities.
type SeveritiesConfig struct {
	LowLow   int `yaml:"low_low,omitempty"`
	Low      int `yaml:"low,omitempty"`
	High     int `yaml:"high,omitempty"`
	HighHigh int `yaml:"high_high,omitempty"`
}

// FeedConfig configures the trigger source behind an alarm.
type FeedConfig struct {
	// Kind is static, ramp or square. Empty means static.
	Kind string `yaml:"kind,omitempty"`
	// Initial is the starting value: a number or true/false.
	Initial string `yaml:"initial,omitempty"`
	// Min is the lower bound of generated values.
	Min float64 `yaml:"min,omitempty"`
	// Max is the upper bound of generated values.
	Max float64 `yaml:"max,omitempty"`
	// Period is the length of one ramp or square cycle.
	Period time.Duration `yaml:"period,omitempty"`
	// SuppressAbove suppresses the alarm while the value is at or above it.
	SuppressAbove *float64 `yaml:"suppress_above,omitempty"`
}

// Identity returns the correlation key "source/name".
func (a *AlarmConfig) Identity() string {
	return a.Source + "/" + a.Name
}

// Definition converts the entry into a validated domain definition.
func (a *AlarmConfig) Definition() (domain.Definition, error) {
	category, err := domain.ParseCategory(a.Category)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("alarm %s: %w", a.Identity(), err)
	}

	def := domain.Definition{
		Source: a.Source,
		Name:   a.Name,
		Variant: domain.Variant{
			Category:  category,
			Threshold: a.Threshold,
			Severity:  a.Severity,
			Limits: domain.Limits{
				LowLow:   a.Limits.LowLow,
				Low:      a.Limits.Low,
				High:     a.Limits.High,
				HighHigh: a.Limits.HighHigh,
			},
			Severities: domain.BandSeverities{
				LowLow:   a.Severities.LowLow,
				Low:      a.Severities.Low,
				High:     a.Severities.High,
				HighHigh: a.Severities.HighHigh,
			},
		},
		Capabilities: domain.Capabilities{
			Acknowledge:   a.Acknowledge,
			Confirm:       a.Confirm,
			Suppress:      a.Suppress,
			Shelve:        a.Shelve,
			Latch:         a.Latch,
			Branching:     a.Branching,
			MaxShelveTime: a.MaxShelveTime,
		},
	}

	if err := def.Validate(); err != nil {
		return domain.Definition{}, fmt.Errorf("alarm %s: %w", a.Identity(), err)
	}

	return def, nil
}
