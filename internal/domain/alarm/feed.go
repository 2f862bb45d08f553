package alarm

// TriggerFeed supplies the process value behind an alarm.
type TriggerFeed interface {
	// CurrentValue returns the latest sample.
	CurrentValue() Value
	// ShouldRaise reports whether a raise-driven condition should be active.
	ShouldRaise() bool
	// ShouldSuppress reports whether the alarm should become suppressed.
	ShouldSuppress() bool
	// ShouldUnsuppress reports whether a suppressed alarm should be released.
	ShouldUnsuppress() bool
}

// TriggerWriter is implemented by feeds that accept manual writes.
type TriggerWriter interface {
	// Write replaces the underlying source value.
	Write(v Value) error
}

// Sample reads every predicate of the feed once.
func Sample(feed TriggerFeed) Input {
	return Input{
		Value:      feed.CurrentValue(),
		Raise:      feed.ShouldRaise(),
		Suppress:   feed.ShouldSuppress(),
		Unsuppress: feed.ShouldUnsuppress(),
	}
}
