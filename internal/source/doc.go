// Package source provides the trigger feeds behind alarms: a static value that
// operators can overwrite, and ramp and square generators for demonstrations
// and soak tests. Every feed can suppress its alarm above a configured value.
package source
