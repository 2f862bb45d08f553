//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/oshokin/alarm-conditions/internal/domain/alarm"
)

// FormatRecord renders a record as one human-readable line.
// Sub-states are listed only when the alarm supports them.
func FormatRecord(rec *domain.EventRecord) string {
	var b strings.Builder

	// Extract timestamp with fallback for missing data.
	timestamp := "<unknown>"
	if !rec.Time.IsZero() {
		timestamp = rec.Time.Format(time.RFC3339)
	}

	state := "inactive"
	if rec.Active {
		state = "active"
	}

	fmt.Fprintf(&b, "%s %s %s severity=%d", timestamp, rec.Identity, state, rec.Severity)

	switch rec.Category {
	case domain.CategoryExclusiveLimit:
		fmt.Fprintf(&b, " band=%s", rec.Band)
	case domain.CategoryNonExclusiveLevel:
		fmt.Fprintf(&b, " levels=%s", rec.Levels)
	case domain.CategoryAcknowledgeable, domain.CategorySingleThreshold:
	}

	if !rec.Value.IsZero() {
		fmt.Fprintf(&b, " value=%s", rec.Value)
	}

	caps := rec.Capabilities
	if caps.Acknowledge {
		fmt.Fprintf(&b, " acked=%t", rec.Acknowledged)
	}

	if caps.Confirm {
		fmt.Fprintf(&b, " confirmed=%t", rec.Confirmed)
	}

	if caps.Suppress && rec.Suppressed {
		b.WriteString(" suppressed")
	}

	if caps.Shelve && rec.Shelving != domain.Unshelved {
		fmt.Fprintf(&b, " shelving=%s", rec.Shelving)

		if !rec.ShelvingExpiry.IsZero() {
			fmt.Fprintf(&b, " until=%s", rec.ShelvingExpiry.Format(time.RFC3339))
		}
	}

	if caps.Latch && rec.Latched {
		b.WriteString(" latched")
	}

	if rec.Retain {
		b.WriteString(" retained")
	}

	if rec.IsBranch() {
		fmt.Fprintf(&b, " branch=%s", rec.BranchID)
	}

	fmt.Fprintf(&b, " event=%s", rec.EventID)

	if rec.Message != "" {
		fmt.Fprintf(&b, " %q", rec.Message)
	}

	if rec.Actor != nil {
		fmt.Fprintf(&b, " by %s", rec.Actor)
	}

	return b.String()
}
