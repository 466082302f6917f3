// Package timezones resolves the business time zone used to decide which
// calendar day "today" is.
package timezones

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone database for minimal containers
)

// Default is used when no zone is configured.
const Default = "Europe/Rome"

// Load returns the location for name; an empty name loads Default.
func Load(name string) (*time.Location, error) {
	if name == "" {
		name = Default
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// Valid reports whether name is a loadable zone id.
func Valid(name string) bool {
	_, err := Load(name)
	return err == nil
}

// Today returns UTC midnight of now's calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
