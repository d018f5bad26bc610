// Package biztime provides business time utilities. All storage and
// transport use UTC; provider wire formats use Unix milliseconds.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "Asia/Tashkent"
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// MustInit initializes the business timezone and panics on error.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone location, auto-initializing with
// the default timezone when not explicitly initialized.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ToUTC converts a time (any timezone) to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// UnixMilli converts a time to Unix milliseconds as used on provider wires.
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}

// UnixMilliPtr converts an optional time to Unix milliseconds, zero when nil.
func UnixMilliPtr(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMilli converts provider wire milliseconds to a UTC time.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
