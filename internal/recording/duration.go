package recording

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned for durations that are neither positive
// nor manual.
var ErrInvalidDuration = errors.New("invalid recording duration")

// Duration is the length of a timed session. Manual sessions run until
// stopped explicitly.
type Duration time.Duration

// Session lengths offered to users.
const (
	Manual    Duration = 0
	Preset3s           = Duration(3 * time.Second)
	Preset5s           = Duration(5 * time.Second)
	Preset10s          = Duration(10 * time.Second)
)

// Presets lists the timed session lengths in ascending order.
var Presets = []Duration{Preset3s, Preset5s, Preset10s}

// ParseDuration accepts "manual", a bare number of seconds ("5") or a Go
// duration string ("3s", "1500ms").
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "manual" {
		return Manual, nil
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		return Duration(time.Duration(secs) * time.Second), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return Duration(d), nil
}

// IsManual reports whether the session has no auto-stop.
func (d Duration) IsManual() bool {
	return d == Manual
}

// Seconds returns the countdown start value, rounded up to whole seconds.
func (d Duration) Seconds() int {
	if d <= 0 {
		return 0
	}
	return int((time.Duration(d) + time.Second - 1) / time.Second)
}

func (d Duration) String() string {
	if d.IsManual() {
		return "manual"
	}
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
