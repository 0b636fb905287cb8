// Package countdown computes the time left until a target instant and
// renders it for the dashboard, either once or on a refresh cycle.
package countdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// InvalidDate is shown in place of a countdown whose target could not be read.
const InvalidDate = "Invalid date"

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Decomposed is a non-negative duration split into whole units.
type Decomposed struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// Milliseconds returns the whole-unit total, which never exceeds the
// duration the value was decomposed from.
func (d Decomposed) Milliseconds() int64 {
	return d.Days*msPerDay + d.Hours*msPerHour + d.Minutes*msPerMinute + d.Seconds*msPerSecond
}

// IsZero reports whether nothing is left.
func (d Decomposed) IsZero() bool {
	return d == Decomposed{}
}

// Remaining returns target - now, clamped at zero.
func Remaining(target, now time.Time) time.Duration {
	diff := target.Sub(now)
	if diff < 0 {
		return 0
	}
	return diff
}

// Compute splits the time left into days, hours (0-23), minutes and seconds.
func Compute(target, now time.Time) Decomposed {
	ms := Remaining(target, now).Milliseconds()

	var d Decomposed
	d.Days = ms / msPerDay
	ms -= d.Days * msPerDay
	d.Hours = ms / msPerHour
	ms -= d.Hours * msPerHour
	d.Minutes = ms / msPerMinute
	ms -= d.Minutes * msPerMinute
	d.Seconds = ms / msPerSecond
	return d
}

// ComputeCumulative splits the time left into total hours, minutes and
// seconds. Days is always zero and Hours is not capped at 23.
func ComputeCumulative(target, now time.Time) Decomposed {
	ms := Remaining(target, now).Milliseconds()

	var d Decomposed
	d.Hours = ms / msPerHour
	ms -= d.Hours * msPerHour
	d.Minutes = ms / msPerMinute
	ms -= d.Minutes * msPerMinute
	d.Seconds = ms / msPerSecond
	return d
}

// Coarse renders the day-capped form, down to minutes.
func Coarse(d Decomposed) string {
	return fmt.Sprintf("%d Day: %d Hours: %d Mins left", d.Days, d.Hours, d.Minutes)
}

// Fine renders the cumulative-hours form, down to seconds.
func Fine(d Decomposed) string {
	return fmt.Sprintf("Hours: %d Minutes: %d Seconds: %d", d.Hours, d.Minutes, d.Seconds)
}

// Mode pairs a decomposition with its rendering and refresh interval.
//
// The two modes disagree on how hours are counted: coarse shows days
// separately and caps hours at 23, fine folds days into hours. Both are
// kept because the dashboard shows both.
type Mode int

const (
	ModeCoarse Mode = iota
	ModeFine
)

// ParseMode maps "coarse" and "fine" to a Mode. Anything else is coarse.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "fine") {
		return ModeFine
	}
	return ModeCoarse
}

func (m Mode) String() string {
	if m == ModeFine {
		return "fine"
	}
	return "coarse"
}

// Interval is how often a display in this mode needs refreshing.
func (m Mode) Interval() time.Duration {
	if m == ModeFine {
		return time.Second
	}
	return time.Minute
}

// Compute decomposes the time left the way this mode counts it.
func (m Mode) Compute(target, now time.Time) Decomposed {
	if m == ModeFine {
		return ComputeCumulative(target, now)
	}
	return Compute(target, now)
}

// Render formats d the way this mode displays it.
func (m Mode) Render(d Decomposed) string {
	if m == ModeFine {
		return Fine(d)
	}
	return Coarse(d)
}

// Target is the instant a countdown runs to. The zero Target is invalid.
type Target struct {
	at    time.Time
	valid bool
}

// At returns a valid Target for t.
func At(t time.Time) Target {
	return Target{at: t, valid: true}
}

// datetimeLocal is what an HTML datetime-local input submits.
const datetimeLocal = "2006-01-02T15:04"

// ParseTarget reads a date string. Strings without a zone are taken as UTC.
// An empty or unreadable string gives an invalid Target, never an error.
func ParseTarget(s string) Target {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}
	}
	if t, err := time.ParseInLocation(datetimeLocal, s, time.UTC); err == nil {
		return At(t)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return Target{}
	}
	return At(t)
}

// Valid reports whether the target holds a usable instant.
func (t Target) Valid() bool { return t.valid }

// Time returns the instant and whether it is valid.
func (t Target) Time() (time.Time, bool) { return t.at, t.valid }

// Render returns the countdown text for target at now, or InvalidDate.
func Render(target Target, now time.Time, mode Mode) string {
	at, ok := target.Time()
	if !ok {
		return InvalidDate
	}
	return mode.Render(mode.Compute(at, now))
}
