// Package timestamp formats stored {seconds, nanoseconds} timestamps for
// display.
package timestamp

import (
	"time"

	"github.com/tidwall/gjson"
)

// InvalidDate is returned for anything that does not carry usable seconds.
const InvalidDate = "Invalid date"

// DateLayout renders as "14, Nov 2023".
const DateLayout = "02, Jan 2006"

// Timestamp is a point in time as document stores keep it.
type Timestamp struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// FromTime converts t to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int64(t.Nanosecond())}
}

// Time returns the instant in UTC.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, ts.Nanoseconds).UTC()
}

// FormatDate renders ts as "DD, Mon YYYY" in UTC. A nil timestamp or one
// with zero seconds gives InvalidDate.
func FormatDate(ts *Timestamp) string {
	if ts == nil || ts.Seconds == 0 {
		return InvalidDate
	}
	return ts.Time().Format(DateLayout)
}

// Parse reads a raw stored timestamp. Both "seconds" and the "_seconds"
// spelling are accepted; the seconds field must be a JSON number.
func Parse(raw []byte) (*Timestamp, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return nil, false
	}

	secs := doc.Get("seconds")
	if !secs.Exists() {
		secs = doc.Get("_seconds")
	}
	if secs.Type != gjson.Number {
		return nil, false
	}

	nanos := doc.Get("nanoseconds")
	if !nanos.Exists() {
		nanos = doc.Get("_nanoseconds")
	}

	return &Timestamp{Seconds: secs.Int(), Nanoseconds: nanos.Int()}, true
}

// FormatJSON is FormatDate for a raw stored timestamp.
func FormatJSON(raw []byte) string {
	ts, ok := Parse(raw)
	if !ok {
		return InvalidDate
	}
	return FormatDate(ts)
}
