package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "14, Nov 2023", FormatDate(&Timestamp{Seconds: 1700000000}))
	assert.Equal(t, "01, Jan 1970", FormatDate(&Timestamp{Seconds: 1}))
	assert.Equal(t, "05, Sep 2024", FormatDate(&Timestamp{Seconds: 1725494400, Nanoseconds: 500}))
	assert.Equal(t, InvalidDate, FormatDate(nil))
	assert.Equal(t, InvalidDate, FormatDate(&Timestamp{}))
}

func TestFormatDateIgnoresLocalZone(t *testing.T) {
	ts := FromTime(time.Date(2023, time.November, 14, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600)))
	assert.Equal(t, "15, Nov 2023", FormatDate(&ts))
}

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"seconds and nanoseconds", `{"seconds":1700000000,"nanoseconds":0}`, "14, Nov 2023"},
		{"underscore fields", `{"_seconds":1700000000,"_nanoseconds":12}`, "14, Nov 2023"},
		{"empty object", `{}`, InvalidDate},
		{"null", `null`, InvalidDate},
		{"string seconds", `{"seconds":"1700000000"}`, InvalidDate},
		{"zero seconds", `{"seconds":0}`, InvalidDate},
		{"not an object", `1700000000`, InvalidDate},
		{"broken json", `{"seconds":`, InvalidDate},
		{"empty input", ``, InvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatJSON([]byte(tt.raw)))
		})
	}
}

func TestParse(t *testing.T) {
	ts, ok := Parse([]byte(`{"seconds":1700000000,"nanoseconds":250}`))
	require.True(t, ok)
	assert.Equal(t, Timestamp{Seconds: 1700000000, Nanoseconds: 250}, *ts)
	assert.Equal(t, time.Unix(1700000000, 250).UTC(), ts.Time())

	_, ok = Parse([]byte(`{"nanoseconds":250}`))
	assert.False(t, ok)
}
