package model

import "time"

const (
	isoLayout       = "2006-01-02T15:04:05.000Z07:00"
	timestampLayout = "2006-01-02 15:04:05.000"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp as reviews carry them.
// Timestamps without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISO renders t in UTC with millisecond precision and a Z suffix.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Timestamp renders the response timestamp ("YYYY-MM-DD HH:MM:SS.mmm", UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
