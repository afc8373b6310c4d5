package client

import (
	"time"
)

// parseTimestamp converts an RFC 3339 timestamp as returned by the server
// to time.Time. Returns zero time for an empty or malformed value.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
