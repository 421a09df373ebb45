package lifecycle

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Values above this magnitude are millisecond timestamps.
const millisThreshold = 1e12

// Bounds of years 0001..9999 in unix seconds.
const (
	minUnixSeconds = -62135596800
	maxUnixSeconds = 253402300799
)

// DisplayLayout is used for every human-facing instant.
const DisplayLayout = "2006-01-02 15:04:05"

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize converts a raw timestamp (nil, integer, float, json.Number,
// string or time.Time) into a UTC instant. The second return value is false
// whenever the input cannot be trusted; it never panics. A numeric zero is
// treated as absent.
func Normalize(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return Normalize(*val)
	case string:
		return parseString(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return fromInt(i)
		}
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromFloat(f)
	case int:
		return fromInt(int64(val))
	case int32:
		return fromInt(int64(val))
	case int64:
		return fromInt(val)
	case uint:
		return fromUint(uint64(val))
	case uint32:
		return fromInt(int64(val))
	case uint64:
		return fromUint(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	default:
		return time.Time{}, false
	}
}

func fromUint(u uint64) (time.Time, bool) {
	if u > math.MaxInt64 {
		return time.Time{}, false
	}
	return fromInt(int64(u))
}

func fromInt(i int64) (time.Time, bool) {
	if i == 0 {
		return time.Time{}, false
	}
	var t time.Time
	if i > millisThreshold || i < -millisThreshold {
		secs := i / 1000
		if secs < minUnixSeconds || secs > maxUnixSeconds {
			return time.Time{}, false
		}
		t = time.UnixMilli(i)
	} else {
		if i < minUnixSeconds || i > maxUnixSeconds {
			return time.Time{}, false
		}
		t = time.Unix(i, 0)
	}
	return t.UTC(), true
}

func fromFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return time.Time{}, false
	}
	if math.Abs(f) > millisThreshold {
		f /= 1000
	}
	if f < minUnixSeconds || f > maxUnixSeconds {
		return time.Time{}, false
	}
	secs := math.Floor(f)
	nanos := math.Round((f - secs) * 1e9)
	return time.Unix(int64(secs), int64(nanos)).UTC(), true
}

func parseString(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if isDigits(s) {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromInt(i)
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	for _, layout := range isoLayouts {
		// Layouts without an offset parse as UTC.
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Format renders a raw timestamp in loc, or "-" when it cannot be normalized.
func Format(v any, loc *time.Location) string {
	t, ok := Normalize(v)
	if !ok {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}
