package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawEmail is one record as a remote returned it: a decoded JSON object
// whose field names vary between remotes (snake_case or camelCase) and
// whose values may be missing, null, or of an unexpected type. The
// accessors never fail; they fall back to the zero value.
type RawEmail map[string]any

// First returns the value of the first key that is present and non-null.
func (r RawEmail) First(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first present key as a string. Numbers are
// formatted; other types are skipped.
func (r RawEmail) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

// Bool returns the first present key as a bool. Strings "true"/"1" and
// non-zero numbers count as true.
func (r RawEmail) Bool(keys ...string) bool {
	for _, k := range keys {
		switch v := r[k].(type) {
		case bool:
			return v
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err == nil {
				return b
			}
		case float64:
			return v != 0
		case json.Number:
			f, err := v.Float64()
			if err == nil {
				return f != 0
			}
		case int:
			return v != 0
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

// Time returns the first present key that parses as a timestamp:
// RFC 3339 and RFC 1123 strings, a time.Time, or a Unix time in seconds
// or milliseconds. The zero time means missing or unparseable.
func (r RawEmail) Time(keys ...string) time.Time {
	for _, k := range keys {
		switch v := r[k].(type) {
		case time.Time:
			return v
		case string:
			if t, ok := parseTime(v); ok {
				return t
			}
		case float64:
			return unixTime(int64(v))
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return unixTime(n)
			}
		}
	}
	return time.Time{}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixTime(n), true
	}
	return time.Time{}, false
}

// unixTime treats values past year 33658 in seconds as milliseconds.
func unixTime(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
