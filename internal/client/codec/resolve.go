package codec

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type asTimer interface{ AsTime() time.Time }

type timer interface{ Time() time.Time }

type secondser interface{ Seconds() int64 }

type nanoser interface{ Nanos() int32 }

type nanosecondser interface{ Nanoseconds() int64 }

// ResolveTimestamp converts a stored timestamp of any supported shape to a
// UTC time. It reports false when the shape is not recognised.
//
// Supported shapes: time.Time and *time.Time; values with an AsTime method
// (protobuf timestamps); values with a Time method (BSON dates); BSON
// timestamps; values with a Seconds() int64 method and an optional Nanos()
// or Nanoseconds() method; maps carrying "seconds" or "_seconds" with
// optional "nanoseconds", "_nanoseconds" or "nanos".
func ResolveTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return x.UTC(), true
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC(), true
	case primitive.M:
		return fromSecondsMap(map[string]any(x))
	case primitive.D:
		return fromSecondsMap(x.Map())
	case map[string]any:
		return fromSecondsMap(x)
	case asTimer:
		return x.AsTime().UTC(), true
	case timer:
		return x.Time().UTC(), true
	case secondser:
		var nanos int64
		switch n := v.(type) {
		case nanoser:
			nanos = int64(n.Nanos())
		case nanosecondser:
			nanos = n.Nanoseconds()
		}
		return time.Unix(x.Seconds(), nanos).UTC(), true
	}
	return time.Time{}, false
}

func fromSecondsMap(m map[string]any) (time.Time, bool) {
	v, ok := first(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}

	var secs, frac int64
	if f, isFloat := v.(float64); isFloat {
		secs, frac, ok = splitSeconds(f)
	} else {
		secs, ok = toInt64(v)
	}
	if !ok {
		return time.Time{}, false
	}

	var nanos int64
	if n, found := first(m, "nanoseconds", "_nanoseconds", "nanos"); found {
		nanos, _ = toInt64(n)
	}
	return time.Unix(secs, frac+nanos).UTC(), true
}

// splitSeconds splits fractional seconds into whole seconds and nanoseconds.
func splitSeconds(f float64) (secs, nanos int64, ok bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, 0, false
	}
	whole := math.Floor(f)
	return int64(whole), int64(math.Round((f - whole) * 1e9)), true
}

func first(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
