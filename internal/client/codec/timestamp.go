package codec

import "time"

type timestampKind uint8

const (
	kindConcrete timestampKind = iota
	kindAssignOnWrite
)

// Timestamp is either a concrete instant or a request that the remote store
// assign its own clock at commit time. An assign-on-write value has no time
// and must never be compared as one.
type Timestamp struct {
	kind timestampKind
	t    time.Time
}

// Concrete wraps a known instant.
func Concrete(t time.Time) Timestamp {
	return Timestamp{kind: kindConcrete, t: t}
}

// AssignOnWrite asks the remote store to stamp the field with its clock.
func AssignOnWrite() Timestamp {
	return Timestamp{kind: kindAssignOnWrite}
}

func (ts Timestamp) IsAssignOnWrite() bool {
	return ts.kind == kindAssignOnWrite
}

// Time returns the concrete instant; ok is false for assign-on-write values.
func (ts Timestamp) Time() (t time.Time, ok bool) {
	if ts.kind != kindConcrete {
		return time.Time{}, false
	}
	return ts.t, true
}

func (ts Timestamp) String() string {
	if ts.IsAssignOnWrite() {
		return "<assign-on-write>"
	}
	return ts.t.Format(time.RFC3339Nano)
}
