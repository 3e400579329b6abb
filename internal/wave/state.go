package wave

// Kind is the rendering-relevant category of one cycle.
type Kind int

const (
	KindHigh Kind = iota
	KindLow
	KindUndefined
	KindClockPositive
	KindClockNegative
	KindData
	KindGap
	KindContinuation
	KindHighZ
	KindPullUp
	KindPullDown
)

var kindNames = map[Kind]string{
	KindHigh:          "high",
	KindLow:           "low",
	KindUndefined:     "undefined",
	KindClockPositive: "clock-positive",
	KindClockNegative: "clock-negative",
	KindData:          "data",
	KindGap:           "gap",
	KindContinuation:  "continuation",
	KindHighZ:         "high-z",
	KindPullUp:        "pull-up",
	KindPullDown:      "pull-down",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NoSegment marks a state that does not belong to a data segment.
const NoSegment = -1

// CycleState is one signal's value for one cycle.
//
// For KindContinuation, Resolved holds the kind being continued and Segment
// and Style are copied from the continued state. For every other kind
// Resolved equals Kind.
type CycleState struct {
	Kind     Kind `json:"kind"`
	Resolved Kind `json:"resolved"`
	Segment  int  `json:"segment"`
	Style    byte `json:"style,omitempty"` // wave character that selected the state
	Emphasis bool `json:"emphasis,omitempty"`
}

// Effective returns the kind to draw for this cycle.
func (s CycleState) Effective() Kind {
	if s.Kind == KindContinuation {
		return s.Resolved
	}
	return s.Kind
}

// IsContinuation reports whether the state extends its predecessor.
func (s CycleState) IsContinuation() bool {
	return s.Kind == KindContinuation
}

// Continue returns the continuation state that extends s.
func (s CycleState) Continue() CycleState {
	return CycleState{
		Kind:     KindContinuation,
		Resolved: s.Effective(),
		Segment:  s.Segment,
		Style:    s.Style,
		Emphasis: s.Emphasis,
	}
}

// Undefined returns a fresh undefined state.
func Undefined() CycleState {
	return CycleState{Kind: KindUndefined, Resolved: KindUndefined, Segment: NoSegment, Style: 'x'}
}
