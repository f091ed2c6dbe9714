package probe

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrTimeout is recorded when a probe exceeds its deadline.
var ErrTimeout = errors.New("probe: timed out")

// ValueKind tags the contents of a Value.
type ValueKind string

const (
	KindNone   ValueKind = ""
	KindNumber ValueKind = "number"
	KindText   ValueKind = "text"
	KindBool   ValueKind = "bool"
)

// Value is an observed value: a number, a string or a boolean.
// The zero Value holds nothing.
type Value struct {
	kind ValueKind
	num  float64
	text string
	flag bool
}

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, flag: b} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsZero() bool    { return v.kind == KindNone }

// Number returns the numeric value and whether v holds a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Text returns the string value and whether v holds a string.
func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

// Bool returns the boolean value and whether v holds a boolean.
func (v Value) Bool() (bool, bool) { return v.flag, v.kind == KindBool }

// String renders the value the way it is compared against expected values.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case float64:
		*v = Number(x)
	case string:
		*v = Text(x)
	case bool:
		*v = Bool(x)
	default:
		return errors.New("probe: unsupported value type")
	}
	return nil
}

// OutcomeKind tags how a probe execution ended.
type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeTimeout       OutcomeKind = "timeout"
	OutcomeUnreachable   OutcomeKind = "unreachable"
	OutcomeNotApplicable OutcomeKind = "not_applicable"
)

// Outcome is the tagged result of a single probe execution.
// Only Success carries a Value; Unreachable carries Err; NotApplicable carries Reason.
type Outcome struct {
	Kind   OutcomeKind
	Value  Value
	Err    error
	Reason string
}

func Success(v Value) Outcome { return Outcome{Kind: OutcomeSuccess, Value: v} }

func Timeout() Outcome { return Outcome{Kind: OutcomeTimeout, Err: ErrTimeout} }

func Unreachable(err error) Outcome {
	if err == nil {
		err = errors.New("unreachable")
	}
	return Outcome{Kind: OutcomeUnreachable, Err: err}
}

func NotApplicable(reason string) Outcome {
	return Outcome{Kind: OutcomeNotApplicable, Reason: reason}
}

// OK reports whether the probe produced a value.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Detail returns the error text or reason for non-success outcomes.
func (o Outcome) Detail() string {
	switch o.Kind {
	case OutcomeUnreachable, OutcomeTimeout:
		if o.Err != nil {
			return o.Err.Error()
		}
	case OutcomeNotApplicable:
		return o.Reason
	}
	return ""
}

type outcomeJSON struct {
	Kind   OutcomeKind `json:"kind"`
	Value  Value       `json:"value"`
	Detail string      `json:"detail,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON{Kind: o.Kind, Value: o.Value, Detail: o.Detail()})
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case OutcomeSuccess:
		*o = Success(raw.Value)
	case OutcomeTimeout:
		*o = Timeout()
	case OutcomeUnreachable:
		*o = Unreachable(errors.New(raw.Detail))
	case OutcomeNotApplicable:
		*o = NotApplicable(raw.Detail)
	default:
		return errors.New("probe: unknown outcome kind " + strconv.Quote(string(raw.Kind)))
	}
	return nil
}
