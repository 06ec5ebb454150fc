package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind tags the variant held by an Encoded value.
type Kind string

const (
	KindUnknown   Kind = ""
	KindPrimitive Kind = "primitive"
	KindDate      Kind = "date"
	KindBuffer    Kind = "buffer"
)

// DateLayout is the ISO-8601 form dates are written in: UTC, millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z"

var ErrUnsupported = errors.New("codec: unsupported value")

// SetOption is the metadata stored alongside a value.
type SetOption struct {
	// Expire is an absolute deadline in Unix milliseconds. Zero means no deadline.
	Expire int64 `json:"expire,omitempty"`
}

// Clone returns a copy of o, or nil if o is nil.
func (o *SetOption) Clone() *SetOption {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// InvalidDate is what a date entry decodes to when its text cannot be parsed.
// Raw keeps the stored text so the entry survives being written back.
type InvalidDate struct {
	Raw string
}

func (InvalidDate) String() string { return "Invalid Date" }

// Encoded is the JSON-safe tagged form of a value.
//
// For KindPrimitive, Value holds nil, bool, string, float64, []Encoded or
// map[string]Encoded. Date and Buf are only meaningful for their own kinds.
type Encoded struct {
	Kind   Kind
	Value  any
	Date   string
	Buf    string
	Option *SetOption

	// raw holds the source text of an entry that could not be recognised.
	raw []byte
}

// Decoded is the result of Decode. Option is nil when none was stored.
type Decoded struct {
	Value  any
	Option *SetOption
}

// Encode converts v into its tagged form. Only the outermost value carries opt;
// container elements are encoded recursively without options.
//
// time.Time becomes a date, []byte a buffer. Everything else is a primitive:
// numbers are normalised to float64, and types other than the JSON shapes
// ([]any, map[string]any) are reduced through an encoding/json round trip.
func Encode(v any, opt *SetOption) (Encoded, error) {
	switch x := v.(type) {
	case time.Time:
		return Encoded{Kind: KindDate, Date: FormatDate(x), Option: opt.Clone()}, nil
	case InvalidDate:
		return Encoded{Kind: KindDate, Date: x.Raw, Option: opt.Clone()}, nil
	case []byte:
		return Encoded{Kind: KindBuffer, Buf: base64.StdEncoding.EncodeToString(x), Option: opt.Clone()}, nil
	}
	p, err := primitive(v)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Kind: KindPrimitive, Value: p, Option: opt.Clone()}, nil
}

func primitive(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string:
		return x, nil
	case float64:
		return number(x)
	case float32:
		return number(float64(x))
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case []any:
		out := make([]Encoded, len(x))
		for i, el := range x {
			e, err := Encode(el, nil)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case map[string]any:
		out := make(map[string]Encoded, len(x))
		for k, el := range x {
			e, err := Encode(el, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = e
		}
		return out, nil
	}
	return normalize(v)
}

// normalize reduces any other Go value to the JSON shapes and encodes the
// result. Values encoding/json cannot marshal are unsupported.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupported, v, err)
	}
	var shaped any
	if err := json.Unmarshal(data, &shaped); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupported, v, err)
	}
	return primitive(shaped)
}

func number(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not a JSON number", ErrUnsupported, f)
	}
	return f, nil
}

// Decode converts a tagged value back into its runtime form. It never fails:
// an unknown kind yields a nil value with no option, and an undecodable buffer
// a nil value that keeps its option.
func Decode(e Encoded) Decoded {
	switch e.Kind {
	case KindPrimitive:
		return Decoded{Value: decodePrimitive(e.Value), Option: e.Option.Clone()}
	case KindDate:
		return Decoded{Value: ParseDate(e.Date), Option: e.Option.Clone()}
	case KindBuffer:
		b, ok := decodeBase64(e.Buf)
		if !ok {
			return Decoded{Option: e.Option.Clone()}
		}
		return Decoded{Value: b, Option: e.Option.Clone()}
	default:
		return Decoded{}
	}
}

func decodePrimitive(v any) any {
	switch x := v.(type) {
	case []Encoded:
		out := make([]any, len(x))
		for i := range x {
			out[i] = Decode(x[i]).Value
		}
		return out
	case map[string]Encoded:
		out := make(map[string]any, len(x))
		for k := range x {
			out[k] = Decode(x[k]).Value
		}
		return out
	default:
		return x
	}
}

// FormatDate renders t in DateLayout. Sub-millisecond precision is truncated.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// localLayout is a date-time with no zone, read as local time.
const localLayout = "2006-01-02T15:04:05"

// ParseDate returns a UTC time.Time, or InvalidDate if s is not RFC 3339, a
// zoneless date-time or a plain YYYY-MM-DD date.
func ParseDate(s string) any {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if t, err := time.ParseInLocation(localLayout, s, time.Local); err == nil {
		return t.UTC()
	}
	return InvalidDate{Raw: s}
}

func decodeBase64(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}
