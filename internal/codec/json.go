package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// wire is the on-disk shape of every variant.
type wire struct {
	Type   Kind            `json:"type"`
	Value  json.RawMessage `json:"value"`
	Date   string          `json:"date"`
	Buf    string          `json:"buf"`
	Option *SetOption      `json:"option"`
}

func (e Encoded) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindPrimitive:
		return json.Marshal(struct {
			Type   Kind       `json:"type"`
			Value  any        `json:"value"`
			Option *SetOption `json:"option,omitempty"`
		}{e.Kind, e.Value, e.Option})
	case KindDate:
		return json.Marshal(struct {
			Type   Kind       `json:"type"`
			Date   string     `json:"date"`
			Option *SetOption `json:"option,omitempty"`
		}{e.Kind, e.Date, e.Option})
	case KindBuffer:
		return json.Marshal(struct {
			Type   Kind       `json:"type"`
			Buf    string     `json:"buf"`
			Option *SetOption `json:"option,omitempty"`
		}{e.Kind, e.Buf, e.Option})
	}
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	return nil, fmt.Errorf("%w: cannot write entry of kind %q", ErrUnsupported, e.Kind)
}

// UnmarshalJSON accepts any valid JSON. Text that is not a well-formed tagged
// object becomes KindUnknown rather than an error, so one foreign entry never
// prevents the rest of a database from loading.
func (e *Encoded) UnmarshalJSON(data []byte) error {
	*e = Encoded{}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		e.keepRaw(data)
		return nil
	}
	switch w.Type {
	case KindPrimitive:
		v, ok := parsePrimitive(w.Value)
		if !ok {
			e.keepRaw(data)
			return nil
		}
		e.Value = v
	case KindDate:
		e.Date = w.Date
	case KindBuffer:
		e.Buf = w.Buf
	default:
		e.keepRaw(data)
		return nil
	}
	e.Kind = w.Type
	e.Option = w.Option
	return nil
}

// UnmarshalJSON accepts any JSON number for expire and truncates it to whole
// milliseconds.
func (o *SetOption) UnmarshalJSON(data []byte) error {
	var w struct {
		Expire *float64 `json:"expire"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = SetOption{}
	if w.Expire != nil {
		o.Expire = int64(*w.Expire)
	}
	return nil
}

// Absent reports whether the entry is a stored JSON null, which counts as no entry.
func (e Encoded) Absent() bool {
	return e.Kind == KindUnknown && bytes.Equal(bytes.TrimSpace(e.raw), []byte("null"))
}

func (e *Encoded) keepRaw(data []byte) {
	e.Kind = KindUnknown
	e.raw = append([]byte(nil), data...)
}

func parsePrimitive(raw json.RawMessage) (any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, true
	}
	switch raw[0] {
	case '[':
		var list []Encoded
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		return list, true
	case '{':
		var m map[string]Encoded
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false
		}
		return m, true
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return nil, false
	}
	return scalar, true
}
