package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v any, opt *SetOption) Decoded {
	t.Helper()
	e, err := Encode(v, opt)
	require.NoError(t, err)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	var back Encoded
	require.NoError(t, json.Unmarshal(data, &back))
	return Decode(back)
}

func TestRoundTrip(t *testing.T) {
	when := time.Date(2024, 1, 1, 12, 30, 45, 123_000_000, time.UTC)
	opt := &SetOption{Expire: 1_700_000_000_000}

	tests := []struct {
		name string
		in   any
	}{
		{"null", nil},
		{"bool", true},
		{"string", "hello"},
		{"number", 3.25},
		{"empty list", []any{}},
		{"list", []any{"a", 1.0, false, nil}},
		{"mapping", map[string]any{"x": 1.0, "y": []any{"a", "b"}}},
		{"buffer", []byte{0, 1, 2, 3}},
		{"empty buffer", []byte{}},
		{"nested buffer", map[string]any{"raw": []byte{0xff, 0x00}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.in, opt)
			require.Equal(t, tt.in, got.Value)
			require.Equal(t, opt, got.Option)
		})
	}

	t.Run("date", func(t *testing.T) {
		got := roundTrip(t, when, opt)
		d, ok := got.Value.(time.Time)
		require.True(t, ok)
		require.True(t, when.Equal(d), "want %s got %s", when, d)
		require.Equal(t, opt, got.Option)
	})

	t.Run("nested date", func(t *testing.T) {
		got := roundTrip(t, []any{when}, nil)
		list := got.Value.([]any)
		require.Len(t, list, 1)
		require.True(t, when.Equal(list[0].(time.Time)))
		require.Nil(t, got.Option)
	})
}

func TestEncode_Shapes(t *testing.T) {
	e, err := Encode(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"date","date":"2024-01-01T00:00:00.000Z"}`, string(data))

	e, err = Encode([]byte{0, 1, 2, 3}, &SetOption{Expire: 5})
	require.NoError(t, err)
	data, err = json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"buffer","buf":"AAECAw==","option":{"expire":5}}`, string(data))

	e, err = Encode(map[string]any{"x": 1, "y": []any{"a"}}, &SetOption{Expire: 9})
	require.NoError(t, err)
	data, err = json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "primitive",
		"value": {
			"x": {"type": "primitive", "value": 1},
			"y": {"type": "primitive", "value": [{"type": "primitive", "value": "a"}]}
		},
		"option": {"expire": 9}
	}`, string(data))
}

func TestEncode_NormalisesNumbersAndStructs(t *testing.T) {
	type point struct {
		X     int    `json:"x"`
		Label string `json:"label"`
	}
	got := roundTrip(t, map[string]any{"p": point{X: 2, Label: "a"}, "n": int64(7), "s": []string{"q"}}, nil)
	require.Equal(t, map[string]any{
		"p": map[string]any{"x": 2.0, "label": "a"},
		"n": 7.0,
		"s": []any{"q"},
	}, got.Value)
}

func TestEncode_Unsupported(t *testing.T) {
	_, err := Encode(make(chan int), nil)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Encode([]any{1.0, func() {}}, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestEncode_NormalisedElementsAreTagged(t *testing.T) {
	e, err := Encode([]string{"a", "b"}, nil)
	require.NoError(t, err)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"primitive","value":[{"type":"primitive","value":"a"},{"type":"primitive","value":"b"}]}`, string(data))
}

func TestEncode_DoesNotAliasOption(t *testing.T) {
	opt := &SetOption{Expire: 1}
	e, err := Encode("v", opt)
	require.NoError(t, err)
	opt.Expire = 2
	require.Equal(t, int64(1), e.Option.Expire)
}

func TestDecode_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"no tag", `{"value": 1}`, nil},
		{"foreign tag", `{"type": "regexp", "source": "a+"}`, nil},
		{"not an object", `42`, nil},
		{"null", `null`, nil},
		{"bad option", `{"type": "primitive", "value": 1, "option": "soon"}`, nil},
		{"untagged nested element", `{"type": "primitive", "value": [1, {"type": "primitive", "value": 2}]}`, []any{nil, 2.0}},
		{"missing value", `{"type": "primitive"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Encoded
			require.NoError(t, json.Unmarshal([]byte(tt.in), &e))
			got := Decode(e)
			assert.Equal(t, tt.want, got.Value)
			assert.Nil(t, got.Option)
		})
	}
}

func TestDecode_BadBufferKeepsOption(t *testing.T) {
	var e Encoded
	require.NoError(t, json.Unmarshal([]byte(`{"type":"buffer","buf":"AAEC#","option":{"expire":5}}`), &e))
	got := Decode(e)
	require.Nil(t, got.Value)
	require.Equal(t, &SetOption{Expire: 5}, got.Option)
}

func TestDecode_FractionalExpire(t *testing.T) {
	var e Encoded
	require.NoError(t, json.Unmarshal([]byte(`{"type":"primitive","value":"v","option":{"expire":1704067200000.5}}`), &e))
	got := Decode(e)
	require.Equal(t, "v", got.Value)
	require.Equal(t, &SetOption{Expire: 1704067200000}, got.Option)
}

func TestDecode_InvalidDate(t *testing.T) {
	var e Encoded
	require.NoError(t, json.Unmarshal([]byte(`{"type":"date","date":"yesterday","option":{"expire":3}}`), &e))
	got := Decode(e)
	require.Equal(t, InvalidDate{Raw: "yesterday"}, got.Value)
	require.Equal(t, &SetOption{Expire: 3}, got.Option)

	// The sentinel writes back the text it was read from.
	again, err := Encode(got.Value, got.Option)
	require.NoError(t, err)
	require.Equal(t, "yesterday", again.Date)
}

func TestDecode_DateForms(t *testing.T) {
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-01T00:00:00Z", "2024-01-01T00:00:00.000Z", "2024-01-01T01:00:00+01:00", "2024-01-01"} {
		got, ok := ParseDate(s).(time.Time)
		require.True(t, ok, s)
		require.True(t, want.Equal(got), s)
	}

	local, ok := ParseDate("2024-01-01T00:00:00").(time.Time)
	require.True(t, ok)
	require.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local).Equal(local))
	require.Equal(t, time.UTC, local.Location())
}

func TestUnknownEntryIsPreserved(t *testing.T) {
	in := `{"type":"regexp","source":"a+"}`
	var e Encoded
	require.NoError(t, json.Unmarshal([]byte(in), &e))
	require.Equal(t, KindUnknown, e.Kind)
	require.False(t, e.Absent())

	out, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, in, string(out))

	var null Encoded
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))
	require.True(t, null.Absent())
}
