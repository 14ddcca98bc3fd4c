package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null{}, `null`},
		{"int", Int(-42), `-42`},
		{"bool", Bool(false), `false`},
		{"sorted object", Object{"b": Int(1), "a": Int(2)}, `{"a":2,"b":1}`},
		{"array", Array{String("x"), Int(1)}, `["x",1]`},
		{"no html escape", String("<a&b>"), `"<a&b>"`},
		{"line separator literal", String("a\u2028b"), "\"a\u2028b\""},
		{"control chars", String("a\nb\x01"), `"a\nb\u0001"`},
		{"quote and backslash", String(`"\`), `"\"\\"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := String("e\u0301")
	composed := String("\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonical_RejectsInvalidUTF8(t *testing.T) {
	for name, in := range map[string]Value{
		"string":     String("a\xffb"),
		"nested":     Array{Object{"k": String("\xc3")}},
		"object key": Object{"bad\xfe": Int(1)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(in)
			assert.ErrorIs(t, err, ErrInvalidUTF8)

			_, err = DigestValue("slotgraph/test/v1", in)
			assert.ErrorIs(t, err, ErrInvalidUTF8)
		})
	}
}

func TestMarshalCanonical_RoundTripsDigest(t *testing.T) {
	in := Object{"name": String("caf\u00e9 \u2603"), "tags": Array{String("\U0001F600")}}

	data, err := MarshalCanonical(in)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)

	want, err := DigestValue("slotgraph/test/v1", in)
	require.NoError(t, err)
	got, err := DigestValue("slotgraph/test/v1", back)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUnmarshal(t *testing.T) {
	v, err := Unmarshal([]byte(`{"a":[1,"x",null],"b":true}`))
	require.NoError(t, err)
	assert.Equal(t, Object{"a": Array{Int(1), String("x"), Null{}}, "b": Bool(true)}, v)

	_, err = Unmarshal([]byte(`1.5`))
	assert.Error(t, err)

	big, err := Unmarshal([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, Int(9007199254740993), big, "no float64 precision loss")
}

func TestDigest_DomainSeparated(t *testing.T) {
	a := Digest("slotgraph/a/v1", []byte("x"))
	b := Digest("slotgraph/b/v1", []byte("x"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	d1, err := DigestValue("d", Object{"x": Int(1), "y": Int(2)})
	require.NoError(t, err)
	d2, err := DigestValue("d", Object{"y": Int(2), "x": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
