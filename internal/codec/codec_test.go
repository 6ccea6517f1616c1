package codec

import (
	"crypto/rand"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamokeah/shamzam/internal/errors"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  RawBytes
	}{
		{"empty", RawBytes{}},
		{"nil", nil},
		{"one byte", RawBytes{0x00}},
		{"two bytes", RawBytes{0xff, 0xfe}},
		{"ascii", RawBytes("AAAA")},
		{"random", RawBytes(random)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text := Encode(tt.raw)
			got, err := Decode(text)
			require.NoError(t, err)
			assert.Len(t, got, len(tt.raw))
			if len(tt.raw) > 0 {
				assert.Equal(t, tt.raw, got)
			}
			assert.Equal(t, len(tt.raw), text.DecodedLen())
		})
	}
}

func TestEncodeKnownValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Encode(RawBytes{}).String())
	assert.Equal(t, "QUFBQQ==", Encode(RawBytes("AAAA")).String())
	assert.Equal(t, "AP8=", Encode(RawBytes{0x00, 0xff}).String())
}

func TestEncodeInjective(t *testing.T) {
	t.Parallel()

	a := Encode(RawBytes("a"))
	b := Encode(RawBytes("b"))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(Encode(RawBytes("a"))))
}

func TestParseEncoded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"canonical", "QUFBQQ==", true},
		{"empty", "", true},
		{"missing padding", "QUFBQQ", false},
		{"non-canonical trailing bits", "QUFBQR==", false},
		{"url alphabet", "__8=", false},
		{"embedded newline", "QUFB\nQQ==", false},
		{"embedded space", "QUFB QQ==", false},
		{"not base64", "hello world!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEncoded(tt.input)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.input, got.String())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsMalformedEncoding(err))
		})
	}
}

// The two representations must not be interchangeable without Encode/Decode.
func TestTypesAreDistinct(t *testing.T) {
	t.Parallel()

	rawType := reflect.TypeFor[RawBytes]()
	textType := reflect.TypeFor[EncodedText]()

	assert.False(t, textType.ConvertibleTo(rawType))
	assert.False(t, rawType.ConvertibleTo(textType))
	assert.False(t, reflect.TypeFor[string]().ConvertibleTo(textType))

	encode := reflect.TypeOf(Encode)
	assert.Equal(t, rawType, encode.In(0))
	assert.Equal(t, textType, encode.Out(0))
}

func TestScan(t *testing.T) {
	t.Parallel()

	var text EncodedText
	require.NoError(t, text.Scan("QUFBQQ=="))
	raw, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, RawBytes("AAAA"), raw)

	require.NoError(t, text.Scan([]byte("AP8=")))
	assert.Equal(t, "AP8=", text.String())

	err = text.Scan("not base64!")
	assert.True(t, errors.IsMalformedEncoding(err))

	err = text.Scan(42)
	assert.True(t, errors.IsMalformedEncoding(err))

	v, err := Encode(RawBytes("AAAA")).Value()
	require.NoError(t, err)
	assert.Equal(t, "QUFBQQ==", v)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Payload EncodedText `json:"payload"`
	}

	data, err := json.Marshal(body{Payload: Encode(RawBytes("AAAA"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"payload":"QUFBQQ=="}`, string(data))

	var decoded body
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "QUFBQQ==", decoded.Payload.String())

	err = json.Unmarshal([]byte(`{"payload":"%%%"}`), &decoded)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedEncoding(err))
}

func TestMustParseEncodedPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParseEncoded("!") })
	assert.Equal(t, "QUFBQQ==", MustParseEncoded("QUFBQQ==").String())
}
