// Package codec converts track payloads between raw bytes and their textual
// storage form (standard padded base64).
//
// RawBytes and EncodedText are distinct types with no conversion between
// them: Encode only accepts RawBytes and EncodedText can only be built by
// Encode or by ParseEncoded, which validates its input. A payload therefore
// cannot be encoded twice or stored without encoding.
package codec

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/adamokeah/shamzam/internal/errors"
)

// RawBytes is an opaque audio payload exactly as supplied by a caller.
type RawBytes []byte

// EncodedText is the canonical textual form of a RawBytes value.
// The zero value is the encoding of an empty payload.
type EncodedText struct {
	text string
}

var encoding = base64.StdEncoding

// Encode returns the canonical text form of raw. It never fails.
func Encode(raw RawBytes) EncodedText {
	return EncodedText{text: encoding.EncodeToString(raw)}
}

// Decode returns the bytes that text encodes.
func Decode(text EncodedText) (RawBytes, error) {
	raw, err := encoding.DecodeString(text.text)
	if err != nil {
		// unreachable for values built by Encode or ParseEncoded
		return nil, malformed(err, len(text.text))
	}
	if raw == nil {
		raw = RawBytes{}
	}
	return raw, nil
}

// ParseEncoded validates s as canonical encoded text. It rejects anything
// Encode could not have produced: invalid alphabet, wrong padding, embedded
// line breaks or whitespace.
func ParseEncoded(s string) (EncodedText, error) {
	raw, err := encoding.Strict().DecodeString(s)
	if err != nil {
		return EncodedText{}, malformed(err, len(s))
	}
	if encoding.EncodeToString(raw) != s {
		return EncodedText{}, malformed(errors.NewStd("text is not in canonical form"), len(s))
	}
	return EncodedText{text: s}, nil
}

// MustParseEncoded is ParseEncoded for literals in tests and fixtures.
func MustParseEncoded(s string) EncodedText {
	t, err := ParseEncoded(s)
	if err != nil {
		panic(err)
	}
	return t
}

func malformed(err error, length int) error {
	return errors.New(fmt.Errorf("malformed encoded payload: %w", err)).
		Component("codec").
		Category(errors.CategoryMalformedEncoding).
		Context("length", length).
		Build()
}

// String returns the encoded text.
func (t EncodedText) String() string {
	return t.text
}

// Len returns the length of the encoded text in bytes.
func (t EncodedText) Len() int {
	return len(t.text)
}

// DecodedLen returns the number of raw bytes t encodes.
func (t EncodedText) DecodedLen() int {
	if t.text == "" {
		return 0
	}
	n := len(t.text) / 4 * 3
	switch {
	case t.text[len(t.text)-2] == '=':
		n -= 2
	case t.text[len(t.text)-1] == '=':
		n--
	}
	return n
}

// Equal reports whether two encoded values are identical.
func (t EncodedText) Equal(other EncodedText) bool {
	return t.text == other.text
}

// Value implements driver.Valuer.
func (t EncodedText) Value() (driver.Value, error) {
	return t.text, nil
}

// Scan implements sql.Scanner. Stored text is validated, so a corrupted
// column surfaces as a malformed-encoding error on read.
func (t *EncodedText) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		s = ""
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return malformed(fmt.Errorf("unsupported column type %T", src), 0)
	}
	parsed, err := ParseEncoded(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// GormDataType maps EncodedText to gorm's string type: TEXT on SQLite,
// LONGTEXT on MySQL.
func (EncodedText) GormDataType() string {
	return "string"
}

// MarshalJSON implements json.Marshaler.
func (t EncodedText) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.text)
}

// UnmarshalJSON implements json.Unmarshaler and validates the text.
func (t *EncodedText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return malformed(err, len(data))
	}
	parsed, err := ParseEncoded(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
