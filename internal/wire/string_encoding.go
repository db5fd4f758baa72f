package wire

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// StringEncoding selects the byte encoding used for length-prefixed strings,
// negotiated per connection via the DefineOperationalModes encoding bits.
type StringEncoding int

const (
	// UTF16LE is .NET's default "Unicode" encoding.
	UTF16LE StringEncoding = iota
	// UTF16BE is .NET's "BigEndianUnicode" encoding.
	UTF16BE
	// UTF8 is GEP's default encoding.
	UTF8
	// ANSI encodes each rune as a single byte, truncating to the low 8 bits.
	// It exists only to round-trip legacy peers; non-Latin1 runes lose data.
	ANSI
)

// EncodeString renders s into the byte encoding enc.
func EncodeString(s string, enc StringEncoding) []byte {
	switch enc {
	case UTF8:
		return []byte(s)
	case ANSI:
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out
	case UTF16LE, UTF16BE:
		units := utf16.Encode([]rune(s))
		out := make([]byte, len(units)*2)
		for i, u := range units {
			if enc == UTF16LE {
				out[2*i] = byte(u)
				out[2*i+1] = byte(u >> 8)
			} else {
				out[2*i] = byte(u >> 8)
				out[2*i+1] = byte(u)
			}
		}
		return out
	default:
		return []byte(s)
	}
}

// DecodeString parses b, encoded per enc, into a UTF-8 Go string.
func DecodeString(b []byte, enc StringEncoding) (string, error) {
	switch enc {
	case UTF8:
		if !utf8.Valid(b) {
			return "", fmt.Errorf("wire: invalid UTF-8 string payload")
		}
		return string(b), nil
	case ANSI:
		runes := make([]rune, len(b))
		for i, c := range b {
			runes[i] = rune(c)
		}
		return string(runes), nil
	case UTF16LE, UTF16BE:
		if len(b)%2 != 0 {
			return "", fmt.Errorf("wire: UTF-16 string payload has odd length %d", len(b))
		}
		units := make([]uint16, len(b)/2)
		for i := range units {
			if enc == UTF16LE {
				units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
			} else {
				units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
			}
		}
		return string(utf16.Decode(units)), nil
	default:
		return "", fmt.Errorf("wire: unknown string encoding %d", enc)
	}
}

// EncodingFromOperationalModes derives the negotiated StringEncoding from
// the DefineOperationalModes bitfield's EncodingMask bits (§6).
func EncodingFromOperationalModes(modes uint32) StringEncoding {
	switch modes & EncodingMask {
	case OperationalEncodingUnicode:
		return UTF16LE
	case OperationalEncodingBigEndianUnicode:
		return UTF16BE
	case OperationalEncodingANSI:
		return ANSI
	default:
		return UTF8
	}
}
