package tabular

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Supported encodings
const (
	EncodingAuto        = "auto"
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF16       = "utf-16"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
	EncodingLatin1      = "latin1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode converts raw bytes to text and names the encoding it used. A UTF-8 byte order
// mark is kept in the text so normalization logs its removal.
func decode(data []byte, declared string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(declared)) {
	case "", EncodingAuto:
		return decodeAuto(data)
	case EncodingUTF8, "utf8":
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("file is not valid UTF-8")
		}
		if bytes.HasPrefix(data, bomUTF8) {
			return string(data), EncodingUTF8BOM, nil
		}
		return string(data), EncodingUTF8, nil
	case EncodingUTF16, "utf16":
		// Little-endian unless a BOM says otherwise, which is what Excel writes.
		dec := &encoding.Decoder{Transformer: unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())}
		return transform(dec, data, EncodingUTF16)
	case EncodingWindows1252, "cp1252":
		return transform(charmap.Windows1252.NewDecoder(), data, EncodingWindows1252)
	case EncodingLatin1, "iso-8859-1":
		return transform(charmap.ISO8859_1.NewDecoder(), data, EncodingLatin1)
	default:
		return "", "", fmt.Errorf("unsupported encoding %q", declared)
	}
}

func decodeAuto(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("file has a UTF-8 byte order mark but is not valid UTF-8")
		}
		return string(data), EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return transform(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), data, EncodingUTF16LE)
	case bytes.HasPrefix(data, bomUTF16BE):
		return transform(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), data, EncodingUTF16BE)
	case utf8.Valid(data):
		return string(data), EncodingUTF8, nil
	default:
		return "", "", fmt.Errorf("file is not valid UTF-8 and has no byte order mark; declare its encoding")
	}
}

func transform(dec *encoding.Decoder, data []byte, name string) (string, string, error) {
	out, err := dec.Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	if !utf8.Valid(out) {
		return "", "", fmt.Errorf("decode %s: produced invalid text", name)
	}
	return string(out), name, nil
}
