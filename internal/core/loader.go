package core

// loader.go reads catalogue exports from disk and decodes them to text.
//
// Exports come from older Windows installs as often as from current ones,
// so a file is either UTF-8 or Latin-1. UTF-8 is tried first; any invalid
// sequence switches the whole file to Latin-1, which maps every byte to a
// rune and therefore never fails.

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names the text encoding a file was decoded with.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadText reads the file at path and returns its decoded contents.
// I/O errors are returned; decoding itself cannot fail.
func LoadText(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read export: %w", err)
	}
	text, enc, err := DecodeText(data)
	if err != nil {
		return "", "", fmt.Errorf("decode export %s: %w", path, err)
	}
	return text, enc, nil
}

// DecodeText decodes raw export bytes, preferring UTF-8 and falling back
// to Latin-1. A leading UTF-8 byte order mark is dropped.
func DecodeText(data []byte) (string, Encoding, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(decoded), EncodingLatin1, nil
}
