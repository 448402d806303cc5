package textio

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Encoding names the charset a file was decoded with.
type Encoding string

const (
	UTF8 Encoding = "utf-8"
	GBK  Encoding = "gbk"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as a string, treating it as UTF-8 when valid and
// falling back to GBK otherwise.
func Decode(data []byte) (string, Encoding, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), UTF8, nil
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("decode as gbk: %w", err)
	}
	return string(out), GBK, nil
}

// ReadFile reads and decodes a text file.
func ReadFile(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return text, enc, nil
}
