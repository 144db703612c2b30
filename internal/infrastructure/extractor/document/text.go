package document

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// decodeText transcodes data to UTF-8. A BOM or the charset parameter of the
// declared type wins; otherwise valid UTF-8 is taken as is and only other
// bytes go through content sniffing.
func decodeText(data []byte, declaredType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if !hasBOM(data) && declaredCharset(declaredType) == "" && utf8.Valid(data) {
		return string(data), nil
	}

	enc, name, _ := charset.DetermineEncoding(data, declaredType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s text: %w", name, err)
	}

	text := strings.TrimPrefix(string(out), "\ufeff")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return text, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xef, 0xbb, 0xbf}) ||
		bytes.HasPrefix(data, []byte{0xfe, 0xff}) ||
		bytes.HasPrefix(data, []byte{0xff, 0xfe})
}

func declaredCharset(declaredType string) string {
	if declaredType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(declaredType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
