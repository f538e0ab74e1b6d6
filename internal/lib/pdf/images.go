package pdf

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var errEmptyImage = errors.New("empty image")

// imageType maps sniffed image bytes to the fpdf image type name.
func imageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyImage
	}
	switch mt := mimetype.Detect(data); {
	case mt.Is("image/png"):
		return "PNG", nil
	case mt.Is("image/jpeg"):
		return "JPG", nil
	case mt.Is("image/gif"):
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %s", mt.String())
	}
}

// decodeDataURL decodes a base64 image, with or without a
// "data:image/png;base64," prefix.
func decodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyImage
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, errors.New("malformed data url")
		}
		s = s[comma+1:]
	}

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	return data, nil
}
