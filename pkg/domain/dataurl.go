package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ParseImageDataURL splits a data:image/<type>;base64,<payload> URL into its
// media type and decoded bytes. The payload must be non-empty.
func ParseImageDataURL(dataURL string) (mediaType string, raw []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("missing payload")
	}
	mediaType, ok = strings.CutSuffix(header, ";base64")
	if !ok || !strings.HasPrefix(mediaType, "image/") || len(mediaType) == len("image/") {
		return "", nil, fmt.Errorf("unsupported header %q", header)
	}
	raw, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	if len(raw) == 0 {
		return "", nil, errors.New("empty payload")
	}
	return mediaType, raw, nil
}
