// Package photo turns uploaded label pictures into the compact inline data
// URLs stored on sizes.
package photo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/disintegration/imaging"

	"sizes/pkg/domain"
)

const (
	// MaxDimension bounds the longer side of a normalized photo.
	MaxDimension = 800
	// Quality is the JPEG quality used for normalized photos.
	Quality = 70
	// MediaType is the media type of every normalized photo.
	MediaType = "image/jpeg"
)

// ErrInvalidPhoto reports input that is not a usable image. It wraps
// domain.ErrValidation.
var ErrInvalidPhoto = fmt.Errorf("invalid photo: %w", domain.ErrValidation)

// Normalize decodes any supported image from r, shrinks it to fit within
// MaxDimension on both sides and returns it as a JPEG data URL. Smaller
// images keep their dimensions.
func Normalize(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(Quality)); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}
	return "data:" + MediaType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Validate accepts only base64 image data URLs.
func Validate(dataURL string) error {
	_, _, err := Decode(dataURL)
	return err
}

// Decode splits an image data URL into its media type and raw bytes.
func Decode(dataURL string) (string, []byte, error) {
	mediaType, raw, err := domain.ParseImageDataURL(dataURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	return mediaType, raw, nil
}
