// Package share encodes a read-only projection of one profile into a compact
// URL-safe token and decodes it back. Photos and identifiers never leave the
// device through a token.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"sizes/pkg/domain"
)

// MaxTokenLength bounds both produced and accepted tokens.
const MaxTokenLength = 16 * 1024

var (
	// ErrInvalidLink is returned for any token that cannot be decoded into a
	// complete payload. It wraps domain.ErrInvalidFormat.
	ErrInvalidLink = fmt.Errorf("invalid share link: %w", domain.ErrInvalidFormat)
	// ErrTokenTooLong is returned when an encoded profile exceeds MaxTokenLength.
	ErrTokenTooLong = errors.New("share token exceeds maximum length")
)

var encoding = base64.RawURLEncoding

// Payload is the shared projection of a profile.
type Payload struct {
	Name   string             `json:"n"`
	Type   domain.ProfileType `json:"t"`
	Color  domain.Color       `json:"c"`
	Brands []Brand            `json:"b"`
}

// Brand is a shared brand with its sizes.
type Brand struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
	Sizes []Size `json:"sizes"`
}

// Size is a shared size without photo or notes.
type Size struct {
	Category domain.Category `json:"category"`
	Size     string          `json:"size"`
	Fit      domain.Fit      `json:"fit"`
}

// Project builds the payload for profile from a read-only view. Brands and
// sizes keep the view's ordering.
func Project(view domain.TransactionView, profile domain.Profile) Payload {
	payload := Payload{
		Name:   profile.Name,
		Type:   profile.Type,
		Color:  profile.Color,
		Brands: []Brand{},
	}
	for _, b := range view.ListBrandsByProfile(profile.ID) {
		brand := Brand{Name: b.Name, Notes: b.Notes, Sizes: []Size{}}
		for _, s := range view.ListSizesByBrand(b.ID) {
			brand.Sizes = append(brand.Sizes, Size{Category: s.Category, Size: s.Value, Fit: s.Fit})
		}
		payload.Brands = append(payload.Brands, brand)
	}
	return payload
}

// Encode serializes payload into a base64url token without padding.
func Encode(payload Payload) (string, error) {
	if payload.Brands == nil {
		payload.Brands = []Brand{}
	}
	for i := range payload.Brands {
		if payload.Brands[i].Sizes == nil {
			payload.Brands[i].Sizes = []Size{}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	token := encoding.EncodeToString(raw)
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}
	return token, nil
}

type wirePayload struct {
	Name    *string            `json:"n"`
	Type    domain.ProfileType `json:"t"`
	Color   domain.Color       `json:"c"`
	Brands  *[]Brand           `json:"b"`
	IsChild bool               `json:"isChild"`
}

// Decode reverses Encode. Every failure collapses into ErrInvalidLink and no
// partial payload is returned.
func Decode(token string) (Payload, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > MaxTokenLength {
		return Payload{}, ErrInvalidLink
	}
	raw, err := encoding.DecodeString(token)
	if err != nil {
		return Payload{}, ErrInvalidLink
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	var wire wirePayload
	if err := dec.Decode(&wire); err != nil {
		return Payload{}, ErrInvalidLink
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, ErrInvalidLink
	}
	if wire.Name == nil || wire.Brands == nil {
		return Payload{}, ErrInvalidLink
	}
	out := Payload{
		Name:   *wire.Name,
		Type:   wire.Type,
		Color:  wire.Color,
		Brands: make([]Brand, 0, len(*wire.Brands)),
	}
	if out.Type == "" {
		out.Type = domain.ProfileTypeMan
		if wire.IsChild {
			out.Type = domain.ProfileTypeChild
		}
	}
	for _, b := range *wire.Brands {
		sizes := make([]Size, len(b.Sizes))
		copy(sizes, b.Sizes)
		out.Brands = append(out.Brands, Brand{Name: b.Name, Notes: b.Notes, Sizes: sizes})
	}
	return out, nil
}

// Link joins a public base URL and a token into a share route.
func Link(base, token string) string {
	return strings.TrimRight(base, "/") + "/share/" + token
}
