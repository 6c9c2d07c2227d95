// Package domain defines the persistent entities, value types, and
// rule evaluation primitives used by the sizes store.
package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// EntityType identifies the type of record stored in the domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence tables.
const (
	// EntityProfile identifies a tracked person.
	EntityProfile EntityType = "profile"
	// EntityBrand identifies a clothing brand scoped to one profile.
	EntityBrand EntityType = "brand"
	// EntitySize identifies one recorded size under a brand.
	EntitySize EntityType = "size"
)

// ProfileType is the canonical person kind. Legacy records that only carry
// the boolean isChild flag are normalized into this enum when decoded.
type ProfileType string

// Canonical profile types.
const (
	// ProfileTypeMan is an adult male profile.
	ProfileTypeMan ProfileType = "man"
	// ProfileTypeWoman is an adult female profile.
	ProfileTypeWoman ProfileType = "woman"
	// ProfileTypeChild is a child profile subject to growth reminders.
	ProfileTypeChild ProfileType = "child"
)

// DefaultProfileType is applied when a profile is created without a type.
const DefaultProfileType = ProfileTypeMan

// Valid reports whether t is one of the canonical profile types.
func (t ProfileType) Valid() bool {
	switch t {
	case ProfileTypeMan, ProfileTypeWoman, ProfileTypeChild:
		return true
	}
	return false
}

// Color is one entry of the fixed profile palette.
type Color string

// Profile palette.
const (
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorCyan   Color = "cyan"
)

// DefaultColor is applied when a profile is created without a color.
const DefaultColor = ColorBlue

// Colors returns the palette in display order.
func Colors() []Color {
	return []Color{ColorBlue, ColorPurple, ColorPink, ColorGreen, ColorOrange, ColorCyan}
}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	for _, candidate := range Colors() {
		if c == candidate {
			return true
		}
	}
	return false
}

// Category groups sizes by garment kind.
type Category string

// Garment categories.
const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryShoes       Category = "shoes"
	CategoryOuterwear   Category = "outerwear"
	CategoryAccessories Category = "accessories"
)

// Categories returns the categories in display order.
func Categories() []Category {
	return []Category{CategoryTops, CategoryBottoms, CategoryShoes, CategoryOuterwear, CategoryAccessories}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, candidate := range Categories() {
		if c == candidate {
			return true
		}
	}
	return false
}

// Fit records how a size fits relative to the label.
type Fit string

// Fit options.
const (
	FitSmall  Fit = "small"
	FitNormal Fit = "normal"
	FitLarge  Fit = "large"
)

// DefaultFit is applied when a size is created without a fit.
const DefaultFit = FitNormal

// Valid reports whether f is a known fit.
func (f Fit) Valid() bool {
	switch f {
	case FitSmall, FitNormal, FitLarge:
		return true
	}
	return false
}

// Profile represents a person whose clothing sizes are recorded.
type Profile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Avatar    string      `json:"avatar"`
	Color     Color       `json:"color"`
	Type      ProfileType `json:"type"`
	Height    *float64    `json:"height"`
	Weight    *float64    `json:"weight"`
	BirthDate *string     `json:"birthDate"`
	LastCheck *time.Time  `json:"lastCheck"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Extra     Extra       `json:"-"`
}

// IsChild reports whether the profile is a child profile.
func (p Profile) IsChild() bool { return p.Type == ProfileTypeChild }

// ApplyDefaults fills unset fields with their creation defaults.
func (p *Profile) ApplyDefaults() {
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if p.Type == "" {
		p.Type = DefaultProfileType
	}
	if p.Avatar == "" {
		p.Avatar = AvatarFor(p.Name)
	}
}

// AvatarFor returns the upper-cased first letter of name.
func AvatarFor(name string) string {
	name = strings.TrimSpace(name)
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// Brand groups sizes for one profile.
type Brand struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profileId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	Extra     Extra     `json:"-"`
}

// Size is one recorded size entry under a brand.
type Size struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brandId"`
	Category  Category  `json:"category"`
	Value     string    `json:"size"`
	Fit       Fit       `json:"fit"`
	Notes     string    `json:"notes"`
	Photo     *string   `json:"photo"`
	CreatedAt time.Time `json:"createdAt"`
	Extra     Extra     `json:"-"`
}

// ApplyDefaults fills unset fields with their creation defaults.
func (s *Size) ApplyDefaults() {
	if s.Fit == "" {
		s.Fit = DefaultFit
	}
	if s.Photo != nil && *s.Photo == "" {
		s.Photo = nil
	}
}

// Counts summarizes collection sizes.
type Counts struct {
	Profiles int `json:"profiles"`
	Brands   int `json:"brands"`
	Sizes    int `json:"sizes"`
}

// NeedsSizeReview reports whether a child profile's sizes have not been
// reviewed for more than three months as of now.
func NeedsSizeReview(p Profile, now time.Time) bool {
	if !p.IsChild() || p.LastCheck == nil {
		return false
	}
	return p.LastCheck.Before(now.AddDate(0, -3, 0))
}
