package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Nullable distinguishes an absent member from an explicit null in a
// partial update. Set is true whenever the member was present.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableOf returns a present, non-null value.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a present, explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// UnmarshalJSON marks the member as present and decodes its value.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON encodes the value or null.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n Nullable[T]) apply(dst **T) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	*dst = &v
}

// ProfilePatch is a shallow partial update; nil members are left untouched.
type ProfilePatch struct {
	Name      *string           `json:"name,omitempty"`
	Avatar    *string           `json:"avatar,omitempty"`
	Color     *Color            `json:"color,omitempty"`
	Type      *ProfileType      `json:"type,omitempty"`
	Height    Nullable[float64] `json:"height"`
	Weight    Nullable[float64] `json:"weight"`
	BirthDate Nullable[string]  `json:"birthDate"`
	LastCheck *time.Time        `json:"lastCheck,omitempty"`
}

// Apply merges the patch into p.
func (patch ProfilePatch) Apply(p *Profile) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	patch.Height.apply(&p.Height)
	patch.Weight.apply(&p.Weight)
	patch.BirthDate.apply(&p.BirthDate)
	if patch.LastCheck != nil {
		t := *patch.LastCheck
		p.LastCheck = &t
	}
}

// BrandPatch is a shallow partial update of a brand.
type BrandPatch struct {
	ProfileID *string `json:"profileId,omitempty"`
	Name      *string `json:"name,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Apply merges the patch into b.
func (patch BrandPatch) Apply(b *Brand) {
	if patch.ProfileID != nil {
		b.ProfileID = *patch.ProfileID
	}
	if patch.Name != nil {
		b.Name = *patch.Name
	}
	if patch.Notes != nil {
		b.Notes = *patch.Notes
	}
}

// SizePatch is a shallow partial update of a size.
type SizePatch struct {
	BrandID  *string          `json:"brandId,omitempty"`
	Category *Category        `json:"category,omitempty"`
	Value    *string          `json:"size,omitempty"`
	Fit      *Fit             `json:"fit,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	Photo    Nullable[string] `json:"photo"`
}

// Apply merges the patch into s.
func (patch SizePatch) Apply(s *Size) {
	if patch.BrandID != nil {
		s.BrandID = *patch.BrandID
	}
	if patch.Category != nil {
		s.Category = *patch.Category
	}
	if patch.Value != nil {
		s.Value = *patch.Value
	}
	if patch.Fit != nil {
		s.Fit = *patch.Fit
	}
	if patch.Notes != nil {
		s.Notes = *patch.Notes
	}
	patch.Photo.apply(&s.Photo)
}
