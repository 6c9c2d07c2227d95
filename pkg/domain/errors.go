package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes surfaced by the store, bulk transfer, and share codec.
var (
	// ErrNotFound reports an operation that referenced a nonexistent id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFormat reports a malformed import document or share token.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrValidation reports input rejected before it reached the store.
	ErrValidation = errors.New("validation rejected")
)

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError identifies the rejected field.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// Validate checks the fields a profile must carry before it is stored.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError{Entity: EntityProfile, Field: "name", Reason: "required"}
	}
	if !p.Color.Valid() {
		return ValidationError{Entity: EntityProfile, Field: "color", Reason: fmt.Sprintf("unknown color %q", p.Color)}
	}
	if !p.Type.Valid() {
		return ValidationError{Entity: EntityProfile, Field: "type", Reason: fmt.Sprintf("unknown type %q", p.Type)}
	}
	if p.Height != nil && *p.Height < 0 {
		return ValidationError{Entity: EntityProfile, Field: "height", Reason: "must not be negative"}
	}
	if p.Weight != nil && *p.Weight < 0 {
		return ValidationError{Entity: EntityProfile, Field: "weight", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the fields a brand must carry before it is stored.
func (b Brand) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ValidationError{Entity: EntityBrand, Field: "name", Reason: "required"}
	}
	if b.ProfileID == "" {
		return ValidationError{Entity: EntityBrand, Field: "profileId", Reason: "required"}
	}
	return nil
}

// Validate checks the fields a size must carry before it is stored.
func (s Size) Validate() error {
	if s.BrandID == "" {
		return ValidationError{Entity: EntitySize, Field: "brandId", Reason: "required"}
	}
	if !s.Category.Valid() {
		return ValidationError{Entity: EntitySize, Field: "category", Reason: fmt.Sprintf("unknown category %q", s.Category)}
	}
	if strings.TrimSpace(s.Value) == "" {
		return ValidationError{Entity: EntitySize, Field: "size", Reason: "required"}
	}
	if !s.Fit.Valid() {
		return ValidationError{Entity: EntitySize, Field: "fit", Reason: fmt.Sprintf("unknown fit %q", s.Fit)}
	}
	if s.Photo != nil {
		if _, _, err := ParseImageDataURL(*s.Photo); err != nil {
			return ValidationError{Entity: EntitySize, Field: "photo", Reason: "must be a base64 image data URL: " + err.Error()}
		}
	}
	return nil
}
