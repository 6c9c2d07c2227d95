// Package backup defines the full-dataset export document and an archive of
// saved documents on top of a blob store.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"sizes/pkg/domain"
)

// Version is written into every exported document.
const Version = 1

// Document is the full export of the entity store.
type Document struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Profiles   []domain.Profile `json:"profiles"`
	Brands     []domain.Brand   `json:"brands"`
	Sizes      []domain.Size    `json:"sizes"`
}

// Counts reports the number of records per collection.
func (d Document) Counts() domain.Counts {
	return domain.Counts{Profiles: len(d.Profiles), Brands: len(d.Brands), Sizes: len(d.Sizes)}
}

type wireDocument struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Profiles   *[]domain.Profile `json:"profiles"`
	Brands     *[]domain.Brand   `json:"brands"`
	Sizes      *[]domain.Size    `json:"sizes"`
}

// ParseDocument decodes a document. Bodies that are not JSON, or that lack
// any of the three collections, fail with domain.ErrInvalidFormat. The
// version number is not checked.
func ParseDocument(r io.Reader) (Document, error) {
	var wire wireDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	var missing []error
	if wire.Profiles == nil {
		missing = append(missing, errors.New("profiles array required"))
	}
	if wire.Brands == nil {
		missing = append(missing, errors.New("brands array required"))
	}
	if wire.Sizes == nil {
		missing = append(missing, errors.New("sizes array required"))
	}
	if len(missing) > 0 {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, errors.Join(missing...))
	}
	return Document{
		Version:    wire.Version,
		ExportedAt: wire.ExportedAt,
		Profiles:   *wire.Profiles,
		Brands:     *wire.Brands,
		Sizes:      *wire.Sizes,
	}, nil
}

// ParseDocumentBytes is ParseDocument over an in-memory body.
func ParseDocumentBytes(b []byte) (Document, error) {
	return ParseDocument(bytes.NewReader(b))
}

// WriteDocument writes doc as two-space indented JSON.
func WriteDocument(w io.Writer, doc Document) error {
	if doc.Profiles == nil {
		doc.Profiles = []domain.Profile{}
	}
	if doc.Brands == nil {
		doc.Brands = []domain.Brand{}
	}
	if doc.Sizes == nil {
		doc.Sizes = []domain.Size{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// FileName returns the download name for a backup taken at t.
func FileName(t time.Time) string {
	return fileNamePrefix + t.Format(dateLayout) + ".json"
}

const (
	fileNamePrefix = "sizes-backup-"
	dateLayout     = "2006-01-02"
)
