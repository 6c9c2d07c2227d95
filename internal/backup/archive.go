package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sizes/internal/blob/core"
	"sizes/pkg/domain"
)

// Prefix is the blob key prefix under which archives are stored.
const Prefix = "backups/"

const maxNameAttempts = 100

// Entry describes one archived document.
type Entry struct {
	Key       string        `json:"key"`
	SizeBytes int64         `json:"sizeBytes"`
	SavedAt   time.Time     `json:"savedAt"`
	Counts    domain.Counts `json:"counts"`
}

// Archive stores export documents in a blob store.
type Archive struct {
	store core.Store
	now   func() time.Time
}

// NewArchive wraps store. A nil now uses the wall clock.
func NewArchive(store core.Store, now func() time.Time) *Archive {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Archive{store: store, now: now}
}

// Save writes doc under a dated key. A second backup on the same day gets a
// numeric suffix rather than replacing the first.
func (a *Archive) Save(ctx context.Context, doc Document) (Entry, error) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		return Entry{}, err
	}
	counts := doc.Counts()
	opts := core.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"profiles": strconv.Itoa(counts.Profiles),
			"brands":   strconv.Itoa(counts.Brands),
			"sizes":    strconv.Itoa(counts.Sizes),
		},
	}
	base := strings.TrimSuffix(FileName(a.now()), ".json")
	for attempt := 1; attempt <= maxNameAttempts; attempt++ {
		key := Prefix + base + ".json"
		if attempt > 1 {
			key = fmt.Sprintf("%s%s-%d.json", Prefix, base, attempt)
		}
		info, err := a.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), opts)
		if errors.Is(err, core.ErrExists) {
			continue
		}
		if err != nil {
			return Entry{}, fmt.Errorf("save backup: %w", err)
		}
		return Entry{Key: info.Key, SizeBytes: info.Size, SavedAt: info.LastModified, Counts: counts}, nil
	}
	return Entry{}, fmt.Errorf("save backup: no free name for %s", base)
}

// List returns archived documents, newest first by the save sequence encoded
// in the key. Counts missing from a listing are read with Head, then from the
// document itself.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	infos, err := a.store.List(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		counts, err := a.counts(ctx, info)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Key:       info.Key,
			SizeBytes: info.Size,
			SavedAt:   info.LastModified,
			Counts:    counts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func (a *Archive) counts(ctx context.Context, info core.Info) (domain.Counts, error) {
	if _, ok := info.Metadata["profiles"]; !ok {
		head, err := a.store.Head(ctx, info.Key)
		if err != nil {
			return domain.Counts{}, fmt.Errorf("stat backup %q: %w", info.Key, err)
		}
		info.Metadata = head.Metadata
	}
	if _, ok := info.Metadata["profiles"]; ok {
		return domain.Counts{
			Profiles: atoi(info.Metadata["profiles"]),
			Brands:   atoi(info.Metadata["brands"]),
			Sizes:    atoi(info.Metadata["sizes"]),
		}, nil
	}
	doc, err := a.Load(ctx, info.Key)
	if err != nil {
		return domain.Counts{}, err
	}
	return doc.Counts(), nil
}

// saveOrder extracts the save date and same-day sequence from an archive
// key. The first backup of a day has sequence 1.
func saveOrder(key string) (date string, seq int, ok bool) {
	name := strings.TrimPrefix(key, Prefix)
	if !strings.HasPrefix(name, fileNamePrefix) || !strings.HasSuffix(name, ".json") {
		return "", 0, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, fileNamePrefix), ".json")
	if len(rest) < len(dateLayout) {
		return "", 0, false
	}
	date, rest = rest[:len(dateLayout)], rest[len(dateLayout):]
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", 0, false
	}
	if rest == "" {
		return date, 1, true
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
	if !strings.HasPrefix(rest, "-") || err != nil || n < 2 {
		return "", 0, false
	}
	return date, n, true
}

// newer orders archives with recognised keys by save sequence, ahead of any
// other objects under the prefix, which fall back to modification time.
func newer(a, b Entry) bool {
	da, sa, okA := saveOrder(a.Key)
	db, sb, okB := saveOrder(b.Key)
	switch {
	case okA && okB:
		if da != db {
			return da > db
		}
		return sa > sb
	case okA != okB:
		return okA
	}
	if !a.SavedAt.Equal(b.SavedAt) {
		return a.SavedAt.After(b.SavedAt)
	}
	return a.Key > b.Key
}

// Load reads and parses an archived document.
func (a *Archive) Load(ctx context.Context, key string) (Document, error) {
	key = withPrefix(key)
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Document{}, fmt.Errorf("backup %q: %w", key, domain.ErrNotFound)
		}
		return Document{}, fmt.Errorf("load backup: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return ParseDocument(rc)
}

// URL returns a download link for an existing archive when the driver
// supports one, and core.ErrUnsupported otherwise.
func (a *Archive) URL(ctx context.Context, key string) (string, error) {
	key = withPrefix(key)
	if _, err := a.store.Head(ctx, key); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", fmt.Errorf("backup %q: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("stat backup: %w", err)
	}
	return a.store.PresignURL(ctx, key, core.SignedURLOptions{})
}

// Prune keeps the newest keep archives and deletes the rest, returning the
// removed keys.
func (a *Archive) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("prune backups: keep must not be negative: %w", domain.ErrValidation)
	}
	entries, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, e := range entries[min(keep, len(entries)):] {
		if _, err := a.store.Delete(ctx, e.Key); err != nil {
			return removed, fmt.Errorf("prune backups: %w", err)
		}
		removed = append(removed, e.Key)
	}
	return removed, nil
}

func withPrefix(key string) string {
	if strings.HasPrefix(key, Prefix) {
		return key
	}
	return Prefix + key
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
