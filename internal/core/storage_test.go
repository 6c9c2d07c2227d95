package core

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"sizes/internal/config"
	"sizes/pkg/domain"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, closeFn, err := OpenPersistentStore(config.StorageConfig{Driver: string(StorageMemory)}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeFn() }()
	svc := NewService(store)
	mustProfile(t, svc, domain.Profile{Name: "Ana"})
	if len(store.ListProfiles()) != 1 {
		t.Fatalf("expected profile in backend")
	}
}

func TestOpenPersistentStoreSQLiteReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.db")
	cfg := config.StorageConfig{Driver: string(StorageSQLite), SQLitePath: path}
	store, closeFn, err := OpenPersistentStore(cfg, NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	svc := NewService(store)
	p := mustProfile(t, svc, domain.Profile{Name: "Ana"})
	if err := store.SavePreference(context.Background(), "theme", "dark"); err != nil {
		t.Fatalf("save pref: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, closeAgain, err := OpenPersistentStore(cfg, NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = closeAgain() }()
	if _, ok := reopened.GetProfile(p.ID); !ok {
		t.Fatalf("profile not persisted")
	}
	prefs, err := reopened.LoadPreferences(context.Background())
	if err != nil || prefs["theme"] != "dark" {
		t.Fatalf("preferences not persisted: %v %v", prefs, err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	_, _, err := OpenPersistentStore(config.StorageConfig{Driver: "postgres"}, nil)
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}
