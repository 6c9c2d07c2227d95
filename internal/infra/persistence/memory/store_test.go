package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sizes/pkg/domain"
)

func fixedClock() func() time.Time {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func seed(t *testing.T, store *Store) (domain.Profile, domain.Brand, domain.Size) {
	t.Helper()
	var (
		profile domain.Profile
		brand   domain.Brand
		size    domain.Size
	)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if profile, err = tx.CreateProfile(domain.Profile{Name: "alex"}); err != nil {
			return err
		}
		if brand, err = tx.CreateBrand(domain.Brand{ProfileID: profile.ID, Name: "Zara"}); err != nil {
			return err
		}
		size, err = tx.CreateSize(domain.Size{BrandID: brand.ID, Category: domain.CategoryTops, Value: "128"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return profile, brand, size
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	profile, brand, size := seed(t, store)

	if profile.ID == "" || brand.ID == "" || size.ID == "" {
		t.Fatalf("expected generated ids")
	}
	if profile.Avatar != "A" || profile.Color != domain.ColorBlue || profile.Type != domain.ProfileTypeMan {
		t.Fatalf("expected profile defaults, got %+v", profile)
	}
	if profile.LastCheck == nil || !profile.LastCheck.Equal(profile.CreatedAt) {
		t.Fatalf("expected lastCheck at creation time")
	}
	if size.Fit != domain.FitNormal {
		t.Fatalf("expected default fit, got %q", size.Fit)
	}

	got, ok := store.GetProfile(profile.ID)
	if !ok || got.Name != "alex" {
		t.Fatalf("expected stored profile, got %+v", got)
	}

	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListProfiles()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListProfiles()) != 1 || len(store.ListSizesByBrand(brand.ID)) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
}

func TestStoreReturnsDetachedCopies(t *testing.T) {
	store := NewStore(nil)
	profile, _, _ := seed(t, store)
	h := 120.0
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateProfile(profile.ID, func(p *domain.Profile) error {
			p.Height = &h
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.GetProfile(profile.ID)
	*got.Height = 999
	again, _ := store.GetProfile(profile.ID)
	if *again.Height != 120 {
		t.Fatalf("mutation leaked into store: %v", *again.Height)
	}
}

func TestCreateRequiresExistingParent(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateBrand(domain.Brand{ProfileID: "missing", Name: "Zara"})
		return err
	})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntityProfile {
		t.Fatalf("expected profile not found, got %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateSize(domain.Size{BrandID: "missing", Category: domain.CategoryTops, Value: "M"})
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteProfileCascadesChildFirst(t *testing.T) {
	var recorded []domain.Change
	store := NewStore(nil, WithCommitHook(func(_ context.Context, changes []domain.Change, _ domain.TransactionView) error {
		recorded = append([]domain.Change(nil), changes...)
		return nil
	}))
	profile, brand, size := seed(t, store)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteProfile(profile.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.GetBrand(brand.ID); ok {
		t.Fatalf("brand survived cascade")
	}
	if _, ok := store.GetSize(size.ID); ok {
		t.Fatalf("size survived cascade")
	}
	if len(store.ListBrandsByProfile(profile.ID)) != 0 || len(store.ListSizesByBrand(brand.ID)) != 0 {
		t.Fatalf("indexes not cleaned")
	}
	want := []domain.EntityType{domain.EntitySize, domain.EntityBrand, domain.EntityProfile}
	if len(recorded) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(recorded))
	}
	for i, entity := range want {
		if recorded[i].Entity != entity || recorded[i].Action != domain.ActionDelete {
			t.Fatalf("change %d: got %s %s", i, recorded[i].Action, recorded[i].Entity)
		}
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	for name, fn := range map[string]func(domain.Transaction) error{
		"profile": func(tx domain.Transaction) error { return tx.DeleteProfile("nope") },
		"brand":   func(tx domain.Transaction) error { return tx.DeleteBrand("nope") },
		"size":    func(tx domain.Transaction) error { return tx.DeleteSize("nope") },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := store.RunInTransaction(context.Background(), fn)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestFailedTransactionLeavesStateUntouched(t *testing.T) {
	store := NewStore(nil)
	profile, brand, _ := seed(t, store)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.DeleteProfile(profile.ID); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := store.GetProfile(profile.ID); !ok {
		t.Fatalf("profile removed despite failure")
	}
	if len(store.ListSizesByBrand(brand.ID)) != 1 {
		t.Fatalf("sizes removed despite failure")
	}
}

func TestCommitHookFailureAbortsCommit(t *testing.T) {
	failing := errors.New("disk full")
	store := NewStore(nil, WithCommitHook(func(context.Context, []domain.Change, domain.TransactionView) error {
		return failing
	}))
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProfile(domain.Profile{Name: "Ana"})
		return err
	})
	if !errors.Is(err, failing) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if len(store.ListProfiles()) != 0 {
		t.Fatalf("state changed despite hook failure")
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateProfile(domain.Profile{Name: "Fail"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListProfiles()) != 0 {
		t.Fatalf("blocked transaction committed")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(context.Context, domain.TransactionView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}}, nil
}

func TestUpdateBrandReparenting(t *testing.T) {
	store := NewStore(nil)
	profile, brand, _ := seed(t, store)
	var other domain.Profile
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		other, err = tx.CreateProfile(domain.Profile{Name: "Bea"})
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateBrand(brand.ID, func(b *domain.Brand) error {
			b.ProfileID = "ghost"
			return nil
		})
		return err
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing new parent, got %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateBrand(brand.ID, func(b *domain.Brand) error {
			b.ProfileID = other.ID
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("reparent: %v", err)
	}
	if len(store.ListBrandsByProfile(profile.ID)) != 0 {
		t.Fatalf("old index still lists brand")
	}
	if got := store.ListBrandsByProfile(other.ID); len(got) != 1 || got[0].ID != brand.ID {
		t.Fatalf("new index missing brand: %+v", got)
	}
}

func TestUpdateKeepsIdentityAndCreation(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	profile, _, _ := seed(t, store)
	updated := profile
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProfile(profile.ID, func(p *domain.Profile) error {
			p.ID = "hijack"
			p.Name = "Alexandra"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != profile.ID || !updated.CreatedAt.Equal(profile.CreatedAt) {
		t.Fatalf("identity changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(profile.UpdatedAt) {
		t.Fatalf("expected updatedAt to advance")
	}
	if _, ok := store.GetProfile("hijack"); ok {
		t.Fatalf("id was rewritten")
	}
}

func TestReplaceSwapsEverything(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Replace(
			[]domain.Profile{{ID: "p1", Name: "Neo"}},
			[]domain.Brand{{ID: "b1", ProfileID: "p1", Name: "Uniqlo"}, {ID: "b2", ProfileID: "gone", Name: "Orphan"}},
			nil,
		)
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	profiles := store.ListProfiles()
	if len(profiles) != 1 || profiles[0].ID != "p1" || profiles[0].Type != domain.ProfileTypeMan {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
	if _, ok := store.GetBrand("b2"); !ok {
		t.Fatalf("orphan brand should be accepted on replace")
	}
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	store := NewStore(nil)
	profile, _, _ := seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Replace([]domain.Profile{{ID: "p1", Name: "a"}, {ID: "p1", Name: "b"}}, nil, nil)
	})
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if _, ok := store.GetProfile(profile.ID); !ok {
		t.Fatalf("state replaced despite failure")
	}
}

func TestListOrderingIsStable(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b"} {
		name := name
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreateProfile(domain.Profile{Name: name})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	got := store.ListProfiles()
	if got[0].Name != "c" || got[1].Name != "a" || got[2].Name != "b" {
		t.Fatalf("expected creation order, got %v %v %v", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestMigrateSnapshotNormalizes(t *testing.T) {
	snap := migrateSnapshot(Snapshot{
		Profiles: map[string]domain.Profile{"p": {Name: "x"}},
		Sizes:    map[string]domain.Size{"s": {BrandID: "b"}},
	})
	if snap.Brands == nil {
		t.Fatalf("expected brands map")
	}
	if p := snap.Profiles["p"]; p.ID != "p" || p.Type != domain.DefaultProfileType {
		t.Fatalf("profile not normalized: %+v", p)
	}
	if s := snap.Sizes["s"]; s.ID != "s" || s.Fit != domain.DefaultFit {
		t.Fatalf("size not normalized: %+v", s)
	}
}

func TestPreferences(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if err := store.SavePreference(ctx, "language", "en"); err != nil {
		t.Fatalf("save: %v", err)
	}
	prefs, err := store.LoadPreferences(ctx)
	if err != nil || prefs["language"] != "en" {
		t.Fatalf("unexpected prefs %v %v", prefs, err)
	}
	prefs["language"] = "es"
	again, _ := store.LoadPreferences(ctx)
	if again["language"] != "en" {
		t.Fatalf("preferences map leaked")
	}
}
