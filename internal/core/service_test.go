package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"sizes/pkg/domain"
	"sizes/pkg/share"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewInMemoryService(NewRulesEngine(), opts...)
}

func mustProfile(t *testing.T, svc *Service, p domain.Profile) domain.Profile {
	t.Helper()
	created, _, err := svc.CreateProfile(context.Background(), p)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return created
}

func mustBrand(t *testing.T, svc *Service, b domain.Brand) domain.Brand {
	t.Helper()
	created, _, err := svc.CreateBrand(context.Background(), b)
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	return created
}

func mustSize(t *testing.T, svc *Service, s domain.Size) domain.Size {
	t.Helper()
	created, _, err := svc.CreateSize(context.Background(), s)
	if err != nil {
		t.Fatalf("create size: %v", err)
	}
	return created
}

func TestCreateThenGetReturnsDefaults(t *testing.T) {
	svc := newTestService(t)
	profile := mustProfile(t, svc, domain.Profile{Name: "alex", ID: "ignored"})
	if profile.ID == "ignored" || profile.ID == "" {
		t.Fatalf("expected fresh id, got %q", profile.ID)
	}
	got, ok := svc.GetProfile(profile.ID)
	if !ok || !reflect.DeepEqual(got, profile) {
		t.Fatalf("get mismatch:\n got %+v\nwant %+v", got, profile)
	}
	if got.Avatar != "A" || got.Color != domain.ColorBlue || got.Type != domain.ProfileTypeMan || got.LastCheck == nil {
		t.Fatalf("missing defaults: %+v", got)
	}

	brand := mustBrand(t, svc, domain.Brand{ProfileID: profile.ID, Name: "Zara"})
	if b, ok := svc.GetBrand(brand.ID); !ok || !reflect.DeepEqual(b, brand) || b.Notes != "" {
		t.Fatalf("brand mismatch %+v", b)
	}
	size := mustSize(t, svc, domain.Size{BrandID: brand.ID, Category: domain.CategoryShoes, Value: "38", Photo: strPtr("")})
	if sz, ok := svc.GetSize(size.ID); !ok || !reflect.DeepEqual(sz, size) || sz.Fit != domain.FitNormal || sz.Photo != nil {
		t.Fatalf("size mismatch %+v", sz)
	}
	if _, ok := svc.GetSize("missing"); ok {
		t.Fatalf("expected absent size")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.CreateProfile(ctx, domain.Profile{Name: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := svc.CreateProfile(ctx, domain.Profile{Name: "x", Color: "red"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected color validation error, got %v", err)
	}
	if _, _, err := svc.CreateBrand(ctx, domain.Brand{ProfileID: "ghost", Name: "Zara"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	p := mustProfile(t, svc, domain.Profile{Name: "x"})
	b := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: "Zara"})
	if _, _, err := svc.CreateSize(ctx, domain.Size{BrandID: b.ID, Category: "hats", Value: "M"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected category validation error, got %v", err)
	}
	if _, _, err := svc.CreateSize(ctx, domain.Size{BrandID: b.ID, Category: domain.CategoryTops, Value: "M", Photo: strPtr("http://x/y.png")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected photo validation error, got %v", err)
	}
}

func TestDeleteProfileCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Ana"})
	keep := mustProfile(t, svc, domain.Profile{Name: "Bea"})
	keepBrand := mustBrand(t, svc, domain.Brand{ProfileID: keep.ID, Name: "Mango"})
	mustSize(t, svc, domain.Size{BrandID: keepBrand.ID, Category: domain.CategoryTops, Value: "S"})
	var brandIDs []string
	for _, name := range []string{"Zara", "H&M", "Uniqlo"} {
		b := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: name})
		brandIDs = append(brandIDs, b.ID)
		for _, v := range []string{"S", "M"} {
			mustSize(t, svc, domain.Size{BrandID: b.ID, Category: domain.CategoryTops, Value: v})
		}
	}

	if _, err := svc.DeleteProfile(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.ListBrandsByProfile(p.ID)) != 0 {
		t.Fatalf("brands remain")
	}
	for _, id := range brandIDs {
		if len(svc.ListSizesByBrand(id)) != 0 {
			t.Fatalf("sizes remain under %s", id)
		}
	}
	if len(svc.ListSizesByBrand(keepBrand.ID)) != 1 {
		t.Fatalf("unrelated data removed")
	}
	if _, err := svc.DeleteProfile(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestGenericDeleteResolvesKind(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Ana"})
	b := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: "Zara"})
	s := mustSize(t, svc, domain.Size{BrandID: b.ID, Category: domain.CategoryTops, Value: "S"})
	s2 := mustSize(t, svc, domain.Size{BrandID: b.ID, Category: domain.CategoryTops, Value: "M"})

	if _, err := svc.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete size: %v", err)
	}
	if _, ok := svc.GetSize(s2.ID); !ok {
		t.Fatalf("sibling size removed")
	}
	if _, err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete brand: %v", err)
	}
	if _, ok := svc.GetSize(s2.ID); ok {
		t.Fatalf("brand delete did not cascade")
	}
	if _, ok := svc.GetProfile(p.ID); !ok {
		t.Fatalf("profile removed by brand delete")
	}
	if _, err := svc.Delete(ctx, "nothing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateIsShallowMerge(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Leo", Type: domain.ProfileTypeChild, Color: domain.ColorOrange, Height: floatPtr(120), Weight: floatPtr(22), BirthDate: strPtr("2017-03-02")})

	updated, _, err := svc.UpdateProfile(ctx, p.ID, domain.ProfilePatch{Height: domain.NullableOf(126.5)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if *updated.Height != 126.5 {
		t.Fatalf("height not updated")
	}
	want := p
	want.Height = floatPtr(126.5)
	want.UpdatedAt = updated.UpdatedAt
	if !reflect.DeepEqual(updated, want) {
		t.Fatalf("other fields changed:\n got %+v\nwant %+v", updated, want)
	}

	cleared, _, err := svc.UpdateProfile(ctx, p.ID, domain.ProfilePatch{Weight: domain.Null[float64]()})
	if err != nil {
		t.Fatalf("clear weight: %v", err)
	}
	if cleared.Weight != nil || cleared.Height == nil {
		t.Fatalf("expected only weight cleared, got %+v", cleared)
	}

	if _, _, err := svc.UpdateProfile(ctx, "ghost", domain.ProfilePatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	bad := domain.Color("red")
	if _, _, err := svc.UpdateProfile(ctx, p.ID, domain.ProfilePatch{Color: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := svc.GetProfile(p.ID); got.Color != domain.ColorOrange {
		t.Fatalf("rejected update leaked: %s", got.Color)
	}
}

func TestUpdateReparentRequiresTarget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Ana"})
	b := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: "Zara"})
	s := mustSize(t, svc, domain.Size{BrandID: b.ID, Category: domain.CategoryTops, Value: "S", Notes: "snug"})

	if _, _, err := svc.UpdateSize(ctx, s.ID, domain.SizePatch{BrandID: strPtr("ghost")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	other := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: "Nike"})
	moved, _, err := svc.UpdateSize(ctx, s.ID, domain.SizePatch{BrandID: &other.ID})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Notes != "snug" || moved.Value != "S" {
		t.Fatalf("fields lost on move: %+v", moved)
	}
	if len(svc.ListSizesByBrand(other.ID)) != 1 || len(svc.ListSizesByBrand(b.ID)) != 0 {
		t.Fatalf("indexes not updated on move")
	}
	renamed, _, err := svc.UpdateBrand(ctx, b.ID, domain.BrandPatch{Notes: strPtr("runs small")})
	if err != nil || renamed.Name != "Zara" || renamed.Notes != "runs small" {
		t.Fatalf("brand update: %+v %v", renamed, err)
	}
}

func TestSearchBrands(t *testing.T) {
	svc := newTestService(t)
	p := mustProfile(t, svc, domain.Profile{Name: "Ana"})
	other := mustProfile(t, svc, domain.Profile{Name: "Bea"})
	for _, name := range []string{"Zara", "Zara Home", "Nike"} {
		mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: name})
	}
	mustBrand(t, svc, domain.Brand{ProfileID: other.ID, Name: "ZARA kids"})

	if got := svc.SearchBrands(p.ID, "zAr"); len(got) != 2 {
		t.Fatalf("expected two matches, got %d", len(got))
	}
	if got := svc.SearchBrands(p.ID, ""); len(got) != 3 {
		t.Fatalf("empty query should list all, got %d", len(got))
	}
	if got := svc.SearchBrands(p.ID, " home"); len(got) != 1 || got[0].Name != "Zara Home" {
		t.Fatalf("spaces are part of the query, got %+v", got)
	}
	if got := svc.SearchBrands(p.ID, "zara "); len(got) != 1 {
		t.Fatalf("trailing space should only match Zara Home, got %+v", got)
	}
	if got := svc.SearchBrands(p.ID, "  "); len(got) != 0 {
		t.Fatalf("whitespace query should match nothing, got %+v", got)
	}
	if got := svc.SearchBrands(p.ID, "adidas"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestShareScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alex := mustProfile(t, svc, domain.Profile{Name: "Alex", Type: domain.ProfileTypeChild})
	zara := mustBrand(t, svc, domain.Brand{ProfileID: alex.ID, Name: "Zara"})
	mustSize(t, svc, domain.Size{BrandID: zara.ID, Category: domain.CategoryTops, Value: "128", Fit: domain.FitNormal, Photo: strPtr("data:image/jpeg;base64,/9j/4AAQ")})

	token, err := svc.ShareToken(ctx, alex.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	payload, err := share.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Name != "Alex" || payload.Type != domain.ProfileTypeChild || payload.Color != domain.ColorBlue {
		t.Fatalf("unexpected header %+v", payload)
	}
	if len(payload.Brands) != 1 || payload.Brands[0].Name != "Zara" {
		t.Fatalf("unexpected brands %+v", payload.Brands)
	}
	sizes := payload.Brands[0].Sizes
	if len(sizes) != 1 || sizes[0] != (share.Size{Category: domain.CategoryTops, Size: "128", Fit: domain.FitNormal}) {
		t.Fatalf("unexpected sizes %+v", sizes)
	}

	truncated := token[:len(token)-4]
	if _, err := share.Decode(truncated); !errors.Is(err, share.ErrInvalidLink) {
		t.Fatalf("expected invalid link for truncated token, got %v", err)
	}
	if _, err := svc.ShareToken(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExportImportIdempotent(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Ñandú ✨", Type: domain.ProfileTypeWoman, Extra: domain.Extra{"nickname": []byte(`"ñ"`)}})
	b := mustBrand(t, svc, domain.Brand{ProfileID: p.ID, Name: "Mango"})
	mustSize(t, svc, domain.Size{BrandID: b.ID, Category: domain.CategoryBottoms, Value: "38", Photo: strPtr("data:image/png;base64,iVBORw==")})

	before, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if before.Version != 1 || !before.ExportedAt.Equal(now) {
		t.Fatalf("unexpected header %+v", before)
	}
	counts, err := svc.Import(ctx, before)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if counts != (domain.Counts{Profiles: 1, Brands: 1, Sizes: 1}) {
		t.Fatalf("unexpected counts %+v", counts)
	}
	after, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("export again: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round trip changed data:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestImportFailureLeavesStoreUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProfile(t, svc, domain.Profile{Name: "Keep"})
	doc, _ := svc.Export(ctx)
	doc.Profiles = append(doc.Profiles, doc.Profiles[0])

	if _, err := svc.Import(ctx, doc); !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected invalid format, got %v", err)
	}
	if _, ok := svc.GetProfile(p.ID); !ok || len(svc.ListProfiles()) != 1 {
		t.Fatalf("store changed after failed import")
	}
}

func TestImportReplacesEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	old := mustProfile(t, svc, domain.Profile{Name: "Old"})
	donor := newTestService(t)
	np := mustProfile(t, donor, domain.Profile{Name: "New"})
	doc, _ := donor.Export(ctx)

	if _, err := svc.Import(ctx, doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, ok := svc.GetProfile(old.ID); ok {
		t.Fatalf("old profile survived import")
	}
	if _, ok := svc.GetProfile(np.ID); !ok {
		t.Fatalf("imported profile missing")
	}
}

func TestProfilesNeedingReview(t *testing.T) {
	clock := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	svc := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	kid := mustProfile(t, svc, domain.Profile{Name: "Kid", Type: domain.ProfileTypeChild})
	mustProfile(t, svc, domain.Profile{Name: "Adult"})

	clock = clock.AddDate(0, 3, 1)
	due := svc.ProfilesNeedingReview()
	if len(due) != 1 || due[0].ID != kid.ID {
		t.Fatalf("expected kid to need review, got %+v", due)
	}
	checked, err := svc.MarkProfileChecked(ctx, kid.ID)
	if err != nil {
		t.Fatalf("mark checked: %v", err)
	}
	if !checked.LastCheck.Equal(clock) {
		t.Fatalf("expected lastCheck %v, got %v", clock, checked.LastCheck)
	}
	if len(svc.ProfilesNeedingReview()) != 0 {
		t.Fatalf("expected no reviews after check")
	}
}
