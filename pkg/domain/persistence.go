package domain

import "context"

// TransactionView provides read-only access to store state for rules,
// snapshots, and share projections.
type TransactionView interface {
	ListProfiles() []Profile
	ListBrands() []Brand
	ListSizes() []Size
	FindProfile(id string) (Profile, bool)
	FindBrand(id string) (Brand, bool)
	FindSize(id string) (Size, bool)
	// ListBrandsByProfile is served from the profileId index.
	ListBrandsByProfile(profileID string) []Brand
	// ListSizesByBrand is served from the brandId index.
	ListSizesByBrand(brandID string) []Size
	Counts() Counts
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateProfile(Profile) (Profile, error)
	UpdateProfile(id string, mutator func(*Profile) error) (Profile, error)
	DeleteProfile(id string) error
	CreateBrand(Brand) (Brand, error)
	UpdateBrand(id string, mutator func(*Brand) error) (Brand, error)
	DeleteBrand(id string) error
	CreateSize(Size) (Size, error)
	UpdateSize(id string, mutator func(*Size) error) (Size, error)
	DeleteSize(id string) error
	// Replace discards every record and inserts the supplied collections verbatim.
	Replace(profiles []Profile, brands []Brand, sizes []Size) error
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProfile(id string) (Profile, bool)
	GetBrand(id string) (Brand, bool)
	GetSize(id string) (Size, bool)
	ListProfiles() []Profile
	ListBrandsByProfile(profileID string) []Brand
	ListSizesByBrand(brandID string) []Size
}

// PreferenceStore persists small key/value preferences next to the entities.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (map[string]string, error)
	SavePreference(ctx context.Context, key, value string) error
}
