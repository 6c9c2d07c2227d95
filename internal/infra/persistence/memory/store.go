// Package memory provides the in-memory implementation of the persistence
// store. It is used directly for tests and ephemeral sessions and as the
// transactional core beneath the durable backends.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sizes/internal/ident"
	"sizes/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Profile aliases domain.Profile.
	Profile = domain.Profile
	// Brand aliases domain.Brand.
	Brand = domain.Brand
	// Size aliases domain.Size.
	Size = domain.Size
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// CommitHook makes a transaction durable before it becomes visible. It runs
// while the store lock is held; an error aborts the commit.
type CommitHook func(ctx context.Context, changes []Change, next TransactionView) error

type idSet map[string]struct{}

type memoryState struct {
	profiles        map[string]Profile
	brands          map[string]Brand
	sizes           map[string]Size
	brandsByProfile map[string]idSet
	sizesByBrand    map[string]idSet
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Profiles map[string]Profile `json:"profiles"`
	Brands   map[string]Brand   `json:"brands"`
	Sizes    map[string]Size    `json:"sizes"`
}

func newMemoryState() memoryState {
	return memoryState{
		profiles:        make(map[string]Profile),
		brands:          make(map[string]Brand),
		sizes:           make(map[string]Size),
		brandsByProfile: make(map[string]idSet),
		sizesByBrand:    make(map[string]idSet),
	}
}

func (s *memoryState) indexBrand(b Brand) {
	set, ok := s.brandsByProfile[b.ProfileID]
	if !ok {
		set = make(idSet)
		s.brandsByProfile[b.ProfileID] = set
	}
	set[b.ID] = struct{}{}
}

func (s *memoryState) unindexBrand(b Brand) {
	if set, ok := s.brandsByProfile[b.ProfileID]; ok {
		delete(set, b.ID)
		if len(set) == 0 {
			delete(s.brandsByProfile, b.ProfileID)
		}
	}
}

func (s *memoryState) indexSize(sz Size) {
	set, ok := s.sizesByBrand[sz.BrandID]
	if !ok {
		set = make(idSet)
		s.sizesByBrand[sz.BrandID] = set
	}
	set[sz.ID] = struct{}{}
}

func (s *memoryState) unindexSize(sz Size) {
	if set, ok := s.sizesByBrand[sz.BrandID]; ok {
		delete(set, sz.ID)
		if len(set) == 0 {
			delete(s.sizesByBrand, sz.BrandID)
		}
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.profiles {
		cloned.profiles[k] = cloneProfile(v)
	}
	for k, v := range s.brands {
		cloned.brands[k] = cloneBrand(v)
	}
	for k, v := range s.sizes {
		cloned.sizes[k] = cloneSize(v)
	}
	for k, set := range s.brandsByProfile {
		cloned.brandsByProfile[k] = cloneSet(set)
	}
	for k, set := range s.sizesByBrand {
		cloned.sizesByBrand[k] = cloneSet(set)
	}
	return cloned
}

func cloneSet(in idSet) idSet {
	out := make(idSet, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Profiles: make(map[string]Profile, len(state.profiles)),
		Brands:   make(map[string]Brand, len(state.brands)),
		Sizes:    make(map[string]Size, len(state.sizes)),
	}
	for k, v := range state.profiles {
		s.Profiles[k] = cloneProfile(v)
	}
	for k, v := range state.brands {
		s.Brands[k] = cloneBrand(v)
	}
	for k, v := range state.sizes {
		s.Sizes[k] = cloneSize(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, v := range s.Profiles {
		state.profiles[v.ID] = cloneProfile(v)
	}
	for _, v := range s.Brands {
		state.brands[v.ID] = cloneBrand(v)
		state.indexBrand(v)
	}
	for _, v := range s.Sizes {
		state.sizes[v.ID] = cloneSize(v)
		state.indexSize(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from disk or built by callers:
// missing maps become empty, records keyed without an id adopt their key, and
// profiles that predate the type enum get the default type.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Profiles == nil {
		snapshot.Profiles = map[string]Profile{}
	}
	if snapshot.Brands == nil {
		snapshot.Brands = map[string]Brand{}
	}
	if snapshot.Sizes == nil {
		snapshot.Sizes = map[string]Size{}
	}
	for id, profile := range snapshot.Profiles {
		if profile.ID == "" {
			profile.ID = id
		}
		snapshot.Profiles[id] = normalizeProfile(profile)
	}
	for id, brand := range snapshot.Brands {
		if brand.ID == "" {
			brand.ID = id
			snapshot.Brands[id] = brand
		}
	}
	for id, size := range snapshot.Sizes {
		if size.ID == "" {
			size.ID = id
		}
		snapshot.Sizes[id] = normalizeSize(size)
	}
	return snapshot
}

// normalizeProfile and normalizeSize fill values older records may lack. Every
// path that loads records from outside the store goes through them.
func normalizeProfile(p Profile) Profile {
	if p.Type == "" {
		p.Type = domain.DefaultProfileType
	}
	return p
}

func normalizeSize(s Size) Size {
	if s.Fit == "" {
		s.Fit = domain.DefaultFit
	}
	return s
}

func cloneProfile(p Profile) Profile {
	cp := p
	if p.Height != nil {
		v := *p.Height
		cp.Height = &v
	}
	if p.Weight != nil {
		v := *p.Weight
		cp.Weight = &v
	}
	if p.BirthDate != nil {
		v := *p.BirthDate
		cp.BirthDate = &v
	}
	if p.LastCheck != nil {
		v := *p.LastCheck
		cp.LastCheck = &v
	}
	cp.Extra = p.Extra.Clone()
	return cp
}

func cloneBrand(b Brand) Brand {
	cp := b
	cp.Extra = b.Extra.Clone()
	return cp
}

func cloneSize(s Size) Size {
	cp := s
	if s.Photo != nil {
		v := *s.Photo
		cp.Photo = &v
	}
	cp.Extra = s.Extra.Clone()
	return cp
}

// sortProfiles orders by creation time then id so listings are stable.
func sortProfiles(out []Profile) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func sortBrands(out []Brand) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func sortSizes(out []Size) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

// Store provides an in-memory transactional store for the domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	idFn   func() string
	commit CommitHook
	prefs  map[string]string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.idFn = fn
		}
	}
}

// WithCommitHook installs a hook that must succeed before a transaction is applied.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.commit = hook }
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// A nil engine selects the default engine with referential integrity checks.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewDefaultRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		idFn:   ident.New,
		prefs:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot without
// running rules or the commit hook. Durable backends use it to hydrate.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListProfiles() []Profile {
	out := make([]Profile, 0, len(v.state.profiles))
	for _, p := range v.state.profiles {
		out = append(out, cloneProfile(p))
	}
	sortProfiles(out)
	return out
}

func (v transactionView) ListBrands() []Brand {
	out := make([]Brand, 0, len(v.state.brands))
	for _, b := range v.state.brands {
		out = append(out, cloneBrand(b))
	}
	sortBrands(out)
	return out
}

func (v transactionView) ListSizes() []Size {
	out := make([]Size, 0, len(v.state.sizes))
	for _, sz := range v.state.sizes {
		out = append(out, cloneSize(sz))
	}
	sortSizes(out)
	return out
}

func (v transactionView) FindProfile(id string) (Profile, bool) {
	p, ok := v.state.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return cloneProfile(p), true
}

func (v transactionView) FindBrand(id string) (Brand, bool) {
	b, ok := v.state.brands[id]
	if !ok {
		return Brand{}, false
	}
	return cloneBrand(b), true
}

func (v transactionView) FindSize(id string) (Size, bool) {
	sz, ok := v.state.sizes[id]
	if !ok {
		return Size{}, false
	}
	return cloneSize(sz), true
}

func (v transactionView) ListBrandsByProfile(profileID string) []Brand {
	set := v.state.brandsByProfile[profileID]
	out := make([]Brand, 0, len(set))
	for id := range set {
		out = append(out, cloneBrand(v.state.brands[id]))
	}
	sortBrands(out)
	return out
}

func (v transactionView) ListSizesByBrand(brandID string) []Size {
	set := v.state.sizesByBrand[brandID]
	out := make([]Size, 0, len(set))
	for id := range set {
		out = append(out, cloneSize(v.state.sizes[id]))
	}
	sortSizes(out)
	return out
}

func (v transactionView) Counts() domain.Counts {
	return domain.Counts{
		Profiles: len(v.state.profiles),
		Brands:   len(v.state.brands),
		Sizes:    len(v.state.sizes),
	}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn, the rules engine, and
// the commit hook all succeed; otherwise the store is left untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	view := newTransactionView(&tx.state)
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.commit != nil && len(tx.changes) > 0 {
		if err := s.commit(ctx, tx.changes, view); err != nil {
			return result, fmt.Errorf("commit: %w", err)
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only view of the committed state. The view
// must not be retained after fn returns.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newTransactionView(&s.state))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateProfile stores a new profile within the transaction.
func (tx *transaction) CreateProfile(p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = tx.store.idFn()
	}
	if _, exists := tx.state.profiles[p.ID]; exists {
		return Profile{}, fmt.Errorf("profile %q already exists", p.ID)
	}
	p.ApplyDefaults()
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	if p.LastCheck == nil {
		now := tx.now
		p.LastCheck = &now
	}
	tx.state.profiles[p.ID] = cloneProfile(p)
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionCreate, ID: p.ID, After: cloneProfile(p)})
	return cloneProfile(p), nil
}

// UpdateProfile mutates a profile using the provided mutator function.
func (tx *transaction) UpdateProfile(id string, mutator func(*Profile) error) (Profile, error) {
	current, ok := tx.state.profiles[id]
	if !ok {
		return Profile{}, domain.NotFoundError{Entity: domain.EntityProfile, ID: id}
	}
	before := cloneProfile(current)
	current = cloneProfile(current)
	if err := mutator(&current); err != nil {
		return Profile{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.profiles[id] = cloneProfile(current)
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionUpdate, ID: id, Before: before, After: cloneProfile(current)})
	return cloneProfile(current), nil
}

// DeleteProfile removes a profile after deleting its brands and their sizes,
// children first.
func (tx *transaction) DeleteProfile(id string) error {
	current, ok := tx.state.profiles[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProfile, ID: id}
	}
	for _, brand := range newTransactionView(&tx.state).ListBrandsByProfile(id) {
		if err := tx.DeleteBrand(brand.ID); err != nil {
			return fmt.Errorf("cascade profile %q: %w", id, err)
		}
	}
	delete(tx.state.profiles, id)
	tx.recordChange(Change{Entity: domain.EntityProfile, Action: domain.ActionDelete, ID: id, Before: cloneProfile(current)})
	return nil
}

// CreateBrand stores a new brand under an existing profile.
func (tx *transaction) CreateBrand(b Brand) (Brand, error) {
	if b.ID == "" {
		b.ID = tx.store.idFn()
	}
	if _, exists := tx.state.brands[b.ID]; exists {
		return Brand{}, fmt.Errorf("brand %q already exists", b.ID)
	}
	if b.ProfileID == "" {
		return Brand{}, errors.New("brand requires profile id")
	}
	if _, ok := tx.state.profiles[b.ProfileID]; !ok {
		return Brand{}, domain.NotFoundError{Entity: domain.EntityProfile, ID: b.ProfileID}
	}
	b.CreatedAt = tx.now
	tx.state.brands[b.ID] = cloneBrand(b)
	tx.state.indexBrand(b)
	tx.recordChange(Change{Entity: domain.EntityBrand, Action: domain.ActionCreate, ID: b.ID, After: cloneBrand(b)})
	return cloneBrand(b), nil
}

// UpdateBrand mutates an existing brand. Moving it to another profile
// requires that profile to exist.
func (tx *transaction) UpdateBrand(id string, mutator func(*Brand) error) (Brand, error) {
	current, ok := tx.state.brands[id]
	if !ok {
		return Brand{}, domain.NotFoundError{Entity: domain.EntityBrand, ID: id}
	}
	before := cloneBrand(current)
	current = cloneBrand(current)
	if err := mutator(&current); err != nil {
		return Brand{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if current.ProfileID != before.ProfileID {
		if _, ok := tx.state.profiles[current.ProfileID]; !ok {
			return Brand{}, domain.NotFoundError{Entity: domain.EntityProfile, ID: current.ProfileID}
		}
	}
	tx.state.unindexBrand(before)
	tx.state.brands[id] = cloneBrand(current)
	tx.state.indexBrand(current)
	tx.recordChange(Change{Entity: domain.EntityBrand, Action: domain.ActionUpdate, ID: id, Before: before, After: cloneBrand(current)})
	return cloneBrand(current), nil
}

// DeleteBrand removes a brand after deleting its sizes.
func (tx *transaction) DeleteBrand(id string) error {
	current, ok := tx.state.brands[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityBrand, ID: id}
	}
	for _, size := range newTransactionView(&tx.state).ListSizesByBrand(id) {
		if err := tx.DeleteSize(size.ID); err != nil {
			return fmt.Errorf("cascade brand %q: %w", id, err)
		}
	}
	tx.state.unindexBrand(current)
	delete(tx.state.brands, id)
	tx.recordChange(Change{Entity: domain.EntityBrand, Action: domain.ActionDelete, ID: id, Before: cloneBrand(current)})
	return nil
}

// CreateSize stores a new size under an existing brand.
func (tx *transaction) CreateSize(sz Size) (Size, error) {
	if sz.ID == "" {
		sz.ID = tx.store.idFn()
	}
	if _, exists := tx.state.sizes[sz.ID]; exists {
		return Size{}, fmt.Errorf("size %q already exists", sz.ID)
	}
	if sz.BrandID == "" {
		return Size{}, errors.New("size requires brand id")
	}
	if _, ok := tx.state.brands[sz.BrandID]; !ok {
		return Size{}, domain.NotFoundError{Entity: domain.EntityBrand, ID: sz.BrandID}
	}
	sz.ApplyDefaults()
	sz.CreatedAt = tx.now
	tx.state.sizes[sz.ID] = cloneSize(sz)
	tx.state.indexSize(sz)
	tx.recordChange(Change{Entity: domain.EntitySize, Action: domain.ActionCreate, ID: sz.ID, After: cloneSize(sz)})
	return cloneSize(sz), nil
}

// UpdateSize mutates an existing size.
func (tx *transaction) UpdateSize(id string, mutator func(*Size) error) (Size, error) {
	current, ok := tx.state.sizes[id]
	if !ok {
		return Size{}, domain.NotFoundError{Entity: domain.EntitySize, ID: id}
	}
	before := cloneSize(current)
	current = cloneSize(current)
	if err := mutator(&current); err != nil {
		return Size{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	if current.BrandID != before.BrandID {
		if _, ok := tx.state.brands[current.BrandID]; !ok {
			return Size{}, domain.NotFoundError{Entity: domain.EntityBrand, ID: current.BrandID}
		}
	}
	tx.state.unindexSize(before)
	tx.state.sizes[id] = cloneSize(current)
	tx.state.indexSize(current)
	tx.recordChange(Change{Entity: domain.EntitySize, Action: domain.ActionUpdate, ID: id, Before: before, After: cloneSize(current)})
	return cloneSize(current), nil
}

// DeleteSize removes a size.
func (tx *transaction) DeleteSize(id string) error {
	current, ok := tx.state.sizes[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntitySize, ID: id}
	}
	tx.state.unindexSize(current)
	delete(tx.state.sizes, id)
	tx.recordChange(Change{Entity: domain.EntitySize, Action: domain.ActionDelete, ID: id, Before: cloneSize(current)})
	return nil
}

// Replace discards the transactional state and inserts the supplied records
// verbatim. References between them are not validated. Duplicate or empty
// ids fail the whole transaction.
func (tx *transaction) Replace(profiles []Profile, brands []Brand, sizes []Size) error {
	next := newMemoryState()
	for i, p := range profiles {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("profiles[%d]: %w: missing id", i, domain.ErrInvalidFormat)
		}
		if _, dup := next.profiles[p.ID]; dup {
			return fmt.Errorf("profiles[%d]: %w: duplicate id %q", i, domain.ErrInvalidFormat, p.ID)
		}
		next.profiles[p.ID] = cloneProfile(normalizeProfile(p))
	}
	for i, b := range brands {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("brands[%d]: %w: missing id", i, domain.ErrInvalidFormat)
		}
		if _, dup := next.brands[b.ID]; dup {
			return fmt.Errorf("brands[%d]: %w: duplicate id %q", i, domain.ErrInvalidFormat, b.ID)
		}
		next.brands[b.ID] = cloneBrand(b)
		next.indexBrand(b)
	}
	for i, sz := range sizes {
		if strings.TrimSpace(sz.ID) == "" {
			return fmt.Errorf("sizes[%d]: %w: missing id", i, domain.ErrInvalidFormat)
		}
		if _, dup := next.sizes[sz.ID]; dup {
			return fmt.Errorf("sizes[%d]: %w: duplicate id %q", i, domain.ErrInvalidFormat, sz.ID)
		}
		sz = normalizeSize(sz)
		next.sizes[sz.ID] = cloneSize(sz)
		next.indexSize(sz)
	}
	tx.state = next
	tx.recordChange(Change{Entity: "", Action: domain.ActionReplace})
	return nil
}

// GetProfile returns a profile by id.
func (s *Store) GetProfile(id string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindProfile(id)
}

// GetBrand returns a brand by id.
func (s *Store) GetBrand(id string) (Brand, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindBrand(id)
}

// GetSize returns a size by id.
func (s *Store) GetSize(id string) (Size, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindSize(id)
}

// ListProfiles returns every profile ordered by creation.
func (s *Store) ListProfiles() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListProfiles()
}

// ListBrandsByProfile returns the brands owned by profileID.
func (s *Store) ListBrandsByProfile(profileID string) []Brand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListBrandsByProfile(profileID)
}

// ListSizesByBrand returns the sizes recorded under brandID.
func (s *Store) ListSizesByBrand(brandID string) []Size {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListSizesByBrand(brandID)
}

// LoadPreferences returns a copy of the stored preferences.
func (s *Store) LoadPreferences(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.prefs))
	for k, v := range s.prefs {
		out[k] = v
	}
	return out, nil
}

// SavePreference stores a single preference value.
func (s *Store) SavePreference(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = value
	return nil
}
