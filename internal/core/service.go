// Package core implements the entity store service: transactional CRUD over
// profiles, brands and sizes with cascading deletes, bulk transfer, and share
// token generation.
package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"sizes/internal/infra/persistence/memory"
	"sizes/pkg/domain"
)

type (
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
)

// NewRulesEngine returns an engine with the default integrity rules.
func NewRulesEngine() *RulesEngine { return domain.NewDefaultRulesEngine() }

// Service exposes higher-level transactional operations over a persistent store.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the span source.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source used for exports and size checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func newService(opts []Option) *Service {
	s := &Service{
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := newService(opts)
	s.store = store
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store that
// shares the service clock.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	s := newService(opts)
	s.store = memory.NewStore(engine, memory.WithClock(s.now))
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	id, err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	if err != nil {
		s.logger.Warn("store operation failed", "op", op, "id", id, "error", err)
		return err
	}
	s.logger.Debug("store operation", "op", op, "id", id)
	return nil
}

// CreateProfile stores a new profile with a fresh id and creation defaults.
func (s *Service) CreateProfile(ctx context.Context, profile domain.Profile) (domain.Profile, Result, error) {
	var (
		created domain.Profile
		res     Result
	)
	err := s.run(ctx, "create_profile", func(ctx context.Context) (string, error) {
		profile.ID = ""
		profile.LastCheck = nil
		profile.ApplyDefaults()
		if err := profile.Validate(); err != nil {
			return "", err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateProfile(profile)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// CreateBrand stores a new brand under an existing profile.
func (s *Service) CreateBrand(ctx context.Context, brand domain.Brand) (domain.Brand, Result, error) {
	var (
		created domain.Brand
		res     Result
	)
	err := s.run(ctx, "create_brand", func(ctx context.Context) (string, error) {
		brand.ID = ""
		if err := brand.Validate(); err != nil {
			return "", err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateBrand(brand)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// CreateSize stores a new size under an existing brand.
func (s *Service) CreateSize(ctx context.Context, size domain.Size) (domain.Size, Result, error) {
	var (
		created domain.Size
		res     Result
	)
	err := s.run(ctx, "create_size", func(ctx context.Context) (string, error) {
		size.ID = ""
		size.ApplyDefaults()
		if err := size.Validate(); err != nil {
			return "", err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateSize(size)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// GetProfile returns the profile with id. Absence is not an error.
func (s *Service) GetProfile(id string) (domain.Profile, bool) { return s.store.GetProfile(id) }

// GetBrand returns the brand with id.
func (s *Service) GetBrand(id string) (domain.Brand, bool) { return s.store.GetBrand(id) }

// GetSize returns the size with id.
func (s *Service) GetSize(id string) (domain.Size, bool) { return s.store.GetSize(id) }

// ListProfiles returns every profile in creation order.
func (s *Service) ListProfiles() []domain.Profile { return s.store.ListProfiles() }

// ListBrandsByProfile returns the brands of one profile.
func (s *Service) ListBrandsByProfile(profileID string) []domain.Brand {
	return s.store.ListBrandsByProfile(profileID)
}

// ListSizesByBrand returns the sizes of one brand.
func (s *Service) ListSizesByBrand(brandID string) []domain.Size {
	return s.store.ListSizesByBrand(brandID)
}

// UpdateProfile merges patch into the stored profile.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) (domain.Profile, Result, error) {
	var (
		updated domain.Profile
		res     Result
	)
	err := s.run(ctx, "update_profile", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			updated, err = tx.UpdateProfile(id, func(p *domain.Profile) error {
				patch.Apply(p)
				return p.Validate()
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// UpdateBrand merges patch into the stored brand. A new profileId must exist.
func (s *Service) UpdateBrand(ctx context.Context, id string, patch domain.BrandPatch) (domain.Brand, Result, error) {
	var (
		updated domain.Brand
		res     Result
	)
	err := s.run(ctx, "update_brand", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			updated, err = tx.UpdateBrand(id, func(b *domain.Brand) error {
				patch.Apply(b)
				return b.Validate()
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// UpdateSize merges patch into the stored size. A new brandId must exist.
func (s *Service) UpdateSize(ctx context.Context, id string, patch domain.SizePatch) (domain.Size, Result, error) {
	var (
		updated domain.Size
		res     Result
	)
	err := s.run(ctx, "update_size", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			updated, err = tx.UpdateSize(id, func(sz *domain.Size) error {
				patch.Apply(sz)
				sz.ApplyDefaults()
				return sz.Validate()
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteProfile removes a profile together with its brands and their sizes.
func (s *Service) DeleteProfile(ctx context.Context, id string) (Result, error) {
	return s.delete(ctx, "delete_profile", id, func(tx domain.Transaction) error { return tx.DeleteProfile(id) })
}

// DeleteBrand removes a brand together with its sizes.
func (s *Service) DeleteBrand(ctx context.Context, id string) (Result, error) {
	return s.delete(ctx, "delete_brand", id, func(tx domain.Transaction) error { return tx.DeleteBrand(id) })
}

// DeleteSize removes a single size.
func (s *Service) DeleteSize(ctx context.Context, id string) (Result, error) {
	return s.delete(ctx, "delete_size", id, func(tx domain.Transaction) error { return tx.DeleteSize(id) })
}

// Delete removes the record with id whatever its kind, cascading as the
// typed deletes do.
func (s *Service) Delete(ctx context.Context, id string) (Result, error) {
	return s.delete(ctx, "delete", id, func(tx domain.Transaction) error {
		view := tx.Snapshot()
		if _, ok := view.FindProfile(id); ok {
			return tx.DeleteProfile(id)
		}
		if _, ok := view.FindBrand(id); ok {
			return tx.DeleteBrand(id)
		}
		if _, ok := view.FindSize(id); ok {
			return tx.DeleteSize(id)
		}
		return domain.NotFoundError{Entity: "record", ID: id}
	})
}

func (s *Service) delete(ctx context.Context, op, id string, fn func(domain.Transaction) error) (Result, error) {
	var res Result
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return id, err
	})
	return res, err
}

// SearchBrands returns the profile's brands whose name contains query,
// ignoring case. An empty query returns all of them.
func (s *Service) SearchBrands(profileID, query string) []domain.Brand {
	brands := s.store.ListBrandsByProfile(profileID)
	if query == "" {
		return brands
	}
	query = strings.ToLower(query)
	out := brands[:0]
	for _, b := range brands {
		if strings.Contains(strings.ToLower(b.Name), query) {
			out = append(out, b)
		}
	}
	return out
}

// MarkProfileChecked records that the profile's sizes were reviewed now.
func (s *Service) MarkProfileChecked(ctx context.Context, id string) (domain.Profile, error) {
	now := s.now()
	updated, _, err := s.UpdateProfile(ctx, id, domain.ProfilePatch{LastCheck: &now})
	return updated, err
}

// ProfilesNeedingReview lists child profiles whose sizes are due a check.
func (s *Service) ProfilesNeedingReview() []domain.Profile {
	now := s.now()
	var out []domain.Profile
	for _, p := range s.store.ListProfiles() {
		if domain.NeedsSizeReview(p, now) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastCheck.Before(*out[j].LastCheck) })
	return out
}
