package core

import (
	"context"
	"fmt"

	"sizes/internal/backup"
	"sizes/pkg/domain"
	"sizes/pkg/share"
)

// Export captures every record from one consistent view.
func (s *Service) Export(ctx context.Context) (backup.Document, error) {
	doc := backup.Document{Version: backup.Version}
	err := s.run(ctx, "export", func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view domain.TransactionView) error {
			doc.ExportedAt = s.now()
			doc.Profiles = view.ListProfiles()
			doc.Brands = view.ListBrands()
			doc.Sizes = view.ListSizes()
			return nil
		})
	})
	if err != nil {
		return backup.Document{}, fmt.Errorf("export: %w", err)
	}
	return doc, nil
}

// Import replaces the whole dataset with doc in a single transaction.
// References inside doc are not validated. On failure nothing changes.
func (s *Service) Import(ctx context.Context, doc backup.Document) (domain.Counts, error) {
	var counts domain.Counts
	err := s.run(ctx, "import", func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if err := tx.Replace(doc.Profiles, doc.Brands, doc.Sizes); err != nil {
				return err
			}
			counts = tx.Snapshot().Counts()
			return nil
		})
		return "", err
	})
	if err != nil {
		return domain.Counts{}, fmt.Errorf("import: %w", err)
	}
	return counts, nil
}

// ShareToken encodes the profile's shareable projection.
func (s *Service) ShareToken(ctx context.Context, profileID string) (string, error) {
	var token string
	err := s.run(ctx, "share_token", func(ctx context.Context) (string, error) {
		return profileID, s.store.View(ctx, func(view domain.TransactionView) error {
			profile, ok := view.FindProfile(profileID)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityProfile, ID: profileID}
			}
			var err error
			token, err = share.Encode(share.Project(view, profile))
			return err
		})
	})
	return token, err
}
