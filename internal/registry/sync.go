package registry

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/db/models"
	"github.com/harborline/payments-core/pkg/logger"
)

// Syncer reconciles the payment_provider table with the adapters loaded into
// the registry. Newly loaded adapters get a row inserted as enabled; existing
// rows keep their stored flag so an operator's disable survives restarts. Rows
// for adapters the process no longer loads are flipped to disabled rather than
// deleted, so historical sessions keep a valid provider reference.
type Syncer struct {
	registry *Registry
	repo     Repository
	db       *db.Client
	logger   *logger.Logger
}

func NewSyncer(reg *Registry, repo Repository, client *db.Client, logg *logger.Logger) (*Syncer, error) {
	if reg == nil {
		return nil, fmt.Errorf("provider registry required")
	}
	if repo == nil {
		return nil, fmt.Errorf("provider repository required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Syncer{registry: reg, repo: repo, db: client, logger: logg}, nil
}

func (s *Syncer) Sync(ctx context.Context) error {
	loaded := s.registry.Identifiers()
	loadedSet := make(map[string]struct{}, len(loaded))
	for _, id := range loaded {
		loadedSet[id] = struct{}{}
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.List(ctx)
		if err != nil {
			return fmt.Errorf("listing payment providers: %w", err)
		}

		for _, id := range loaded {
			if err := repo.InsertMissing(ctx, &models.PaymentProvider{ID: id, IsEnabled: true}); err != nil {
				return fmt.Errorf("provisioning payment provider %s: %w", id, err)
			}
		}

		for _, row := range existing {
			if _, ok := loadedSet[row.ID]; ok || !row.IsEnabled {
				continue
			}
			if err := repo.SetEnabled(ctx, row.ID, false); err != nil {
				return fmt.Errorf("disabling payment provider %s: %w", row.ID, err)
			}
			s.logger.Warn(s.logger.WithProviderID(ctx, row.ID), "payment provider no longer loaded, disabled")
		}

		return nil
	})
}
