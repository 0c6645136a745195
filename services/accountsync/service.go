package accountsync

import (
	"context"
	"fmt"

	"dbaccountsync/models"
	"dbaccountsync/pkg/logger"
	"dbaccountsync/repository"
	"dbaccountsync/services/targetconn"
)

// SyncService drives full synchronization runs: both protocol phases against
// the remote server, then replacement of the stored inventory rows.
type SyncService interface {
	SyncAll(ctx context.Context) error
	SyncTarget(ctx context.Context, targetID uint) error
}

type syncService struct {
	targets  repository.TargetRepository
	accounts repository.SyncedAccountRepository
}

func NewSyncService() SyncService {
	return &syncService{
		targets:  repository.NewTargetRepository(),
		accounts: repository.NewSyncedAccountRepository(),
	}
}

// SyncAll runs synchronization for every enabled target. A failing target is
// logged and skipped so one unreachable server does not starve the rest.
func (s *syncService) SyncAll(ctx context.Context) error {
	targets, err := s.targets.GetAllEnabled(nil)
	if err != nil {
		return fmt.Errorf("failed to load enabled targets: %w", err)
	}
	if len(targets) == 0 {
		logger.Warnf("No enabled target systems registered, nothing to sync")
		return nil
	}

	failed := 0
	for i := range targets {
		if err := s.syncOne(ctx, &targets[i]); err != nil {
			logger.Errorf("Sync failed for target %s: %v", targets[i].Name, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("sync failed for %d of %d targets", failed, len(targets))
	}
	return nil
}

// SyncTarget runs synchronization for a single target by ID.
func (s *syncService) SyncTarget(ctx context.Context, targetID uint) error {
	target, err := s.targets.GetByID(nil, targetID)
	if err != nil {
		return fmt.Errorf("failed to load target %d: %w", targetID, err)
	}
	return s.syncOne(ctx, target)
}

func (s *syncService) syncOne(ctx context.Context, target *models.TargetSystem) error {
	logger.Infof("Syncing target %s (engine=%s host=%s:%d)", target.Name, target.Engine, target.Host, target.Port)

	db, err := targetconn.Open(target)
	if err != nil {
		return err
	}
	defer db.Close()

	batch, err := RunListing(ctx, target, db)
	if err != nil {
		return err
	}
	accounts := batch.Enrich(ctx, db, nil)

	if err := s.accounts.ReplaceForTarget(nil, target.ID, accounts); err != nil {
		return fmt.Errorf("failed to store accounts for target %s: %w", target.Name, err)
	}
	logger.Infof("Stored %d accounts for target %s", len(accounts), target.Name)
	return nil
}
