package bootstrap

import (
	"fmt"

	"dbaccountsync/pkg/logger"
	"dbaccountsync/repository"
	"dbaccountsync/services/filter"
)

// LoadData initializes bootstrap data: the account filter rules and a sanity
// check of the registered targets. Filter rule construction is fail-fast; a
// malformed exclusion list aborts startup instead of silently syncing
// accounts that should have been skipped.
func LoadData() error {
	logger.Infof("Starting bootstrap data loading...")

	if err := filter.Load(); err != nil {
		logger.Errorf("Failed to load filter rules: %v", err)
		return fmt.Errorf("failed to load filter rules: %v", err)
	}

	targetRepo := repository.NewTargetRepository()
	count, err := targetRepo.Count(nil)
	if err != nil {
		logger.Errorf("Failed to count target systems: %v", err)
		return fmt.Errorf("failed to count target systems: %v", err)
	}
	logger.Infof("Loaded filter rules, %d target system(s) registered", count)

	logger.Infof("Bootstrap data loading completed successfully")
	return nil
}
