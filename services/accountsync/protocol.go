package accountsync

import (
	"context"
	"database/sql"
	"fmt"

	"dbaccountsync/models"
	"dbaccountsync/pkg/logger"
)

// BatchState tracks where one target's batch sits in the two-phase protocol.
type BatchState int

// Protocol states. A batch starts Listed after the cheap full listing and
// becomes Enriched once targeted permission enrichment has run. There is no
// transition back within one run; a new run starts a fresh batch.
const (
	BatchListed BatchState = iota
	BatchEnriched
)

// Batch is the in-progress account set for one target system during one
// synchronization run. It is owned by the single call stack executing the
// protocol; no locking discipline is required.
type Batch struct {
	Target   *models.TargetSystem
	State    BatchState
	Accounts []*models.RemoteAccount

	adapter Adapter
}

// RunListing executes Phase 1 for one target: resolve the adapter, fetch the
// raw catalog listing, and normalize each row. Duplicate usernames are
// dropped after the first occurrence so the username+engine uniqueness
// invariant holds. Only factory resolution errors surface to the caller; a
// failed listing query yields an empty batch.
func RunListing(ctx context.Context, target *models.TargetSystem, db *sql.DB) (*Batch, error) {
	adapter, err := Resolve(target.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve adapter for target %s: %w", target.Name, err)
	}

	raws := adapter.FetchRawAccounts(ctx, target, db)

	accounts := make([]*models.RemoteAccount, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		account := adapter.NormalizeAccount(target, raw)
		if account == nil || account.Username == "" {
			continue
		}
		if seen[account.Username] {
			logger.Warnf("Duplicate account %s on target %s dropped from listing", account.Username, target.Name)
			continue
		}
		seen[account.Username] = true
		accounts = append(accounts, account)
	}

	logger.Infof("Listed %d accounts on target %s (engine=%s)", len(accounts), target.Name, target.Engine)

	return &Batch{
		Target:   target,
		State:    BatchListed,
		Accounts: accounts,
		adapter:  adapter,
	}, nil
}

// Enrich executes Phase 2 for a subset of usernames (nil means all accounts).
// Idempotent: it may be invoked multiple times with different subsets in the
// same run, and accounts outside the subset are returned unchanged.
// Per-account failures are embedded in each account's permission errors.
func (b *Batch) Enrich(ctx context.Context, db *sql.DB, usernames []string) []*models.RemoteAccount {
	b.Accounts = b.adapter.EnrichPermissions(ctx, b.Target, db, b.Accounts, usernames)
	b.State = BatchEnriched
	return b.Accounts
}
