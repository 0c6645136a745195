package accountsync

import (
	"context"
	"database/sql"

	"dbaccountsync/models"
	"dbaccountsync/utils"
)

// RawAccount is one engine-native catalog row before normalization, keyed by
// column name.
type RawAccount map[string]interface{}

// Adapter is the per-engine capability contract. Implementations own their
// engine's query text, grant/role parsing, and batch enrichment strategy.
//
// FetchRawAccounts is a fail-soft boundary: a failed listing query is logged
// and yields an empty slice so one broken target never aborts a multi-target
// sync. NormalizeAccount is a pure mapping and must be total over any raw
// shape the same adapter produces. EnrichPermissions mutates the supplied
// accounts in place and returns the same slice; a nil usernames subset means
// all accounts. Per-account enrichment failures land in the account's
// permission snapshot errors, never in a returned error.
type Adapter interface {
	Engine() models.Engine
	FetchRawAccounts(ctx context.Context, target *models.TargetSystem, db *sql.DB) []RawAccount
	NormalizeAccount(target *models.TargetSystem, raw RawAccount) *models.RemoteAccount
	EnrichPermissions(ctx context.Context, target *models.TargetSystem, db *sql.DB, accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount
}

// BaseAdapter provides the default identity enrichment for adapters that
// already embed permission data during listing.
type BaseAdapter struct{}

// EnrichPermissions returns the accounts unchanged.
func (BaseAdapter) EnrichPermissions(_ context.Context, _ *models.TargetSystem, _ *sql.DB, accounts []*models.RemoteAccount, _ []string) []*models.RemoteAccount {
	return accounts
}

// ScanRows reads every row of a result set into RawAccount maps, converting
// []byte column values to strings.
func ScanRows(rows *sql.Rows) ([]RawAccount, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []RawAccount
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		raw := make(RawAccount, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				raw[col] = string(b)
			} else {
				raw[col] = values[i]
			}
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// SelectAccounts returns the accounts matching the usernames subset, or all
// accounts when usernames is nil. Unknown usernames are ignored.
func SelectAccounts(accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount {
	if usernames == nil {
		return accounts
	}
	wanted := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		wanted[name] = true
	}
	selected := make([]*models.RemoteAccount, 0, len(usernames))
	for _, account := range accounts {
		if wanted[account.Username] {
			selected = append(selected, account)
		}
	}
	return selected
}

// RawString reads a raw column as a string, tolerating NULL and []byte values.
func RawString(raw RawAccount, column string) string {
	return utils.ToString(raw[column])
}

// RawBool reads a raw column as a boolean, tolerating the Y/N, 0/1 and
// TRUE/FALSE flag conventions the engine catalogs use.
func RawBool(raw RawAccount, column string) bool {
	return utils.ToBool(raw[column])
}
