package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dbaccountsync/models"
	"dbaccountsync/pkg/logger"
	"dbaccountsync/services/accountsync"
	"dbaccountsync/services/filter"
	"dbaccountsync/services/snapshot"
)

// unlimitedQuota is the dba_ts_quotas sentinel for an unlimited tablespace
// quota.
const unlimitedQuota = int64(-1)

// Adapter implements the sync capability contract for the Oracle family.
// Roles, system privileges and tablespace quotas are each a separate
// per-account query; locked state derives from the account_status text.
type Adapter struct {
	accountsync.BaseAdapter
}

func init() {
	accountsync.Register(models.EngineOracle, func() accountsync.Adapter { return &Adapter{} })
}

// Engine returns the engine identifier this adapter serves.
func (a *Adapter) Engine() models.Engine {
	return models.EngineOracle
}

// FetchRawAccounts lists non-Oracle-maintained users from dba_users,
// filtered by the exclusion rules. A failed listing is logged and yields an
// empty slice.
func (a *Adapter) FetchRawAccounts(ctx context.Context, target *models.TargetSystem, db *sql.DB) []accountsync.RawAccount {
	pred, args := filter.RulesFor(models.EngineOracle).Predicate("username", filter.PlaceholderColon)
	query := fmt.Sprintf(
		"SELECT username, user_id, account_status, TO_CHAR(lock_date, 'YYYY-MM-DD') AS lock_date, "+
			"TO_CHAR(expiry_date, 'YYYY-MM-DD') AS expiry_date, default_tablespace, temporary_tablespace, "+
			"profile, authentication_type "+
			"FROM dba_users WHERE oracle_maintained = 'N' AND %s ORDER BY username", pred)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Errorf("Oracle user listing failed on target %s: %v", target.Name, err)
		return nil
	}
	defer rows.Close()

	raws, err := accountsync.ScanRows(rows)
	if err != nil {
		logger.Errorf("Oracle user listing scan failed on target %s: %v", target.Name, err)
		return nil
	}
	return raws
}

// NormalizeAccount maps one dba_users row to the canonical account record.
// Locked state derives from the account_status text field, which carries
// values like OPEN, LOCKED, EXPIRED & LOCKED.
func (a *Adapter) NormalizeAccount(target *models.TargetSystem, raw accountsync.RawAccount) *models.RemoteAccount {
	name := accountsync.RawString(raw, "USERNAME")
	if name == "" {
		name = accountsync.RawString(raw, "username")
	}
	if name == "" {
		return nil
	}

	status := accountsync.RawString(raw, "ACCOUNT_STATUS")
	if status == "" {
		status = accountsync.RawString(raw, "account_status")
	}
	statusUpper := strings.ToUpper(status)

	account := models.NewRemoteAccount(name, models.EngineOracle)
	account.IsLocked = strings.Contains(statusUpper, "LOCKED")
	account.IsActive = statusUpper == "OPEN"

	account.Attributes["account_status"] = status
	if ts := rawStringEither(raw, "DEFAULT_TABLESPACE", "default_tablespace"); ts != "" {
		account.Attributes["default_tablespace"] = ts
	}
	if ts := rawStringEither(raw, "TEMPORARY_TABLESPACE", "temporary_tablespace"); ts != "" {
		account.Attributes["temporary_tablespace"] = ts
	}
	if profile := rawStringEither(raw, "PROFILE", "profile"); profile != "" {
		account.Attributes["profile"] = profile
	}
	if auth := rawStringEither(raw, "AUTHENTICATION_TYPE", "authentication_type"); auth != "" {
		account.Permissions.TypeSpecific["authentication_type"] = auth
	}

	account.Permissions.SetList(models.CategoryOracleRoles, nil)
	account.Permissions.SetList(models.CategorySystemPrivileges, nil)
	return account
}

// EnrichPermissions runs the three per-account queries for the subset:
// granted roles, system privileges and tablespace quotas. Each query failure
// lands in that account's snapshot errors and the rest of the batch
// continues.
func (a *Adapter) EnrichPermissions(ctx context.Context, target *models.TargetSystem, db *sql.DB, accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount {
	selected := accountsync.SelectAccounts(accounts, usernames)
	for _, account := range selected {
		a.enrichRoles(ctx, db, account)
		a.enrichSystemPrivileges(ctx, db, account)
		a.enrichQuotas(ctx, db, account)
	}
	return accounts
}

func (a *Adapter) enrichRoles(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	rows, err := db.QueryContext(ctx,
		"SELECT granted_role FROM dba_role_privs WHERE grantee = :1 ORDER BY granted_role", account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("role query failed: %v", err))
		return
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			account.Permissions.AddError(fmt.Sprintf("role scan failed: %v", err))
			return
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("role iteration failed: %v", err))
		return
	}

	normalized, _ := snapshot.FlattenList(roles)
	account.Permissions.SetList(models.CategoryOracleRoles, normalized)
}

func (a *Adapter) enrichSystemPrivileges(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	rows, err := db.QueryContext(ctx,
		"SELECT privilege FROM dba_sys_privs WHERE grantee = :1 ORDER BY privilege", account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("system privilege query failed: %v", err))
		return
	}
	defer rows.Close()

	var privileges []string
	for rows.Next() {
		var privilege string
		if err := rows.Scan(&privilege); err != nil {
			account.Permissions.AddError(fmt.Sprintf("system privilege scan failed: %v", err))
			return
		}
		privileges = append(privileges, privilege)
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("system privilege iteration failed: %v", err))
		return
	}

	normalized, _ := snapshot.FlattenList(privileges)
	account.Permissions.SetList(models.CategorySystemPrivileges, normalized)
}

// enrichQuotas records per-tablespace quotas. max_bytes = -1 is Oracle's
// unlimited sentinel and renders as UNLIMITED. Quotas have no cross-engine
// analog, so they stay in type_specific.
func (a *Adapter) enrichQuotas(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	rows, err := db.QueryContext(ctx,
		"SELECT tablespace_name, max_bytes FROM dba_ts_quotas WHERE username = :1 ORDER BY tablespace_name",
		account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("tablespace quota query failed: %v", err))
		return
	}
	defer rows.Close()

	quotas := map[string]string{}
	for rows.Next() {
		var tablespace string
		var maxBytes int64
		if err := rows.Scan(&tablespace, &maxBytes); err != nil {
			account.Permissions.AddError(fmt.Sprintf("tablespace quota scan failed: %v", err))
			return
		}
		if maxBytes == unlimitedQuota {
			quotas[tablespace] = "UNLIMITED"
		} else {
			quotas[tablespace] = fmt.Sprintf("%d", maxBytes)
		}
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("tablespace quota iteration failed: %v", err))
		return
	}

	if len(quotas) > 0 {
		account.Permissions.TypeSpecific["tablespace_quotas"] = quotas
	}
}

func rawStringEither(raw accountsync.RawAccount, upper, lower string) string {
	if v := accountsync.RawString(raw, upper); v != "" {
		return v
	}
	return accountsync.RawString(raw, lower)
}
