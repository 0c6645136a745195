package mysql

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
	"dbaccountsync/utils"
)

// roleSupportMajorVersion is the first MySQL major version with role
// support. The gate reads the version recorded on the target descriptor,
// never the live server.
const roleSupportMajorVersion = 8

// Adapter implements the sync capability contract for the MySQL family.
// Global and schema privileges come from SHOW GRANTS statement parsing;
// direct and default role membership come from two bulk queries keyed by
// user@host.
type Adapter struct {
	accountsync.BaseAdapter
}

func init() {
	accountsync.Register(models.EngineMySQL, func() accountsync.Adapter { return &Adapter{} })
}

// Engine returns the engine identifier this adapter serves.
func (a *Adapter) Engine() models.Engine {
	return models.EngineMySQL
}

// FetchRawAccounts lists accounts from mysql.user, filtered by the exclusion
// rules. A failed listing is logged and yields an empty slice so the rest of
// a multi-target sync continues.
func (a *Adapter) FetchRawAccounts(ctx context.Context, target *models.TargetSystem, db *sql.DB) []accountsync.RawAccount {
	pred, args := filter.RulesFor(models.EngineMySQL).Predicate("user", filter.PlaceholderQuestion)
	query := fmt.Sprintf(
		"SELECT user, host, account_locked, password_expired, plugin, Super_priv AS super_priv "+
			"FROM mysql.user WHERE %s ORDER BY user, host", pred)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Errorf("MySQL account listing failed on target %s: %v", target.Name, err)
		return nil
	}
	defer rows.Close()

	raws, err := accountsync.ScanRows(rows)
	if err != nil {
		logger.Errorf("MySQL account listing scan failed on target %s: %v", target.Name, err)
		return nil
	}
	return raws
}

// NormalizeAccount maps one mysql.user row to the canonical account record.
// The account host is folded into the username as user@host since MySQL
// scopes accounts by origin.
func (a *Adapter) NormalizeAccount(target *models.TargetSystem, raw accountsync.RawAccount) *models.RemoteAccount {
	user := accountsync.RawString(raw, "user")
	host := accountsync.RawString(raw, "host")
	if user == "" {
		return nil
	}

	username := user
	if host != "" {
		username = user + "@" + host
	}

	account := models.NewRemoteAccount(username, models.EngineMySQL)
	account.DisplayName = user
	account.IsSuperuser = accountsync.RawBool(raw, "super_priv")
	account.IsLocked = accountsync.RawBool(raw, "account_locked")
	account.IsActive = !account.IsLocked

	account.Attributes["user"] = user
	account.Attributes["host"] = host
	if accountsync.RawBool(raw, "password_expired") {
		account.Attributes["password_expired"] = true
	}
	if plugin := accountsync.RawString(raw, "plugin"); plugin != "" {
		account.Permissions.TypeSpecific["auth_plugin"] = plugin
	}

	account.Permissions.SetList(models.CategoryGlobalPrivileges, nil)
	account.Permissions.SetKeyed(models.CategoryDatabasePrivileges, nil)
	account.Permissions.SetList(models.CategoryRoles, nil)
	return account
}

// EnrichPermissions fetches grants per account and role membership in bulk
// for the requested subset (nil means all). Failures are embedded per
// account and never abort the batch.
func (a *Adapter) EnrichPermissions(ctx context.Context, target *models.TargetSystem, db *sql.DB, accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount {
	selected := accountsync.SelectAccounts(accounts, usernames)
	if len(selected) == 0 {
		return accounts
	}

	if target.MajorVersion() >= roleSupportMajorVersion {
		a.enrichRoles(ctx, db, selected)
	} else {
		logger.Debugf("Skipping role enrichment on target %s: version %q predates role support", target.Name, target.Version)
	}

	for _, account := range selected {
		a.enrichGrants(ctx, db, account)
	}
	return accounts
}

// enrichRoles fetches direct and default role membership for the whole
// subset in two bulk queries keyed by (user, host).
func (a *Adapter) enrichRoles(ctx context.Context, db *sql.DB, selected []*models.RemoteAccount) {
	holders := make([]string, 0, len(selected))
	args := make([]interface{}, 0, len(selected)*2)
	for _, account := range selected {
		user, host := accountUserHost(account)
		holders = append(holders, "(?, ?)")
		args = append(args, user, host)
	}
	tuples := strings.Join(holders, ", ")

	directQuery := fmt.Sprintf(
		"SELECT from_user, from_host, to_user, to_host FROM mysql.role_edges WHERE (to_user, to_host) IN (%s)", tuples)
	direct, directErr := a.roleRows(ctx, db, directQuery, args, "to_user", "to_host")

	defaultQuery := fmt.Sprintf(
		"SELECT default_role_user AS from_user, default_role_host AS from_host, user AS to_user, host AS to_host "+
			"FROM mysql.default_roles WHERE (user, host) IN (%s)", tuples)
	defaults, defaultErr := a.roleRows(ctx, db, defaultQuery, args, "to_user", "to_host")

	for _, account := range selected {
		if directErr != nil {
			account.Permissions.AddError(fmt.Sprintf("role membership query failed: %v", directErr))
		} else {
			roles, _ := snapshot.FlattenList(direct[account.Username])
			account.Permissions.SetList(models.CategoryRoles, roles)
		}
		if defaultErr != nil {
			account.Permissions.AddError(fmt.Sprintf("default role query failed: %v", defaultErr))
		} else if len(defaults[account.Username]) > 0 {
			account.Permissions.TypeSpecific["default_roles"] = defaults[account.Username]
		}
	}
}

// roleRows runs one bulk role query and groups role names by grantee
// user@host key.
func (a *Adapter) roleRows(ctx context.Context, db *sql.DB, query string, args []interface{}, userCol, hostCol string) (map[string][]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raws, err := accountsync.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]string{}
	for _, raw := range raws {
		grantee := accountsync.RawString(raw, userCol) + "@" + accountsync.RawString(raw, hostCol)
		roleUser := accountsync.RawString(raw, "from_user")
		if roleUser == "" {
			continue
		}
		role := roleUser
		if roleHost := accountsync.RawString(raw, "from_host"); roleHost != "" && roleHost != "%" {
			role = roleUser + "@" + roleHost
		}
		grouped[grantee] = append(grouped[grantee], role)
	}
	return grouped, nil
}

// enrichGrants parses SHOW GRANTS output into global and per-schema
// privilege lists for one account.
func (a *Adapter) enrichGrants(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	user, host := accountUserHost(account)
	query := fmt.Sprintf("SHOW GRANTS FOR '%s'@'%s'", utils.EscapeSQL(user), utils.EscapeSQL(host))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("grant query failed: %v", err))
		return
	}
	defer rows.Close()

	var global []string
	schemas := map[string][]string{}
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			account.Permissions.AddError(fmt.Sprintf("grant scan failed: %v", err))
			return
		}
		parsed, ok := ParseGrant(stmt)
		if !ok {
			continue
		}
		if parsed.Scope == ScopeGlobal {
			global = append(global, parsed.Privileges...)
		} else {
			schemas[parsed.Schema] = append(schemas[parsed.Schema], parsed.Privileges...)
		}
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("grant iteration failed: %v", err))
		return
	}

	normalizedGlobal, _ := snapshot.FlattenList(global)
	normalizedSchemas, _ := snapshot.FlattenKeyed(schemas)
	account.Permissions.SetList(models.CategoryGlobalPrivileges, normalizedGlobal)
	account.Permissions.SetKeyed(models.CategoryDatabasePrivileges, normalizedSchemas)
}

// accountUserHost recovers the raw (user, host) pair folded into the
// username during normalization.
func accountUserHost(account *models.RemoteAccount) (string, string) {
	user, uok := account.Attributes["user"].(string)
	host, hok := account.Attributes["host"].(string)
	if uok && hok {
		return user, host
	}
	if idx := strings.LastIndex(account.Username, "@"); idx >= 0 {
		return account.Username[:idx], account.Username[idx+1:]
	}
	return account.Username, "%"
}
