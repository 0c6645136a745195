package postgres

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

// roleAttributeColumns maps pg_roles boolean columns to their attribute
// names in the role_attributes category.
var roleAttributeColumns = []struct {
	column    string
	attribute string
}{
	{"rolsuper", "SUPERUSER"},
	{"rolcanlogin", "LOGIN"},
	{"rolcreatedb", "CREATEDB"},
	{"rolcreaterole", "CREATEROLE"},
	{"rolreplication", "REPLICATION"},
	{"rolbypassrls", "BYPASSRLS"},
	{"rolinherit", "INHERIT"},
}

// Adapter implements the sync capability contract for the PostgreSQL family.
// Role attributes come from boolean columns on pg_roles at listing time;
// role membership, per-database privileges and tablespace create privilege
// are dedicated follow-up queries batched by account.
type Adapter struct {
	accountsync.BaseAdapter
}

func init() {
	accountsync.Register(models.EnginePostgreSQL, func() accountsync.Adapter { return &Adapter{} })
}

// Engine returns the engine identifier this adapter serves.
func (a *Adapter) Engine() models.Engine {
	return models.EnginePostgreSQL
}

// FetchRawAccounts lists roles from pg_roles, filtered by the exclusion
// rules. A failed listing is logged and yields an empty slice.
func (a *Adapter) FetchRawAccounts(ctx context.Context, target *models.TargetSystem, db *sql.DB) []accountsync.RawAccount {
	pred, args := filter.RulesFor(models.EnginePostgreSQL).Predicate("rolname", filter.PlaceholderDollar)
	query := fmt.Sprintf(
		"SELECT rolname, rolsuper, rolcanlogin, rolcreatedb, rolcreaterole, rolreplication, "+
			"rolbypassrls, rolinherit, rolconnlimit, rolvaliduntil::text AS rolvaliduntil "+
			"FROM pg_catalog.pg_roles WHERE %s ORDER BY rolname", pred)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Errorf("PostgreSQL role listing failed on target %s: %v", target.Name, err)
		return nil
	}
	defer rows.Close()

	raws, err := accountsync.ScanRows(rows)
	if err != nil {
		logger.Errorf("PostgreSQL role listing scan failed on target %s: %v", target.Name, err)
		return nil
	}
	return raws
}

// NormalizeAccount maps one pg_roles row to the canonical account record.
// Locked and active state derive from the login-capability flag; PostgreSQL
// has no separate status column.
func (a *Adapter) NormalizeAccount(target *models.TargetSystem, raw accountsync.RawAccount) *models.RemoteAccount {
	name := accountsync.RawString(raw, "rolname")
	if name == "" {
		return nil
	}

	account := models.NewRemoteAccount(name, models.EnginePostgreSQL)
	account.IsSuperuser = accountsync.RawBool(raw, "rolsuper")
	canLogin := accountsync.RawBool(raw, "rolcanlogin")
	account.IsActive = canLogin
	account.IsLocked = !canLogin

	var attributes []string
	for _, col := range roleAttributeColumns {
		if accountsync.RawBool(raw, col.column) {
			attributes = append(attributes, col.attribute)
		}
	}
	normalized, _ := snapshot.FlattenList(attributes)
	account.Permissions.SetList(models.CategoryRoleAttributes, normalized)
	account.Permissions.SetList(models.CategoryRoles, nil)
	account.Permissions.SetList(models.CategoryPredefinedRoles, nil)
	account.Permissions.SetKeyed(models.CategoryDatabasePrivileges, nil)

	kind := "user"
	if !canLogin {
		kind = "role"
	}
	account.Permissions.TypeSpecific["account_kind"] = kind

	if limit := accountsync.RawString(raw, "rolconnlimit"); limit != "" && limit != "-1" {
		account.Attributes["connection_limit"] = limit
	}
	if until := accountsync.RawString(raw, "rolvaliduntil"); until != "" {
		account.Attributes["valid_until"] = until
	}
	return account
}

// EnrichPermissions runs the three follow-up queries per account in the
// subset: role membership, per-database privileges and tablespace create
// privilege. Each query failure lands in that account's snapshot errors and
// the remaining accounts and categories continue.
func (a *Adapter) EnrichPermissions(ctx context.Context, target *models.TargetSystem, db *sql.DB, accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount {
	selected := accountsync.SelectAccounts(accounts, usernames)
	for _, account := range selected {
		a.enrichMembership(ctx, db, account)
		a.enrichDatabasePrivileges(ctx, db, account)
		a.enrichTablespaces(ctx, db, account)
	}
	return accounts
}

// enrichMembership fetches the roles granted to one account. Predefined
// pg_* roles land in predefined_roles, everything else in roles.
func (a *Adapter) enrichMembership(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	query := "SELECT b.rolname FROM pg_catalog.pg_auth_members m " +
		"JOIN pg_catalog.pg_roles b ON m.roleid = b.oid " +
		"JOIN pg_catalog.pg_roles u ON m.member = u.oid " +
		"WHERE u.rolname = $1 ORDER BY b.rolname"

	rows, err := db.QueryContext(ctx, query, account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("role membership query failed: %v", err))
		return
	}
	defer rows.Close()

	var predefined, regular []string
	for rows.Next() {
		var rolname string
		if err := rows.Scan(&rolname); err != nil {
			account.Permissions.AddError(fmt.Sprintf("role membership scan failed: %v", err))
			return
		}
		if strings.HasPrefix(rolname, "pg_") {
			predefined = append(predefined, rolname)
		} else {
			regular = append(regular, rolname)
		}
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("role membership iteration failed: %v", err))
		return
	}

	normalizedPredefined, _ := snapshot.FlattenList(predefined)
	normalizedRegular, _ := snapshot.FlattenList(regular)
	account.Permissions.SetList(models.CategoryPredefinedRoles, normalizedPredefined)
	account.Permissions.SetList(models.CategoryRoles, normalizedRegular)
}

// enrichDatabasePrivileges evaluates connect/create/temp privilege per
// database with one query for the account, batched by account rather than
// by database.
func (a *Adapter) enrichDatabasePrivileges(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	query := "SELECT d.datname, " +
		"has_database_privilege($1, d.datname, 'CONNECT') AS can_connect, " +
		"has_database_privilege($1, d.datname, 'CREATE') AS can_create, " +
		"has_database_privilege($1, d.datname, 'TEMP') AS can_temp " +
		"FROM pg_catalog.pg_database d WHERE d.datistemplate = false ORDER BY d.datname"

	rows, err := db.QueryContext(ctx, query, account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("database privilege query failed: %v", err))
		return
	}
	defer rows.Close()

	privileges := map[string][]string{}
	for rows.Next() {
		var datname string
		var canConnect, canCreate, canTemp bool
		if err := rows.Scan(&datname, &canConnect, &canCreate, &canTemp); err != nil {
			account.Permissions.AddError(fmt.Sprintf("database privilege scan failed: %v", err))
			return
		}
		var privs []string
		if canConnect {
			privs = append(privs, "CONNECT")
		}
		if canCreate {
			privs = append(privs, "CREATE")
		}
		if canTemp {
			privs = append(privs, "TEMP")
		}
		if len(privs) > 0 {
			privileges[datname] = privs
		}
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("database privilege iteration failed: %v", err))
		return
	}

	normalized, _ := snapshot.FlattenKeyed(privileges)
	account.Permissions.SetKeyed(models.CategoryDatabasePrivileges, normalized)
}

// enrichTablespaces records the tablespaces the account may create objects
// in. Tablespace privilege has no cross-engine analog, so it stays in
// type_specific.
func (a *Adapter) enrichTablespaces(ctx context.Context, db *sql.DB, account *models.RemoteAccount) {
	query := "SELECT spcname FROM pg_catalog.pg_tablespace " +
		"WHERE has_tablespace_privilege($1, spcname, 'CREATE') ORDER BY spcname"

	rows, err := db.QueryContext(ctx, query, account.Username)
	if err != nil {
		account.Permissions.AddError(fmt.Sprintf("tablespace privilege query failed: %v", err))
		return
	}
	defer rows.Close()

	var spaces []string
	for rows.Next() {
		var spcname string
		if err := rows.Scan(&spcname); err != nil {
			account.Permissions.AddError(fmt.Sprintf("tablespace privilege scan failed: %v", err))
			return
		}
		spaces = append(spaces, spcname)
	}
	if err := rows.Err(); err != nil {
		account.Permissions.AddError(fmt.Sprintf("tablespace privilege iteration failed: %v", err))
		return
	}

	if len(spaces) > 0 {
		account.Permissions.TypeSpecific["tablespace_create"] = spaces
	}
}
