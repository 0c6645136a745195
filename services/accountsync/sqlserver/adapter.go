package sqlserver

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

// Adapter implements the sync capability contract for the SQL Server family.
// Server-level roles and permissions are fetched once for the whole batch;
// database-level roles and permissions use a dynamically built UNION ALL
// query set (one sub-query per accessible database) correlated back to
// logins through binary SIDs.
type Adapter struct {
	accountsync.BaseAdapter
}

func init() {
	accountsync.Register(models.EngineSQLServer, func() accountsync.Adapter { return &Adapter{} })
}

// Engine returns the engine identifier this adapter serves.
func (a *Adapter) Engine() models.Engine {
	return models.EngineSQLServer
}

// FetchRawAccounts lists SQL and Windows logins from sys.server_principals,
// filtered by the exclusion rules. A failed listing is logged and yields an
// empty slice.
func (a *Adapter) FetchRawAccounts(ctx context.Context, target *models.TargetSystem, db *sql.DB) []accountsync.RawAccount {
	pred, args := filter.RulesFor(models.EngineSQLServer).Predicate("p.name", filter.PlaceholderAt)
	query := fmt.Sprintf(
		"SELECT p.name, CONVERT(varchar(512), p.sid, 1) AS sid_hex, p.type_desc, p.is_disabled, "+
			"p.default_database_name, IS_SRVROLEMEMBER('sysadmin', p.name) AS is_sysadmin "+
			"FROM sys.server_principals p WHERE p.type IN ('S', 'U', 'G') AND %s ORDER BY p.name", pred)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Errorf("SQL Server login listing failed on target %s: %v", target.Name, err)
		return nil
	}
	defer rows.Close()

	raws, err := accountsync.ScanRows(rows)
	if err != nil {
		logger.Errorf("SQL Server login listing scan failed on target %s: %v", target.Name, err)
		return nil
	}
	return raws
}

// NormalizeAccount maps one sys.server_principals row to the canonical
// account record. Disabled logins stay in the listing as locked-but-active:
// the login still exists and still holds its permissions.
func (a *Adapter) NormalizeAccount(target *models.TargetSystem, raw accountsync.RawAccount) *models.RemoteAccount {
	name := accountsync.RawString(raw, "name")
	if name == "" {
		return nil
	}

	account := models.NewRemoteAccount(name, models.EngineSQLServer)
	account.IsSuperuser = accountsync.RawBool(raw, "is_sysadmin")
	account.IsLocked = accountsync.RawBool(raw, "is_disabled")
	account.IsActive = true

	if sid := accountsync.RawString(raw, "sid_hex"); sid != "" {
		account.Attributes["sid"] = sid
	}
	if defaultDB := accountsync.RawString(raw, "default_database_name"); defaultDB != "" {
		account.Attributes["default_database"] = defaultDB
	}
	if principalType := accountsync.RawString(raw, "type_desc"); principalType != "" {
		account.Permissions.TypeSpecific["principal_type"] = principalType
	}

	account.Permissions.SetList(models.CategoryServerRoles, nil)
	account.Permissions.SetList(models.CategoryServerPermissions, nil)
	account.Permissions.SetKeyed(models.CategoryDatabaseRoles, nil)
	account.Permissions.SetKeyed(models.CategoryDatabasePermissions, nil)
	return account
}

// EnrichPermissions fetches server-level roles and permissions once for the
// whole subset, then runs the batched cross-database aggregation. Failures
// land per category in each affected account's snapshot errors.
func (a *Adapter) EnrichPermissions(ctx context.Context, target *models.TargetSystem, db *sql.DB, accounts []*models.RemoteAccount, usernames []string) []*models.RemoteAccount {
	selected := accountsync.SelectAccounts(accounts, usernames)
	if len(selected) == 0 {
		return accounts
	}

	a.enrichServerRoles(ctx, db, selected)
	a.enrichServerPermissions(ctx, db, selected)
	a.enrichDatabaseLevel(ctx, target, db, selected)
	return accounts
}

// nameInClause builds an IN (...) fragment over the selected login names
// with ordinal @pN placeholders.
func nameInClause(selected []*models.RemoteAccount) (string, []interface{}) {
	holders := make([]string, 0, len(selected))
	args := make([]interface{}, 0, len(selected))
	for i, account := range selected {
		holders = append(holders, fmt.Sprintf("@p%d", i+1))
		args = append(args, account.Username)
	}
	return strings.Join(holders, ", "), args
}

// enrichServerRoles fetches server role membership for the whole batch in
// one query.
func (a *Adapter) enrichServerRoles(ctx context.Context, db *sql.DB, selected []*models.RemoteAccount) {
	in, args := nameInClause(selected)
	query := fmt.Sprintf(
		"SELECT m.name AS member_name, r.name AS role_name "+
			"FROM sys.server_role_members rm "+
			"JOIN sys.server_principals r ON rm.role_principal_id = r.principal_id "+
			"JOIN sys.server_principals m ON rm.member_principal_id = m.principal_id "+
			"WHERE m.name IN (%s)", in)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("server role query failed: %v", err))
		return
	}
	defer rows.Close()

	roles := map[string][]string{}
	for rows.Next() {
		var member, role string
		if err := rows.Scan(&member, &role); err != nil {
			addErrorToAll(selected, fmt.Sprintf("server role scan failed: %v", err))
			return
		}
		roles[member] = append(roles[member], role)
	}
	if err := rows.Err(); err != nil {
		addErrorToAll(selected, fmt.Sprintf("server role iteration failed: %v", err))
		return
	}

	for _, account := range selected {
		normalized, _ := snapshot.FlattenList(roles[account.Username])
		account.Permissions.SetList(models.CategoryServerRoles, normalized)
	}
}

// enrichServerPermissions fetches server-level permissions for the whole
// batch in one query. DENY state is carried in the entry text.
func (a *Adapter) enrichServerPermissions(ctx context.Context, db *sql.DB, selected []*models.RemoteAccount) {
	in, args := nameInClause(selected)
	query := fmt.Sprintf(
		"SELECT p.name, perm.permission_name, perm.state_desc "+
			"FROM sys.server_permissions perm "+
			"JOIN sys.server_principals p ON perm.grantee_principal_id = p.principal_id "+
			"WHERE p.name IN (%s)", in)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("server permission query failed: %v", err))
		return
	}
	defer rows.Close()

	permissions := map[string][]string{}
	for rows.Next() {
		var name, permission, state string
		if err := rows.Scan(&name, &permission, &state); err != nil {
			addErrorToAll(selected, fmt.Sprintf("server permission scan failed: %v", err))
			return
		}
		permissions[name] = append(permissions[name], formatPermission(permission, state, ""))
	}
	if err := rows.Err(); err != nil {
		addErrorToAll(selected, fmt.Sprintf("server permission iteration failed: %v", err))
		return
	}

	for _, account := range selected {
		normalized, _ := snapshot.FlattenList(permissions[account.Username])
		account.Permissions.SetList(models.CategoryServerPermissions, normalized)
	}
}

// enrichDatabaseLevel runs the batched cross-database aggregation: the
// SID-to-login map comes from the listing, the accessible database list is
// resolved once, and the two UNION ALL query sets run strictly after it.
func (a *Adapter) enrichDatabaseLevel(ctx context.Context, target *models.TargetSystem, db *sql.DB, selected []*models.RemoteAccount) {
	sidToAccount := map[string]*models.RemoteAccount{}
	sids := make([]string, 0, len(selected))
	for _, account := range selected {
		sid, _ := account.Attributes["sid"].(string)
		if sid == "" {
			continue
		}
		sidToAccount[strings.ToUpper(sid)] = account
		sids = append(sids, sid)
	}
	if len(sids) == 0 {
		return
	}

	databases, err := a.accessibleDatabases(ctx, db)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("database listing failed: %v", err))
		return
	}
	if len(databases) == 0 {
		return
	}

	roleQuery, err := BuildRoleUnionQuery(databases, sids)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("database role query build failed: %v", err))
	} else {
		a.collectDatabaseRoles(ctx, db, roleQuery, sidToAccount, selected)
	}

	permQuery, err := BuildPermissionUnionQuery(databases, sids)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("database permission query build failed: %v", err))
	} else {
		a.collectDatabasePermissions(ctx, db, permQuery, sidToAccount, selected)
	}

	logger.Debugf("Aggregated database-level permissions across %d databases on target %s", len(databases), target.Name)
}

// accessibleDatabases lists the online databases the sync login can reach.
func (a *Adapter) accessibleDatabases(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sys.databases WHERE state = 0 AND HAS_DBACCESS(name) = 1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		databases = append(databases, name)
	}
	return databases, rows.Err()
}

func (a *Adapter) collectDatabaseRoles(ctx context.Context, db *sql.DB, query string, sidToAccount map[string]*models.RemoteAccount, selected []*models.RemoteAccount) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("database role query failed: %v", err))
		return
	}
	defer rows.Close()

	grouped := map[*models.RemoteAccount]map[string][]string{}
	for rows.Next() {
		var database, sid, role string
		if err := rows.Scan(&database, &sid, &role); err != nil {
			addErrorToAll(selected, fmt.Sprintf("database role scan failed: %v", err))
			return
		}
		account := sidToAccount[strings.ToUpper(sid)]
		if account == nil {
			continue
		}
		if grouped[account] == nil {
			grouped[account] = map[string][]string{}
		}
		grouped[account][database] = append(grouped[account][database], role)
	}
	if err := rows.Err(); err != nil {
		addErrorToAll(selected, fmt.Sprintf("database role iteration failed: %v", err))
		return
	}

	for _, account := range selected {
		normalized, _ := snapshot.FlattenKeyed(grouped[account])
		account.Permissions.SetKeyed(models.CategoryDatabaseRoles, normalized)
	}
}

func (a *Adapter) collectDatabasePermissions(ctx context.Context, db *sql.DB, query string, sidToAccount map[string]*models.RemoteAccount, selected []*models.RemoteAccount) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		addErrorToAll(selected, fmt.Sprintf("database permission query failed: %v", err))
		return
	}
	defer rows.Close()

	grouped := map[*models.RemoteAccount]map[string][]string{}
	appendEntry := func(account *models.RemoteAccount, database, entry string) {
		if grouped[account] == nil {
			grouped[account] = map[string][]string{}
		}
		grouped[account][database] = append(grouped[account][database], entry)
	}

	for rows.Next() {
		var database, sid, permission, state, class string
		var schemaName, objectName, columnName sql.NullString
		if err := rows.Scan(&database, &sid, &permission, &state, &class, &schemaName, &objectName, &columnName); err != nil {
			addErrorToAll(selected, fmt.Sprintf("database permission scan failed: %v", err))
			return
		}
		account := sidToAccount[strings.ToUpper(sid)]
		if account == nil {
			continue
		}

		switch class {
		case "DATABASE":
			appendEntry(account, database, formatPermission(permission, state, ""))
		case "SCHEMA":
			appendEntry(account, database, formatPermission(permission, state, "SCHEMA::"+schemaName.String))
		case "OBJECT_OR_COLUMN":
			object := objectName.String
			if schemaName.Valid && schemaName.String != "" {
				object = schemaName.String + "." + object
			}
			if columnName.Valid && columnName.String != "" {
				// Column grants also populate the owning object's
				// table-level entry.
				appendEntry(account, database, formatPermission(permission, state, object))
				appendEntry(account, database, formatPermission(permission, state, object+" ("+columnName.String+")"))
			} else {
				appendEntry(account, database, formatPermission(permission, state, object))
			}
		default:
			appendEntry(account, database, formatPermission(permission, state, class))
		}
	}
	if err := rows.Err(); err != nil {
		addErrorToAll(selected, fmt.Sprintf("database permission iteration failed: %v", err))
		return
	}

	for _, account := range selected {
		normalized, _ := snapshot.FlattenKeyed(grouped[account])
		account.Permissions.SetKeyed(models.CategoryDatabasePermissions, normalized)
	}
}

// formatPermission renders one permission row as a flat entry. GRANT state
// is implicit; DENY and WITH GRANT OPTION are carried in the text.
func formatPermission(permission, state, scope string) string {
	entry := permission
	if scope != "" {
		entry = entry + " ON " + scope
	}
	switch state {
	case "DENY":
		entry = "DENY " + entry
	case "GRANT_WITH_GRANT_OPTION":
		entry = entry + " WITH GRANT OPTION"
	}
	return entry
}

func addErrorToAll(accounts []*models.RemoteAccount, msg string) {
	for _, account := range accounts {
		account.Permissions.AddError(msg)
	}
}
