package sqlserver

import (
	"fmt"
	"regexp"
	"strings"
)

// sidLiteralPattern is the only shape accepted for SID literals embedded in
// the cross-database queries. SIDs come from sys.server_principals but are
// still validated before interpolation.
var sidLiteralPattern = regexp.MustCompile(`^0x[0-9A-Fa-f]+$`)

// quoteIdent brackets a database identifier, doubling closing brackets.
// Database names come from sys.databases and are trusted system catalog
// output, but identifier-escaping discipline still applies.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// quoteString escapes a value for embedding in an N'...' literal.
func quoteString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// validateSIDs checks every SID literal against the accepted hex shape.
func validateSIDs(sids []string) error {
	if len(sids) == 0 {
		return fmt.Errorf("no SID literals supplied")
	}
	for _, sid := range sids {
		if !sidLiteralPattern.MatchString(sid) {
			return fmt.Errorf("invalid SID literal %q", sid)
		}
	}
	return nil
}

// BuildRoleUnionQuery assembles one sub-query per accessible database,
// joined with UNION ALL, returning database role membership for the given
// SIDs. Rows correlate back to logins by binary SID equality, never by name:
// per-database principal names are not unique across databases.
func BuildRoleUnionQuery(databases []string, sids []string) (string, error) {
	if err := validateSIDs(sids); err != nil {
		return "", err
	}
	if len(databases) == 0 {
		return "", fmt.Errorf("no databases supplied")
	}
	sidList := strings.Join(sids, ", ")

	parts := make([]string, 0, len(databases))
	for _, database := range databases {
		ident := quoteIdent(database)
		parts = append(parts, fmt.Sprintf(
			"SELECT N'%s' AS database_name, CONVERT(varchar(512), dp.sid, 1) AS sid_hex, r.name AS role_name "+
				"FROM %s.sys.database_role_members drm "+
				"JOIN %s.sys.database_principals r ON drm.role_principal_id = r.principal_id "+
				"JOIN %s.sys.database_principals dp ON drm.member_principal_id = dp.principal_id "+
				"WHERE dp.sid IN (%s)",
			quoteString(database), ident, ident, ident, sidList))
	}
	return strings.Join(parts, " UNION ALL "), nil
}

// BuildPermissionUnionQuery assembles one sub-query per accessible database,
// joined with UNION ALL, returning database/schema/object/column level
// permission rows for the given SIDs. Schema and object names resolve inside
// each database so the caller can disambiguate permission scope.
func BuildPermissionUnionQuery(databases []string, sids []string) (string, error) {
	if err := validateSIDs(sids); err != nil {
		return "", err
	}
	if len(databases) == 0 {
		return "", fmt.Errorf("no databases supplied")
	}
	sidList := strings.Join(sids, ", ")

	parts := make([]string, 0, len(databases))
	for _, database := range databases {
		ident := quoteIdent(database)
		parts = append(parts, fmt.Sprintf(
			"SELECT N'%s' AS database_name, CONVERT(varchar(512), dp.sid, 1) AS sid_hex, "+
				"perm.permission_name, perm.state_desc, perm.class_desc, "+
				"COALESCE(scs.name, os.name) AS schema_name, o.name AS object_name, c.name AS column_name "+
				"FROM %s.sys.database_permissions perm "+
				"JOIN %s.sys.database_principals dp ON perm.grantee_principal_id = dp.principal_id "+
				"LEFT JOIN %s.sys.objects o ON perm.class = 1 AND perm.major_id = o.object_id "+
				"LEFT JOIN %s.sys.schemas os ON o.schema_id = os.schema_id "+
				"LEFT JOIN %s.sys.schemas scs ON perm.class = 3 AND perm.major_id = scs.schema_id "+
				"LEFT JOIN %s.sys.columns c ON perm.class = 1 AND perm.minor_id > 0 "+
				"AND perm.major_id = c.object_id AND perm.minor_id = c.column_id "+
				"WHERE dp.sid IN (%s)",
			quoteString(database), ident, ident, ident, ident, ident, ident, sidList))
	}
	return strings.Join(parts, " UNION ALL "), nil
}
