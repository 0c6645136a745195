package models

// SnapshotSchemaVersion is the current version of the normalized permission
// snapshot contract. Version 4 requires every list-valued category to be a
// flat list of plain strings.
const SnapshotSchemaVersion = 4

// Known snapshot category names. Not every engine populates every category;
// keyed categories (per-database maps) hold map[string][]string values,
// everything else holds []string.
const (
	CategoryGlobalPrivileges    = "global_privileges"
	CategoryDatabasePrivileges  = "database_privileges"
	CategoryRoles               = "roles"
	CategoryPredefinedRoles     = "predefined_roles"
	CategoryRoleAttributes      = "role_attributes"
	CategoryServerRoles         = "server_roles"
	CategoryServerPermissions   = "server_permissions"
	CategoryDatabaseRoles       = "database_roles"
	CategoryDatabasePermissions = "database_permissions"
	CategoryOracleRoles         = "oracle_roles"
	CategorySystemPrivileges    = "system_privileges"
)

// PermissionSnapshot is the versioned, engine-agnostic permission record
// attached to a RemoteAccount. Categories carry the normalized permission
// data; TypeSpecific carries engine-only facts with no cross-engine analog.
// Partial enrichment failures append diagnostics to Errors instead of
// discarding the account.
type PermissionSnapshot struct {
	SchemaVersion int                    `json:"schema_version"`
	Categories    map[string]interface{} `json:"categories"`
	TypeSpecific  map[string]interface{} `json:"type_specific,omitempty"`
	Errors        []string               `json:"errors,omitempty"`
}

// NewPermissionSnapshot creates an empty snapshot at the current schema version.
func NewPermissionSnapshot() *PermissionSnapshot {
	return &PermissionSnapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Categories:    map[string]interface{}{},
		TypeSpecific:  map[string]interface{}{},
	}
}

// SetList sets a flat list-valued category.
func (s *PermissionSnapshot) SetList(category string, values []string) {
	if values == nil {
		values = []string{}
	}
	s.Categories[category] = values
}

// SetKeyed sets a keyed (per-database) category.
func (s *PermissionSnapshot) SetKeyed(category string, values map[string][]string) {
	if values == nil {
		values = map[string][]string{}
	}
	s.Categories[category] = values
}

// AddError appends a per-account enrichment diagnostic.
func (s *PermissionSnapshot) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
