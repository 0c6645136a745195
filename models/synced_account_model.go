package models

import "time"

// SyncedAccount is the persisted form of a RemoteAccount in the inventory
// database. The legacy flat permission columns (JSON text, written by the
// pre-snapshot schema) are kept alongside the normalized snapshot column
// during the migration window; the consistency verifier diffs the two.
type SyncedAccount struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	TargetID    uint   `gorm:"column:target_id;index" json:"target_id"`
	Username    string `gorm:"column:username" json:"username"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`
	Engine      string `gorm:"column:engine" json:"engine"`
	IsSuperuser bool   `gorm:"column:is_superuser" json:"is_superuser"`
	IsActive    bool   `gorm:"column:is_active" json:"is_active"`
	IsLocked    bool   `gorm:"column:is_locked" json:"is_locked"`

	// Legacy flat permission columns, one JSON document per category.
	GlobalPrivileges    string `gorm:"column:global_privileges;type:text" json:"global_privileges"`
	DatabasePrivileges  string `gorm:"column:database_privileges;type:text" json:"database_privileges"`
	Roles               string `gorm:"column:roles;type:text" json:"roles"`
	PredefinedRoles     string `gorm:"column:predefined_roles;type:text" json:"predefined_roles"`
	RoleAttributes      string `gorm:"column:role_attributes;type:text" json:"role_attributes"`
	ServerRoles         string `gorm:"column:server_roles;type:text" json:"server_roles"`
	ServerPermissions   string `gorm:"column:server_permissions;type:text" json:"server_permissions"`
	DatabaseRoles       string `gorm:"column:database_roles;type:text" json:"database_roles"`
	DatabasePermissions string `gorm:"column:database_permissions;type:text" json:"database_permissions"`
	OracleRoles         string `gorm:"column:oracle_roles;type:text" json:"oracle_roles"`
	SystemPrivileges    string `gorm:"column:system_privileges;type:text" json:"system_privileges"`

	// Normalized snapshot (JSON PermissionSnapshot document).
	Snapshot string `gorm:"column:snapshot;type:text" json:"snapshot"`

	Attributes string    `gorm:"column:attributes;type:text" json:"attributes"`
	Metadata   string    `gorm:"column:metadata;type:text" json:"metadata"`
	SyncedAt   time.Time `gorm:"column:synced_at" json:"synced_at"`
}

// TableName specifies the static table name for GORM.
// Required to override GORM's default pluralization behavior.
func (SyncedAccount) TableName() string {
	return "synced_accounts"
}

// LegacyCategoryColumns returns the legacy flat JSON documents keyed by
// snapshot category name. Empty columns are omitted.
func (a *SyncedAccount) LegacyCategoryColumns() map[string]string {
	cols := map[string]string{
		CategoryGlobalPrivileges:    a.GlobalPrivileges,
		CategoryDatabasePrivileges:  a.DatabasePrivileges,
		CategoryRoles:               a.Roles,
		CategoryPredefinedRoles:     a.PredefinedRoles,
		CategoryRoleAttributes:      a.RoleAttributes,
		CategoryServerRoles:         a.ServerRoles,
		CategoryServerPermissions:   a.ServerPermissions,
		CategoryDatabaseRoles:       a.DatabaseRoles,
		CategoryDatabasePermissions: a.DatabasePermissions,
		CategoryOracleRoles:         a.OracleRoles,
		CategorySystemPrivileges:    a.SystemPrivileges,
	}
	for k, v := range cols {
		if v == "" {
			delete(cols, k)
		}
	}
	return cols
}
