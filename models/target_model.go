package models

import (
	"strconv"
	"strings"
)

// TargetSystem represents a remote database server registered for account
// synchronization. Stores connection details and the engine version captured
// at registration time; version-gated features (MySQL roles) read it from
// here instead of probing the live server.
type TargetSystem struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"column:name" json:"name"`                              // Target display name
	Engine      string `gorm:"column:engine" json:"engine" validate:"required"`      // Engine identifier (mysql, postgresql, sqlserver, oracle)
	Host        string `gorm:"column:host" json:"host" validate:"required"`          // Database server host
	Port        int    `gorm:"column:port" json:"port" validate:"required,gt=0"`     // Database server port
	Username    string `gorm:"column:username" json:"username" validate:"required"`  // Authentication username
	Password    string `gorm:"column:password" json:"password"`                      // Authentication password
	DatabaseName string `gorm:"column:database_name" json:"database_name"`           // Initial database (postgres/sqlserver)
	ServiceName string `gorm:"column:service_name" json:"service_name"`              // Oracle service name
	Version     string `gorm:"column:version" json:"version"`                        // Server version string captured at registration
	Status      string `gorm:"column:status;default:enabled" json:"status"`          // enabled/disabled for sync runs
	Description string `gorm:"column:description" json:"description"`
}

// TableName specifies the static table name for GORM.
// Required to override GORM's default pluralization behavior.
func (TargetSystem) TableName() string {
	return "target_systems"
}

// MajorVersion parses the leading major version number out of the recorded
// version string ("8.0.36-log" -> 8). Returns 0 when no version was recorded.
func (t *TargetSystem) MajorVersion() int {
	v := strings.TrimSpace(t.Version)
	if v == "" {
		return 0
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			v = v[:i]
			break
		}
	}
	major, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return major
}
