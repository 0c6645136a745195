package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"dbaccountsync/config"
	"dbaccountsync/models"

	"gorm.io/gorm"
)

// SyncedAccountRepository provides data access operations for persisted
// synchronized account rows.
type SyncedAccountRepository interface {
	ReplaceForTarget(tx *gorm.DB, targetID uint, accounts []*models.RemoteAccount) error
	Sample(tx *gorm.DB, limit int) ([]models.SyncedAccount, error)
}

type syncedAccountRepository struct {
	db *gorm.DB
}

// NewSyncedAccountRepository creates a new synchronized account repository instance.
func NewSyncedAccountRepository() SyncedAccountRepository {
	return &syncedAccountRepository{
		db: config.DB,
	}
}

// ReplaceForTarget replaces one target's persisted rows with the accounts of
// a fresh synchronization run.
func (r *syncedAccountRepository) ReplaceForTarget(tx *gorm.DB, targetID uint, accounts []*models.RemoteAccount) error {
	db := tx
	if db == nil {
		db = r.db
	}

	if err := db.Where("target_id = ?", targetID).Delete(&models.SyncedAccount{}).Error; err != nil {
		return fmt.Errorf("failed to clear previous accounts for target %d: %w", targetID, err)
	}

	now := time.Now()
	for _, account := range accounts {
		row, err := toSyncedAccount(targetID, account, now)
		if err != nil {
			return err
		}
		if err := db.Create(row).Error; err != nil {
			return fmt.Errorf("failed to persist account %s: %w", account.Username, err)
		}
	}
	return nil
}

// Sample returns up to limit persisted rows for the consistency verifier
// (limit 0 = full table).
func (r *syncedAccountRepository) Sample(tx *gorm.DB, limit int) ([]models.SyncedAccount, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var rows []models.SyncedAccount
	query := db.Model(models.SyncedAccount{}).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// toSyncedAccount maps an in-memory account to its persisted row, writing
// the snapshot column and the legacy flat columns side by side during the
// migration window.
func toSyncedAccount(targetID uint, account *models.RemoteAccount, syncedAt time.Time) (*models.SyncedAccount, error) {
	row := &models.SyncedAccount{
		TargetID:    targetID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		Engine:      account.Engine.String(),
		IsSuperuser: account.IsSuperuser,
		IsActive:    account.IsActive,
		IsLocked:    account.IsLocked,
		SyncedAt:    syncedAt,
	}

	snapshotJSON, err := json.Marshal(account.Permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot for %s: %w", account.Username, err)
	}
	row.Snapshot = string(snapshotJSON)

	if len(account.Attributes) > 0 {
		data, err := json.Marshal(account.Attributes)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal attributes for %s: %w", account.Username, err)
		}
		row.Attributes = string(data)
	}
	if len(account.Metadata) > 0 {
		data, err := json.Marshal(account.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata for %s: %w", account.Username, err)
		}
		row.Metadata = string(data)
	}

	for category, value := range account.Permissions.Categories {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal category %s for %s: %w", category, account.Username, err)
		}
		doc := string(data)
		switch category {
		case models.CategoryGlobalPrivileges:
			row.GlobalPrivileges = doc
		case models.CategoryDatabasePrivileges:
			row.DatabasePrivileges = doc
		case models.CategoryRoles:
			row.Roles = doc
		case models.CategoryPredefinedRoles:
			row.PredefinedRoles = doc
		case models.CategoryRoleAttributes:
			row.RoleAttributes = doc
		case models.CategoryServerRoles:
			row.ServerRoles = doc
		case models.CategoryServerPermissions:
			row.ServerPermissions = doc
		case models.CategoryDatabaseRoles:
			row.DatabaseRoles = doc
		case models.CategoryDatabasePermissions:
			row.DatabasePermissions = doc
		case models.CategoryOracleRoles:
			row.OracleRoles = doc
		case models.CategorySystemPrivileges:
			row.SystemPrivileges = doc
		}
	}
	return row, nil
}
