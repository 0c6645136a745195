package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"dbaccountsync/models"
)

func openMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

func sampleAccount() *models.RemoteAccount {
	account := models.NewRemoteAccount("alice@%", models.EngineMySQL)
	account.DisplayName = "alice"
	account.IsActive = true
	account.Permissions.SetList(models.CategoryGlobalPrivileges, []string{"SELECT", "PROCESS"})
	account.Permissions.SetKeyed(models.CategoryDatabasePrivileges, map[string][]string{"appdb": {"INSERT"}})
	account.Permissions.SetList(models.CategoryRoles, []string{"app_rw"})
	account.Attributes["host"] = "%"
	return account
}

func TestToSyncedAccountWritesBothSchemas(t *testing.T) {
	account := sampleAccount()

	row, err := toSyncedAccount(7, account, time.Now())
	require.NoError(t, err)

	assert.Equal(t, uint(7), row.TargetID)
	assert.Equal(t, "alice@%", row.Username)
	assert.Equal(t, "mysql", row.Engine)

	// Legacy flat columns mirror the snapshot categories.
	assert.JSONEq(t, `["SELECT","PROCESS"]`, row.GlobalPrivileges)
	assert.JSONEq(t, `{"appdb":["INSERT"]}`, row.DatabasePrivileges)
	assert.JSONEq(t, `["app_rw"]`, row.Roles)
	assert.Empty(t, row.OracleRoles)

	var snapshot models.PermissionSnapshot
	require.NoError(t, json.Unmarshal([]byte(row.Snapshot), &snapshot))
	assert.Equal(t, models.SnapshotSchemaVersion, snapshot.SchemaVersion)
	assert.Contains(t, snapshot.Categories, models.CategoryGlobalPrivileges)

	cols := row.LegacyCategoryColumns()
	assert.Len(t, cols, 3)
}

func TestReplaceForTargetDeletesThenInserts(t *testing.T) {
	gdb, mock := openMockGorm(t)
	repo := &syncedAccountRepository{}

	mock.ExpectExec("DELETE FROM `synced_accounts`").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO `synced_accounts`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.ReplaceForTarget(gdb, 7, []*models.RemoteAccount{sampleAccount()})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForTargetEmptyRunClearsRows(t *testing.T) {
	gdb, mock := openMockGorm(t)
	repo := &syncedAccountRepository{}

	mock.ExpectExec("DELETE FROM `synced_accounts`").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.ReplaceForTarget(gdb, 7, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleLimit(t *testing.T) {
	gdb, mock := openMockGorm(t)
	repo := &syncedAccountRepository{}

	rows := sqlmock.NewRows([]string{"id", "username", "engine"}).
		AddRow(1, "alice@%", "mysql").
		AddRow(2, "bob@%", "mysql")
	mock.ExpectQuery("SELECT \\* FROM `synced_accounts`").WillReturnRows(rows)

	got, err := repo.Sample(gdb, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice@%", got[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}
