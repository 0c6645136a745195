package oracle

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"dbaccountsync/models"
)

func testTarget() *models.TargetSystem {
	return &models.TargetSystem{
		ID:          4,
		Name:        "ora-test",
		Engine:      "oracle",
		Host:        "db.example.com",
		Port:        1521,
		ServiceName: "ORCLPDB1",
		Version:     "19.0.0",
	}
}

func TestFetchRawAccountsAndNormalize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	columns := []string{"USERNAME", "USER_ID", "ACCOUNT_STATUS", "LOCK_DATE", "EXPIRY_DATE",
		"DEFAULT_TABLESPACE", "TEMPORARY_TABLESPACE", "PROFILE", "AUTHENTICATION_TYPE"}
	mock.ExpectQuery("FROM dba_users").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("APP_OWNER", 101, "OPEN", nil, "2027-03-01", "USERS", "TEMP", "DEFAULT", "PASSWORD").
			AddRow("OLD_BATCH", 102, "EXPIRED & LOCKED", "2025-11-02", nil, "USERS", "TEMP", "DEFAULT", "PASSWORD"))

	adapter := &Adapter{}
	target := testTarget()
	raws := adapter.FetchRawAccounts(context.Background(), target, db)
	if len(raws) != 2 {
		t.Fatalf("Expected 2 raw rows, got %d", len(raws))
	}

	owner := adapter.NormalizeAccount(target, raws[0])
	if owner.Username != "APP_OWNER" || !owner.IsActive || owner.IsLocked {
		t.Errorf("Unexpected account %+v", owner)
	}
	if owner.Attributes["default_tablespace"] != "USERS" || owner.Attributes["profile"] != "DEFAULT" {
		t.Errorf("Unexpected attributes %v", owner.Attributes)
	}
	if owner.Permissions.TypeSpecific["authentication_type"] != "PASSWORD" {
		t.Errorf("Unexpected type_specific %v", owner.Permissions.TypeSpecific)
	}

	batch := adapter.NormalizeAccount(target, raws[1])
	if !batch.IsLocked || batch.IsActive {
		t.Errorf("Expected EXPIRED & LOCKED account locked and inactive, got %+v", batch)
	}
	if batch.Attributes["account_status"] != "EXPIRED & LOCKED" {
		t.Errorf("Unexpected status attribute %v", batch.Attributes)
	}
}

func TestNormalizeAccountLowercaseColumns(t *testing.T) {
	adapter := &Adapter{}

	account := adapter.NormalizeAccount(testTarget(), map[string]interface{}{
		"username":       "app_owner",
		"account_status": "LOCKED",
		"profile":        "APP_PROFILE",
	})
	if account == nil {
		t.Fatal("Expected lowercase columns to normalize")
	}
	if account.Username != "app_owner" || !account.IsLocked || account.IsActive {
		t.Errorf("Unexpected account %+v", account)
	}
	if account.Attributes["profile"] != "APP_PROFILE" {
		t.Errorf("Unexpected attributes %v", account.Attributes)
	}
}

func TestEnrichPermissions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	adapter := &Adapter{}
	account := models.NewRemoteAccount("APP_OWNER", models.EngineOracle)

	mock.ExpectQuery("FROM dba_role_privs").
		WithArgs("APP_OWNER").
		WillReturnRows(sqlmock.NewRows([]string{"granted_role"}).
			AddRow("CONNECT").
			AddRow("RESOURCE"))
	mock.ExpectQuery("FROM dba_sys_privs").
		WithArgs("APP_OWNER").
		WillReturnRows(sqlmock.NewRows([]string{"privilege"}).
			AddRow("CREATE SESSION").
			AddRow("CREATE TABLE"))
	mock.ExpectQuery("FROM dba_ts_quotas").
		WithArgs("APP_OWNER").
		WillReturnRows(sqlmock.NewRows([]string{"tablespace_name", "max_bytes"}).
			AddRow("USERS", int64(-1)).
			AddRow("STAGING", int64(104857600)))

	adapter.EnrichPermissions(context.Background(), testTarget(), db, []*models.RemoteAccount{account}, nil)

	roles := account.Permissions.Categories[models.CategoryOracleRoles].([]string)
	if !reflect.DeepEqual(roles, []string{"CONNECT", "RESOURCE"}) {
		t.Errorf("Unexpected roles %v", roles)
	}
	privs := account.Permissions.Categories[models.CategorySystemPrivileges].([]string)
	if !reflect.DeepEqual(privs, []string{"CREATE SESSION", "CREATE TABLE"}) {
		t.Errorf("Unexpected system privileges %v", privs)
	}

	quotas := account.Permissions.TypeSpecific["tablespace_quotas"].(map[string]string)
	want := map[string]string{"USERS": "UNLIMITED", "STAGING": "104857600"}
	if !reflect.DeepEqual(quotas, want) {
		t.Errorf("Expected quotas %v, got %v", want, quotas)
	}
	if len(account.Permissions.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", account.Permissions.Errors)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnrichPermissionsFailuresStayPerAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	adapter := &Adapter{}
	broken := models.NewRemoteAccount("BROKEN", models.EngineOracle)
	healthy := models.NewRemoteAccount("HEALTHY", models.EngineOracle)

	mock.ExpectQuery("FROM dba_role_privs").WithArgs("BROKEN").
		WillReturnError(fmt.Errorf("ORA-00942: table or view does not exist"))
	mock.ExpectQuery("FROM dba_sys_privs").WithArgs("BROKEN").
		WillReturnError(fmt.Errorf("ORA-00942: table or view does not exist"))
	mock.ExpectQuery("FROM dba_ts_quotas").WithArgs("BROKEN").
		WillReturnError(fmt.Errorf("ORA-00942: table or view does not exist"))

	mock.ExpectQuery("FROM dba_role_privs").WithArgs("HEALTHY").
		WillReturnRows(sqlmock.NewRows([]string{"granted_role"}).AddRow("CONNECT"))
	mock.ExpectQuery("FROM dba_sys_privs").WithArgs("HEALTHY").
		WillReturnRows(sqlmock.NewRows([]string{"privilege"}))
	mock.ExpectQuery("FROM dba_ts_quotas").WithArgs("HEALTHY").
		WillReturnRows(sqlmock.NewRows([]string{"tablespace_name", "max_bytes"}))

	accounts := adapter.EnrichPermissions(context.Background(), testTarget(), db,
		[]*models.RemoteAccount{broken, healthy}, nil)

	if len(accounts) != 2 {
		t.Fatalf("Expected both accounts retained, got %d", len(accounts))
	}
	if len(broken.Permissions.Errors) != 3 {
		t.Errorf("Expected three recorded errors on broken account, got %v", broken.Permissions.Errors)
	}
	if len(healthy.Permissions.Errors) != 0 {
		t.Errorf("Expected healthy account clean, got %v", healthy.Permissions.Errors)
	}
	roles := healthy.Permissions.Categories[models.CategoryOracleRoles].([]string)
	if !reflect.DeepEqual(roles, []string{"CONNECT"}) {
		t.Errorf("Unexpected roles %v", roles)
	}
	if _, ok := healthy.Permissions.TypeSpecific["tablespace_quotas"]; ok {
		t.Error("Expected empty quota set omitted from type_specific")
	}
}
