package targetconn

import (
	"strings"
	"testing"

	"dbaccountsync/models"
)

func baseTarget(engine string) *models.TargetSystem {
	return &models.TargetSystem{
		Name:     "t",
		Engine:   engine,
		Host:     "db.example.com",
		Port:     5432,
		Username: "sync_svc",
		Password: "p@ss/word",
	}
}

func TestDriverDSNMySQL(t *testing.T) {
	target := baseTarget("mysql")
	target.Port = 3306

	driver, dsn, err := driverDSN(target)
	if err != nil {
		t.Fatalf("driverDSN: %v", err)
	}
	if driver != "mysql" {
		t.Errorf("Expected mysql driver, got %q", driver)
	}
	if !strings.Contains(dsn, "@tcp(db.example.com:3306)/") || !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("Unexpected DSN %q", dsn)
	}
}

func TestDriverDSNPostgres(t *testing.T) {
	target := baseTarget("postgresql")
	target.DatabaseName = "inventory"

	driver, dsn, err := driverDSN(target)
	if err != nil {
		t.Fatalf("driverDSN: %v", err)
	}
	if driver != "pgx" {
		t.Errorf("Expected pgx driver, got %q", driver)
	}
	if !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "/inventory?") {
		t.Errorf("Unexpected DSN %q", dsn)
	}
	if strings.Contains(dsn, "p@ss/word") {
		t.Errorf("Expected password escaped in DSN %q", dsn)
	}

	target.DatabaseName = ""
	_, dsn, _ = driverDSN(target)
	if !strings.Contains(dsn, "/postgres?") {
		t.Errorf("Expected default postgres database in DSN %q", dsn)
	}
}

func TestDriverDSNSQLServer(t *testing.T) {
	target := baseTarget("sqlserver")
	target.Port = 1433
	target.DatabaseName = "master"

	driver, dsn, err := driverDSN(target)
	if err != nil {
		t.Fatalf("driverDSN: %v", err)
	}
	if driver != "sqlserver" {
		t.Errorf("Expected sqlserver driver, got %q", driver)
	}
	if !strings.HasPrefix(dsn, "sqlserver://") || !strings.Contains(dsn, "db.example.com:1433") {
		t.Errorf("Unexpected DSN %q", dsn)
	}
	if !strings.Contains(dsn, "database=master") {
		t.Errorf("Expected database parameter in DSN %q", dsn)
	}
}

func TestDriverDSNOracle(t *testing.T) {
	target := baseTarget("oracle")
	target.Port = 1521
	target.ServiceName = "ORCLPDB1"

	driver, dsn, err := driverDSN(target)
	if err != nil {
		t.Fatalf("driverDSN: %v", err)
	}
	if driver != "oracle" {
		t.Errorf("Expected oracle driver, got %q", driver)
	}
	if !strings.HasPrefix(dsn, "oracle://") || !strings.HasSuffix(dsn, "/ORCLPDB1") {
		t.Errorf("Unexpected DSN %q", dsn)
	}

	target.ServiceName = ""
	if _, _, err := driverDSN(target); err == nil {
		t.Error("Expected error for oracle target without service name")
	}
}

func TestDriverDSNUnknownEngine(t *testing.T) {
	if _, _, err := driverDSN(baseTarget("mongodb")); err == nil {
		t.Error("Expected error for unsupported engine")
	}
}
