package targetconn

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"

	"dbaccountsync/models"
	"dbaccountsync/utils"
)

const (
	maxOpenConns    = 4
	connMaxLifetime = 5 * time.Minute
)

// Open dials the remote database server described by the target and returns
// a live handle. The caller owns the handle and must close it after the sync
// run.
func Open(target *models.TargetSystem) (*sql.DB, error) {
	if err := utils.ValidateStruct(target); err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target.Name, err)
	}

	driver, dsn, err := driverDSN(target)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection to %q: %w", target.Engine, target.Name, err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

func driverDSN(target *models.TargetSystem) (string, string, error) {
	switch models.Engine(target.Engine) {
	case models.EngineMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/?parseTime=true&timeout=10s",
			target.Username, target.Password, target.Host, target.Port)
		return "mysql", dsn, nil
	case models.EnginePostgreSQL:
		database := target.DatabaseName
		if database == "" {
			database = "postgres"
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=prefer&connect_timeout=10",
			url.QueryEscape(target.Username), url.QueryEscape(target.Password),
			target.Host, target.Port, url.PathEscape(database))
		return "pgx", dsn, nil
	case models.EngineSQLServer:
		query := url.Values{}
		query.Set("encrypt", "true")
		query.Set("TrustServerCertificate", "true")
		query.Set("dial timeout", "10")
		if target.DatabaseName != "" {
			query.Set("database", target.DatabaseName)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(target.Username, target.Password),
			Host:     fmt.Sprintf("%s:%d", target.Host, target.Port),
			RawQuery: query.Encode(),
		}
		return "sqlserver", u.String(), nil
	case models.EngineOracle:
		if target.ServiceName == "" {
			return "", "", fmt.Errorf("oracle target %q has no service name", target.Name)
		}
		dsn := fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
			url.QueryEscape(target.Username), url.QueryEscape(target.Password),
			target.Host, target.Port, url.PathEscape(target.ServiceName))
		return "oracle", dsn, nil
	}
	return "", "", fmt.Errorf("no driver for engine %q", target.Engine)
}
