package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/honeynil/hive"
	"github.com/honeynil/hive/drivers/clickhouse"
	"github.com/honeynil/hive/drivers/mssql"
	"github.com/honeynil/hive/drivers/mysql"
	"github.com/honeynil/hive/drivers/postgres"
	"github.com/honeynil/hive/drivers/redis"
	"github.com/honeynil/hive/drivers/sqlite"
	"github.com/honeynil/hive/drivers/ydb"
)

// Driver name constants.
//
// These constants define the recognized driver names that can be used
// in configuration. Some drivers have multiple aliases for convenience.
const (
	DriverPostgres    = "postgres"
	DriverPostgreSQL  = "postgresql"
	DriverCockroachDB = "cockroachdb"
	DriverMySQL       = "mysql"
	DriverMariaDB     = "mariadb"
	DriverSQLite      = "sqlite"
	DriverSQLite3     = "sqlite3"
	DriverSQLServer   = "sqlserver"
	DriverMSSQL       = "mssql"
	DriverClickHouse  = "clickhouse"
	DriverYDB         = "ydb"
	DriverRedis       = "redis"

	// SQL driver names used with database/sql.
	// These are the actual driver names registered with sql.Register().
	SQLDriverPostgres   = "pgx"
	SQLDriverMySQL      = "mysql"
	SQLDriverSQLite     = "sqlite3"
	SQLDriverSQLServer  = "sqlserver"
	SQLDriverClickHouse = "clickhouse"
	SQLDriverYDB        = "ydb"
)

// getSQLDriverName maps hive driver names to their database/sql driver names.
//
// If the driver name is not recognized, it returns the input unchanged as a passthrough.
func getSQLDriverName(driverName string) string {
	switch driverName {
	case DriverPostgres, DriverPostgreSQL, DriverCockroachDB:
		return SQLDriverPostgres
	case DriverMySQL, DriverMariaDB:
		return SQLDriverMySQL
	case DriverSQLite, DriverSQLite3:
		return SQLDriverSQLite
	case DriverSQLServer, DriverMSSQL:
		return SQLDriverSQLServer
	case DriverClickHouse:
		return SQLDriverClickHouse
	case DriverYDB:
		return SQLDriverYDB
	default:
		return driverName
	}
}

// openDriver connects to the configured tracking store.
func (app *App) openDriver(ctx context.Context) (hive.Driver, error) {
	if app.config.Driver == DriverRedis {
		d, err := redis.OpenWithKey(app.config.DSN, app.tableName())
		if err != nil {
			return nil, err
		}
		if err := d.Init(ctx); err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return d, nil
	}

	var (
		db  *sql.DB
		err error
	)
	if app.dbOpener != nil {
		db, err = app.dbOpener(getSQLDriverName(app.config.Driver), app.config.DSN)
	} else {
		db, err = sql.Open(getSQLDriverName(app.config.Driver), app.config.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver, err := app.createDriver(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return driver, nil
}

// createDriver wraps db in the driver matching the configured name.
func (app *App) createDriver(db *sql.DB) (hive.Driver, error) {
	table := app.tableName()

	switch app.config.Driver {
	case DriverPostgres, DriverPostgreSQL, DriverCockroachDB, SQLDriverPostgres:
		return postgres.NewWithTableName(db, table), nil

	case DriverMySQL, DriverMariaDB:
		return mysql.NewWithTableName(db, table), nil

	case DriverSQLite, DriverSQLite3:
		return sqlite.NewWithTableName(db, table), nil

	case DriverSQLServer, DriverMSSQL:
		return mssql.NewWithTableName(db, table), nil

	case DriverClickHouse:
		return clickhouse.NewWithTableName(db, table), nil

	case DriverYDB:
		return ydb.NewWithTableName(db, table), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s (supported: postgres, cockroachdb, mysql, sqlite, sqlserver, clickhouse, ydb, redis)", app.config.Driver)
	}
}

func (app *App) tableName() string {
	if app.config.Table == "" {
		return DefaultTableName
	}
	return app.config.Table
}
