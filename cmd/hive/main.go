// Command hive validates migration dependency graphs and reports tracked
// status for a modules directory.
package main

import (
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/ydb-platform/ydb-go-sdk/v3"

	"github.com/honeynil/hive/cli"
)

func main() {
	cli.Run()
}
