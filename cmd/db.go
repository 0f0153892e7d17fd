package cmd

import (
	"database/sql"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// openDatabase opens and pings a MySQL pool. The repositories scan DATETIME
// columns into time.Time, so parseTime is forced on and timestamps stay in UTC.
func openDatabase(dsn string) (*sql.DB, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openDatabaseFromEnv is used by the maintenance commands, which only need
// MYSQL_DSN and not the JWT secrets config.Load insists on.
func openDatabaseFromEnv() (*sql.DB, error) {
	_ = godotenv.Load()

	dsn := strings.TrimSpace(os.Getenv("MYSQL_DSN"))
	if dsn == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}
	return openDatabase(dsn)
}
