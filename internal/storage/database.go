// Package storage opens the relational database holding the items table.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"vibestack/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured database for dbType and verifies the
// connection.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)
	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		db, err = openSQLite(dbCfg)
	case "mysql":
		db, err = openMySQL(dbCfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dbType, err)
	}
	return db, nil
}

func openSQLite(dbCfg config.DatabaseConfig) (*sql.DB, error) {
	if dbCfg.DSN == "" {
		return nil, fmt.Errorf("sqlite dsn must be provided")
	}
	db, err := sql.Open("sqlite3", dbCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if dbCfg.DSN == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func openMySQL(dbCfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := dbCfg.DSN
	if dsn == "" {
		var err error
		if dsn, err = mysqlDSN(dbCfg); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxIdleConns(10)
	return db, nil
}

// mysqlDSN builds a DSN from the discrete connection fields. Params is a
// query string such as "charset=utf8mb4&loc=Local".
func mysqlDSN(dbCfg config.DatabaseConfig) (string, error) {
	mc := mysql.NewConfig()
	mc.User = dbCfg.Username
	mc.Passwd = dbCfg.Password
	mc.Net = "tcp"
	port := dbCfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(dbCfg.Host, strconv.Itoa(port))
	mc.DBName = dbCfg.DBName
	mc.ParseTime = true

	params := dbCfg.Params
	if params == "" {
		params = "charset=utf8mb4"
	}
	values, err := url.ParseQuery(params)
	if err != nil {
		return "", fmt.Errorf("parse mysql params: %w", err)
	}
	for k := range values {
		if k == "parseTime" {
			continue
		}
		if mc.Params == nil {
			mc.Params = make(map[string]string)
		}
		mc.Params[k] = values.Get(k)
	}
	return mc.FormatDSN(), nil
}

var schema = map[string][]string{
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			image_url TEXT,
			category_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS items (
			id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			image_url TEXT,
			category_id VARCHAR(36),
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			INDEX idx_items_created_at (created_at),
			INDEX idx_items_category (category_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

// Migrate creates the items table and its indexes when missing.
func Migrate(db *sql.DB, driver string) error {
	key := strings.ToLower(driver)
	if key == "sqlite" {
		key = "sqlite3"
	}
	stmts, ok := schema[key]
	if !ok {
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
