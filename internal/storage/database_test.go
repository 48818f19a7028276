package storage

import (
	"testing"

	"github.com/go-sql-driver/mysql"

	"vibestack/internal/config"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	// idempotent
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO items (id, name, image_url, category_id) VALUES ('a', 'n', 'u', 'c')`); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	var imageURL, categoryID string
	if err := db.QueryRow(`SELECT image_url, category_id FROM items WHERE id = 'a'`).Scan(&imageURL, &categoryID); err != nil {
		t.Fatalf("query item: %v", err)
	}
	if imageURL != "u" || categoryID != "c" {
		t.Fatalf("unexpected row: %q %q", imageURL, categoryID)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{"postgres": {}}}
	if _, err := Open("postgres", cfg); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open("mysql", cfg); err == nil {
		t.Fatalf("expected missing config error")
	}
	if err := Migrate(nil, "postgres"); err == nil {
		t.Fatalf("expected unsupported migration error")
	}
}

func TestMySQLDSNFromFields(t *testing.T) {
	dsn, err := mysqlDSN(config.DatabaseConfig{
		Host:     "db",
		Username: "app",
		Password: "pw",
		DBName:   "vibe",
		Params:   "charset=utf8mb4&loc=UTC",
	})
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse dsn %q: %v", dsn, err)
	}
	if parsed.Addr != "db:3306" || parsed.User != "app" || parsed.Passwd != "pw" || parsed.DBName != "vibe" {
		t.Fatalf("unexpected dsn fields: %+v", parsed)
	}
	if !parsed.ParseTime {
		t.Fatalf("expected parseTime to be enabled")
	}
	if parsed.Loc.String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", parsed.Loc)
	}
}

func TestMySQLDSNRejectsBadParams(t *testing.T) {
	if _, err := mysqlDSN(config.DatabaseConfig{Host: "db", Params: "%zz"}); err == nil {
		t.Fatalf("expected params parse error")
	}
}
