package inventory

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the inventory schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "inventory-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE server_groups (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at  TEXT NOT NULL
		) STRICT;

		CREATE TABLE servers (
			id          TEXT PRIMARY KEY,
			hostname    TEXT NOT NULL,
			ip_address  TEXT NOT NULL,
			group_id    TEXT REFERENCES server_groups(id) ON DELETE SET NULL,
			status      TEXT NOT NULL DEFAULT 'offline'
			            CHECK (status IN ('online', 'offline', 'maintenance')),
			os          TEXT,
			cpu_cores   INTEGER,
			memory_gb   INTEGER,
			disk_gb     INTEGER,
			location    TEXT,
			description TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		) STRICT;

		CREATE TABLE assets (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			type        TEXT NOT NULL
			            CHECK (type IN ('rack', 'bandwidth', 'ip', 'hardware')),
			status      TEXT NOT NULL DEFAULT 'available'
			            CHECK (status IN ('available', 'in_use', 'reserved', 'retired')),
			value       TEXT,
			description TEXT,
			location    TEXT,
			server_id   TEXT REFERENCES servers(id) ON DELETE SET NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying inventory migration: %v", err)
	}

	return db
}

// seedTestServer inserts a server with the given hostname and status.
func seedTestServer(t *testing.T, db *sql.DB, hostname string, status ServerStatus) *Server {
	t.Helper()

	repo := NewServerRepository(db)
	server := &Server{
		Hostname:  hostname,
		IPAddress: "10.0.0.1",
		Status:    status,
	}
	if err := repo.Create(context.Background(), server); err != nil {
		t.Fatalf("creating test server %s: %v", hostname, err)
	}
	return server
}

// seedTestAsset inserts an asset with the given type and status.
func seedTestAsset(t *testing.T, db *sql.DB, name string, typ AssetType, status AssetStatus) *Asset {
	t.Helper()

	repo := NewAssetRepository(db)
	asset := &Asset{
		Name:   name,
		Type:   typ,
		Status: status,
	}
	if err := repo.Create(context.Background(), asset); err != nil {
		t.Fatalf("creating test asset %s: %v", name, err)
	}
	return asset
}
