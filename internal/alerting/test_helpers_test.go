package alerting

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the alerting schema
// applied, plus the servers table the history join depends on. The
// database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "alerting-test-*.db")
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
		CREATE TABLE servers (
			id          TEXT PRIMARY KEY,
			hostname    TEXT NOT NULL,
			ip_address  TEXT NOT NULL,
			group_id    TEXT,
			status      TEXT NOT NULL DEFAULT 'offline',
			os          TEXT,
			cpu_cores   INTEGER,
			memory_gb   INTEGER,
			disk_gb     INTEGER,
			location    TEXT,
			description TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		) STRICT;

		CREATE TABLE alert_rules (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			metric     TEXT NOT NULL
			           CHECK (metric IN ('cpu_usage', 'memory_usage', 'disk_usage',
			                             'network_in', 'network_out', 'temperature')),
			threshold  REAL NOT NULL,
			operator   TEXT NOT NULL
			           CHECK (operator IN ('>', '<', '>=', '<=', '==')),
			duration   INTEGER NOT NULL DEFAULT 0,
			enabled    INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE alert_history (
			id          TEXT PRIMARY KEY,
			rule_id     TEXT REFERENCES alert_rules(id) ON DELETE SET NULL,
			server_id   TEXT REFERENCES servers(id) ON DELETE SET NULL,
			alert_level TEXT NOT NULL
			            CHECK (alert_level IN ('info', 'warning', 'critical')),
			message     TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'triggered'
			            CHECK (status IN ('triggered', 'resolved')),
			created_at  TEXT NOT NULL,
			resolved_at TEXT
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying alerting migration: %v", err)
	}

	return db
}

// seedTestRule inserts an enabled rule for the given metric and threshold.
func seedTestRule(t *testing.T, db *sql.DB, name string, metric Metric, op Operator, threshold float64) *Rule {
	t.Helper()

	repo := NewRuleRepository(db)
	rule := &Rule{
		Name:      name,
		Metric:    metric,
		Threshold: threshold,
		Operator:  op,
		Enabled:   true,
	}
	if err := repo.Create(context.Background(), rule); err != nil {
		t.Fatalf("creating test rule %s: %v", name, err)
	}
	return rule
}

// seedTestAlert inserts a triggered alert for the given rule and server.
func seedTestAlert(t *testing.T, db *sql.DB, ruleID, serverID string, level Level) *History {
	t.Helper()

	repo := NewHistoryRepository(db)
	alert := &History{
		RuleID:   ruleID,
		ServerID: serverID,
		Level:    level,
		Message:  "test alert",
	}
	if err := repo.Create(context.Background(), alert); err != nil {
		t.Fatalf("creating test alert: %v", err)
	}
	return alert
}

// seedTestHost inserts a bare server row so the hostname join resolves.
func seedTestHost(t *testing.T, db *sql.DB, id, hostname string) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO servers (id, hostname, ip_address, status, created_at, updated_at)
		 VALUES (?, ?, '10.0.0.1', 'online', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		id, hostname)
	if err != nil {
		t.Fatalf("creating test host %s: %v", hostname, err)
	}
}
