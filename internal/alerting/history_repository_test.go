package alerting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHistoryRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	seedTestHost(t, db, "srv-aaa", "web-01")
	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	alert := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelCritical)

	if len(alert.ID) < 4 || alert.ID[:4] != "alr-" {
		t.Errorf("alert ID %q missing alr- prefix", alert.ID)
	}

	got, err := repo.GetByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusTriggered {
		t.Errorf("status = %q, want triggered", got.Status)
	}
	if got.RuleName != "High CPU" {
		t.Errorf("rule_name = %q, want High CPU", got.RuleName)
	}
	if got.Hostname != "web-01" {
		t.Errorf("hostname = %q, want web-01", got.Hostname)
	}
	if got.ResolvedAt != nil {
		t.Error("expected nil resolved_at on new alert")
	}
}

func TestHistoryRepository_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	_, err := repo.GetByID(context.Background(), "alr-missing")
	if !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("err = %v, want ErrAlertNotFound", err)
	}
}

func TestHistoryRepository_List_Filters(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	seedTestAlert(t, db, rule.ID, "srv-aaa", LevelCritical)
	seedTestAlert(t, db, rule.ID, "srv-bbb", LevelWarning)
	resolved := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelInfo)
	if _, err := repo.Resolve(context.Background(), resolved.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	alerts, total, err := repo.List(context.Background(), HistoryFilter{Level: LevelCritical})
	if err != nil {
		t.Fatalf("List by level: %v", err)
	}
	if total != 1 || len(alerts) != 1 {
		t.Errorf("level filter: total = %d, len = %d, want 1/1", total, len(alerts))
	}

	alerts, total, err = repo.List(context.Background(), HistoryFilter{Status: StatusTriggered})
	if err != nil {
		t.Fatalf("List by status: %v", err)
	}
	if total != 2 {
		t.Errorf("status filter total = %d, want 2", total)
	}

	alerts, total, err = repo.List(context.Background(), HistoryFilter{ServerID: "srv-bbb"})
	if err != nil {
		t.Fatalf("List by server: %v", err)
	}
	if total != 1 {
		t.Errorf("server filter total = %d, want 1", total)
	}
	if len(alerts) == 1 && alerts[0].ServerID != "srv-bbb" {
		t.Errorf("server = %q, want srv-bbb", alerts[0].ServerID)
	}
}

func TestHistoryRepository_List_TimeBounds(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	seedTestAlert(t, db, rule.ID, "srv-aaa", LevelWarning)

	_, total, err := repo.List(context.Background(), HistoryFilter{
		StartTime: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("List with start: %v", err)
	}
	if total != 1 {
		t.Errorf("recent window total = %d, want 1", total)
	}

	_, total, err = repo.List(context.Background(), HistoryFilter{
		EndTime: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("List with end: %v", err)
	}
	if total != 0 {
		t.Errorf("past window total = %d, want 0", total)
	}
}

func TestHistoryRepository_List_Empty(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	alerts, total, err := repo.List(context.Background(), HistoryFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if alerts == nil {
		t.Error("expected non-nil empty slice")
	}
}

func TestHistoryRepository_Resolve(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	alert := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelWarning)

	resolved, err := repo.Resolve(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Errorf("status = %q, want resolved", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("expected resolved_at to be set")
	}

	// Resolving again returns the same row, resolved_at untouched.
	again, err := repo.Resolve(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if !again.ResolvedAt.Equal(*resolved.ResolvedAt) {
		t.Error("resolved_at changed on repeat resolve")
	}
}

func TestHistoryRepository_Resolve_Missing(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	_, err := repo.Resolve(context.Background(), "alr-missing")
	if !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("err = %v, want ErrAlertNotFound", err)
	}
}

func TestHistoryRepository_BatchResolve(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	a := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelWarning)
	b := seedTestAlert(t, db, rule.ID, "srv-bbb", LevelWarning)

	resolved, err := repo.BatchResolve(context.Background(), []string{a.ID, b.ID, "alr-missing"})
	if err != nil {
		t.Fatalf("BatchResolve: %v", err)
	}
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2", resolved)
	}

	// Already-resolved IDs do not count a second time.
	resolved, err = repo.BatchResolve(context.Background(), []string{a.ID})
	if err != nil {
		t.Fatalf("repeat BatchResolve: %v", err)
	}
	if resolved != 0 {
		t.Errorf("repeat resolved = %d, want 0", resolved)
	}
}

func TestHistoryRepository_HasUnresolved(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	alert := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelWarning)

	exists, err := repo.HasUnresolved(context.Background(), rule.ID, "srv-aaa")
	if err != nil {
		t.Fatalf("HasUnresolved: %v", err)
	}
	if !exists {
		t.Error("expected unresolved alert to exist")
	}

	exists, err = repo.HasUnresolved(context.Background(), rule.ID, "srv-other")
	if err != nil {
		t.Fatalf("HasUnresolved other server: %v", err)
	}
	if exists {
		t.Error("expected no unresolved alert for other server")
	}

	if _, err := repo.Resolve(context.Background(), alert.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	exists, err = repo.HasUnresolved(context.Background(), rule.ID, "srv-aaa")
	if err != nil {
		t.Fatalf("HasUnresolved after resolve: %v", err)
	}
	if exists {
		t.Error("expected no unresolved alert after resolve")
	}
}

func TestHistoryRepository_Stats(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	seedTestAlert(t, db, rule.ID, "srv-aaa", LevelCritical)
	seedTestAlert(t, db, rule.ID, "srv-bbb", LevelWarning)
	resolved := seedTestAlert(t, db, rule.ID, "srv-ccc", LevelWarning)
	if _, err := repo.Resolve(context.Background(), resolved.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.Critical != 1 {
		t.Errorf("critical = %d, want 1", stats.Critical)
	}
	if stats.Warning != 2 {
		t.Errorf("warning = %d, want 2", stats.Warning)
	}
	if stats.Unresolved != 2 {
		t.Errorf("unresolved = %d, want 2", stats.Unresolved)
	}
}

func TestHistoryRepository_Trend(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	seedTestAlert(t, db, rule.ID, "srv-aaa", LevelCritical)
	seedTestAlert(t, db, rule.ID, "srv-bbb", LevelWarning)

	points, err := repo.Trend(context.Background())
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}
	if points[0].Critical != 1 || points[0].Warning != 1 {
		t.Errorf("point = %+v, want critical=1 warning=1", points[0])
	}
	if points[0].Date == "" {
		t.Error("expected non-empty date bucket")
	}
}

func TestHistoryRepository_Trend_Empty(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	points, err := repo.Trend(context.Background())
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if points == nil {
		t.Error("expected non-nil empty slice")
	}
}

func TestHistoryRepository_Recent(t *testing.T) {
	db := testDB(t)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	for i := 0; i < 7; i++ {
		seedTestAlert(t, db, rule.ID, "srv-aaa", LevelInfo)
	}

	recent, err := repo.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 5 {
		t.Errorf("len(recent) = %d, want 5", len(recent))
	}
}

func TestHistoryRepository_OrphanedRuleJoin(t *testing.T) {
	db := testDB(t)
	ruleRepo := NewRuleRepository(db)
	repo := NewHistoryRepository(db)

	rule := seedTestRule(t, db, "High CPU", MetricCPU, OpGreater, 90)
	alert := seedTestAlert(t, db, rule.ID, "srv-aaa", LevelWarning)

	if err := ruleRepo.Delete(context.Background(), rule.ID); err != nil {
		t.Fatalf("deleting rule: %v", err)
	}

	got, err := repo.GetByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("GetByID after rule delete: %v", err)
	}
	if got.RuleName != "" {
		t.Errorf("rule_name = %q, want empty after rule delete", got.RuleName)
	}
}
