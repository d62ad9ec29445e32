package inventory

import (
	"context"
	"errors"
	"testing"
)

func TestGroupRepository_CreateAndList(t *testing.T) {
	db := testDB(t)
	groupRepo := NewGroupRepository(db)
	serverRepo := NewServerRepository(db)
	ctx := context.Background()

	group := &ServerGroup{Name: "production", Description: "Prod fleet"}
	if err := groupRepo.Create(ctx, group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if group.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	// Attach two servers to the group
	for _, name := range []string{"web-01", "web-02"} {
		server := seedTestServer(t, db, name, StatusOnline)
		if _, err := serverRepo.Update(ctx, server.ID, ServerUpdate{GroupID: &group.ID}); err != nil {
			t.Fatalf("Update(group) error = %v", err)
		}
	}

	groups, err := groupRepo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].ServerCount != 2 {
		t.Errorf("ServerCount = %d, want 2", groups[0].ServerCount)
	}
	if groups[0].Description != "Prod fleet" {
		t.Errorf("Description = %q, want %q", groups[0].Description, "Prod fleet")
	}
}

func TestGroupRepository_DuplicateName(t *testing.T) {
	db := testDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &ServerGroup{Name: "staging"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, &ServerGroup{Name: "staging"})
	if !errors.Is(err, ErrGroupNameExists) {
		t.Errorf("Create(duplicate) error = %v, want ErrGroupNameExists", err)
	}
}

func TestGroupRepository_Delete_DetachesServers(t *testing.T) {
	db := testDB(t)
	groupRepo := NewGroupRepository(db)
	serverRepo := NewServerRepository(db)
	ctx := context.Background()

	group := &ServerGroup{Name: "ephemeral"}
	if err := groupRepo.Create(ctx, group); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	server := seedTestServer(t, db, "web-01", StatusOnline)
	if _, err := serverRepo.Update(ctx, server.ID, ServerUpdate{GroupID: &group.ID}); err != nil {
		t.Fatalf("Update(group) error = %v", err)
	}

	if err := groupRepo.Delete(ctx, group.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Server survives with its group detached
	got, err := serverRepo.GetByID(ctx, server.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.GroupID != "" {
		t.Errorf("GroupID = %q, want empty after group delete", got.GroupID)
	}

	// Deleting a missing group is a no-op
	if err := groupRepo.Delete(ctx, "grp-missing"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}

func TestGroupRepository_List_Empty(t *testing.T) {
	db := testDB(t)
	repo := NewGroupRepository(db)

	groups, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if groups == nil {
		t.Error("List() should return an empty slice, not nil")
	}
}
