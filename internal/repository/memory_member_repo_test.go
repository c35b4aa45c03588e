package repository

import (
	"context"
	"testing"

	"github.com/hitoshi/teamcal/internal/model"
)

func TestInMemoryMemberRepo_Create_AssignsMonotonicIDs(t *testing.T) {
	repo := NewInMemoryMemberRepo(nil)
	ctx := context.Background()

	first, err := repo.Create(ctx, "Taro", "taro@example.com", "taro@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := repo.Create(ctx, "Hanako", "hanako@example.com", "hanako@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if first.ID != 1 {
		t.Errorf("first.ID = %d, want 1", first.ID)
	}
	if second.ID <= first.ID {
		t.Errorf("second.ID = %d, want > %d", second.ID, first.ID)
	}

	members, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(members) != 2 {
		t.Errorf("len(members) = %d, want 2", len(members))
	}
}

func TestInMemoryMemberRepo_Seed_PreservesIDsAndContinuesNumbering(t *testing.T) {
	seed := []model.Member{
		{ID: 1, Name: "Taro", Email: "taro@example.com", CalendarID: "taro@example.com"},
		{ID: 5, Name: "Hanako", Email: "hanako@example.com", CalendarID: "hanako@example.com"},
	}
	repo := NewInMemoryMemberRepo(seed)
	ctx := context.Background()

	created, err := repo.Create(ctx, "Jiro", "jiro@example.com", "jiro@example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// 採番はシード中の最大IDの次から続く
	if created.ID != 6 {
		t.Errorf("created.ID = %d, want 6", created.ID)
	}

	members, _ := repo.List(ctx)
	if len(members) != 3 {
		t.Fatalf("len(members) = %d, want 3", len(members))
	}
	// ID昇順
	for i := 1; i < len(members); i++ {
		if members[i-1].ID >= members[i].ID {
			t.Errorf("members not sorted by ID: %v", members)
		}
	}
}

func TestInMemoryMemberRepo_FindByID(t *testing.T) {
	repo := NewInMemoryMemberRepo(nil)
	ctx := context.Background()

	created, _ := repo.Create(ctx, "Taro", "taro@example.com", "cal-taro")

	found, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found == nil {
		t.Fatal("expected member, got nil")
	}
	if found.CalendarID != "cal-taro" {
		t.Errorf("CalendarID = %q, want %q", found.CalendarID, "cal-taro")
	}

	missing, err := repo.FindByID(ctx, 999)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown ID, got %+v", missing)
	}
}
