package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/teamcal/internal/model"
)

func newTestSession(id string) *model.Session {
	return &model.Session{
		ID: id,
		User: &model.SessionUser{
			Email: "taro@example.com",
			Name:  "Taro",
			Token: &model.OAuthToken{
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				Expiry:       time.Now().Add(time.Hour),
			},
		},
	}
}

func TestMemorySessionStore_CreateAndFind(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Create(ctx, newTestSession("s-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := store.FindByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found == nil {
		t.Fatal("expected session, got nil")
	}
	if found.User == nil || found.User.Email != "taro@example.com" {
		t.Errorf("User = %+v, want email taro@example.com", found.User)
	}
	if found.User.Token == nil || found.User.Token.AccessToken != "access-token" {
		t.Errorf("Token = %+v, want access-token", found.User.Token)
	}
}

func TestMemorySessionStore_FindUnknownID_ReturnsNil(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Stop()

	found, err := store.FindByID(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for unknown session, got %+v", found)
	}
}

func TestMemorySessionStore_ExpiredSession_ReturnsNil(t *testing.T) {
	// TTLを負にして作成直後から期限切れにする
	store := NewMemorySessionStore(-time.Minute)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Create(ctx, newTestSession("s-expired")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := store.FindByID(ctx, "s-expired")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for expired session, got %+v", found)
	}
}

func TestMemorySessionStore_Save_UpdatesUserAndSlidesExpiry(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Stop()
	ctx := context.Background()

	session := newTestSession("s-2")
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	firstExpiry := session.ExpiresAt

	// トークンクリア後の状態を保存
	session.User = nil
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := store.FindByID(ctx, "s-2")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found == nil {
		t.Fatal("expected session, got nil")
	}
	if found.User != nil {
		t.Errorf("User = %+v, want nil after clear", found.User)
	}
	if found.ExpiresAt.Before(firstExpiry) {
		t.Error("expected expiry to slide forward on Save")
	}
}

func TestMemorySessionStore_Delete_Idempotent(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Create(ctx, newTestSession("s-3")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.DeleteByID(ctx, "s-3"); err != nil {
		t.Fatalf("DeleteByID() error = %v", err)
	}
	// 2回目の削除もエラーにならない
	if err := store.DeleteByID(ctx, "s-3"); err != nil {
		t.Fatalf("second DeleteByID() error = %v", err)
	}

	found, err := store.FindByID(ctx, "s-3")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found != nil {
		t.Errorf("expected nil after delete, got %+v", found)
	}
}

func TestMemorySessionStore_FindReturnsCopy(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	defer store.Stop()
	ctx := context.Background()

	if err := store.Create(ctx, newTestSession("s-4")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, _ := store.FindByID(ctx, "s-4")
	// 取得したセッションを書き換えてもストアには反映されない
	first.User = nil

	second, _ := store.FindByID(ctx, "s-4")
	if second.User == nil {
		t.Error("mutating a found session should not affect the store")
	}
}
