package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/tastegate/internal/apperror"
	"github.com/sakif/tastegate/internal/model"
)

// newTestDB returns an in-memory database that disappears when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:): %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "a@x.com", PasswordHash: "$2a$04$fakehash"}
	if err := db.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create should set CreatedAt")
	}

	byEmail, err := db.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetByEmail ID = %q, want %q", byEmail.ID, user.ID)
	}
	if byEmail.PasswordHash != "$2a$04$fakehash" {
		t.Errorf("PasswordHash = %q", byEmail.PasswordHash)
	}
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.User{Email: "dup@x.com", PasswordHash: "h1"}
	if err := db.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	second := &model.User{Email: "dup@x.com", PasswordHash: "h2"}
	err := db.Create(ctx, second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Create error = %v, want ErrConflict", err)
	}

	// Idempotent rejection: the first account is unaffected
	got, err := db.GetByEmail(ctx, "dup@x.com")
	if err != nil {
		t.Fatalf("GetByEmail after conflict: %v", err)
	}
	if got.ID != first.ID || got.PasswordHash != "h1" {
		t.Errorf("first account was modified by the rejected duplicate: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetByEmail(ctx, "missing@x.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "gone@x.com", PasswordHash: "h"}
	if err := db.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := db.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := db.GetByEmail(ctx, "gone@x.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail after delete = %v, want ErrNotFound", err)
	}

	// Deleting again is not an error (rollback must be idempotent)
	if err := db.Delete(ctx, user.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
