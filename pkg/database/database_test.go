package database

import (
	"errors"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserExists(t *testing.T) {
	db := openTestDB(t)

	exists, err := db.UserExists("u1")
	if err != nil {
		t.Fatalf("UserExists failed: %v", err)
	}
	if exists {
		t.Error("user should not exist in empty database")
	}

	err = db.CreateUser(User{ID: "u1", Username: "alice", Email: "alice@example.com", PwdHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	exists, err = db.UserExists("u1")
	if err != nil {
		t.Fatalf("UserExists failed: %v", err)
	}
	if !exists {
		t.Error("user should exist after creation")
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	db := openTestDB(t)

	u := User{ID: "u1", Username: "alice", Email: "alice@example.com", PwdHash: "x"}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	err := db.CreateUser(u)
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	db := openTestDB(t)

	want := User{ID: "u1", Username: "alice", Email: "alice@example.com", PwdHash: "h"}
	if err := db.CreateUser(want); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if *got != want {
		t.Errorf("GetUser = %+v, want %+v", *got, want)
	}

	_, err = db.GetUser("nope")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCountUsers(t *testing.T) {
	db := openTestDB(t)

	n, err := db.CountUsers()
	if err != nil {
		t.Fatalf("CountUsers failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 users, got %d", n)
	}

	for i, id := range []string{"u1", "u2", "u3"} {
		err := db.CreateUser(User{ID: id, Username: id, Email: id + "@example.com", PwdHash: "x"})
		if err != nil {
			t.Fatalf("CreateUser %d failed: %v", i, err)
		}
	}

	n, err = db.CountUsers()
	if err != nil {
		t.Fatalf("CountUsers failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 users, got %d", n)
	}
}
