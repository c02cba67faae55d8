// Package database holds the SQLite-backed user store. The realtime core
// only ever asks one question of it: does this account exist. Account
// creation is exposed so operators and tests can seed users; signup, login
// and password verification live elsewhere.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrUserExists indicates the user id is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates no user with that id.
	ErrUserNotFound = errors.New("user not found")
)

// User is one registered account.
type User struct {
	ID       string
	Username string
	Email    string
	PwdHash  string
}

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
}

// Open opens the SQLite database at path and initializes the schema if
// needed. WAL mode allows concurrent readers while a writer is active.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id       TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email    TEXT NOT NULL UNIQUE,
			pwd_hash TEXT NOT NULL
		)
	`)
	return err
}

// UserExists reports whether a user with the given id is registered.
func (db *DB) UserExists(userID string) (bool, error) {
	var one int
	err := db.conn.QueryRow("SELECT 1 FROM users WHERE id = ?", userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query user: %w", err)
	}
	return true, nil
}

// CreateUser inserts a new user record.
func (db *DB) CreateUser(u User) error {
	exists, err := db.UserExists(u.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrUserExists, u.ID)
	}

	_, err = db.conn.Exec(
		"INSERT INTO users (id, username, email, pwd_hash) VALUES (?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.PwdHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (db *DB) GetUser(userID string) (*User, error) {
	var u User
	err := db.conn.QueryRow(
		"SELECT id, username, email, pwd_hash FROM users WHERE id = ?", userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
