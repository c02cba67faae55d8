package server

// UserStore defines the identity operations the realtime core consumes.
// The shipped implementation is the SQLite store in pkg/database; tests use
// an in-memory mock.
type UserStore interface {
	// UserExists reports whether the account id belongs to a registered user.
	UserExists(userID string) (bool, error)

	// Close the store.
	Close() error
}
