package server

import "testing"

func TestConnRegistryRegisterLookup(t *testing.T) {
	reg := NewConnRegistry()
	sess := newSession(1, newMockConn(), 10)

	if _, ok := reg.Lookup("alice"); ok {
		t.Error("lookup on empty registry should miss")
	}

	reg.Register("alice", sess)

	got, ok := reg.Lookup("alice")
	if !ok {
		t.Fatal("lookup should find registered user")
	}
	if got != sess {
		t.Error("lookup returned wrong session")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", reg.Len())
	}
}

func TestConnRegistryLastWriterWins(t *testing.T) {
	reg := NewConnRegistry()
	old := newSession(1, newMockConn(), 10)
	fresh := newSession(2, newMockConn(), 10)

	reg.Register("alice", old)
	reg.Register("alice", fresh)

	got, _ := reg.Lookup("alice")
	if got != fresh {
		t.Error("reconnect should replace the earlier entry")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 entry after reconnect, got %d", reg.Len())
	}
}

func TestConnRegistryUnregisterHandleMatch(t *testing.T) {
	reg := NewConnRegistry()
	old := newSession(1, newMockConn(), 10)
	fresh := newSession(2, newMockConn(), 10)

	reg.Register("alice", old)
	reg.Register("alice", fresh)

	// The old connection's slow teardown must not clobber the new binding.
	if reg.Unregister("alice", old) {
		t.Error("unregister with a stale handle should be a no-op")
	}
	if got, ok := reg.Lookup("alice"); !ok || got != fresh {
		t.Fatal("new binding should survive the old teardown")
	}

	if !reg.Unregister("alice", fresh) {
		t.Error("unregister with the current handle should remove the entry")
	}
	if _, ok := reg.Lookup("alice"); ok {
		t.Error("entry should be gone")
	}

	// Unregister on a missing entry is safe.
	if reg.Unregister("alice", fresh) {
		t.Error("unregister on a missing entry should report false")
	}
}

func TestConnRegistryIDs(t *testing.T) {
	reg := NewConnRegistry()
	reg.Register("alice", newSession(1, newMockConn(), 10))
	reg.Register("bob", newSession(2, newMockConn(), 10))

	ids := reg.IDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen["alice"] || !seen["bob"] {
		t.Errorf("unexpected id snapshot %v", ids)
	}
}

func TestConnRegistrySessions(t *testing.T) {
	reg := NewConnRegistry()
	a := newSession(1, newMockConn(), 10)
	b := newSession(2, newMockConn(), 10)
	reg.Register("alice", a)
	reg.Register("bob", b)

	sessions := reg.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}
