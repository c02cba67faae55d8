package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSessionSendDropOldest(t *testing.T) {
	sess := newSession(1, newMockConn(), 3)

	for i := 0; i < 3; i++ {
		if !sess.Send([]byte(fmt.Sprintf("msg-%d", i))) {
			t.Fatalf("send %d should succeed with room in the queue", i)
		}
	}
	if sess.QueueLen() != 3 {
		t.Fatalf("expected full queue, got %d", sess.QueueLen())
	}

	// Overflow: the oldest entry makes way for the newest.
	if !sess.Send([]byte("msg-3")) {
		t.Fatal("overflow send should still enqueue")
	}
	if sess.QueueLen() != 3 {
		t.Fatalf("queue should stay at capacity, got %d", sess.QueueLen())
	}

	want := []string{"msg-1", "msg-2", "msg-3"}
	for i, w := range want {
		got := <-sess.outbound
		if string(got) != w {
			t.Errorf("drain %d = %q, want %q", i, got, w)
		}
	}
}

func TestSessionBindUser(t *testing.T) {
	sess := newSession(1, newMockConn(), 10)

	if sess.UserID() != "" {
		t.Error("fresh session should have no bound user")
	}

	if prev := sess.bindUser("alice"); prev != "" {
		t.Errorf("expected empty previous binding, got %q", prev)
	}
	if sess.UserID() != "alice" {
		t.Errorf("UserID = %q, want alice", sess.UserID())
	}

	if prev := sess.bindUser("bob"); prev != "alice" {
		t.Errorf("expected previous binding alice, got %q", prev)
	}
}

func TestWriteLoopDrainsQueue(t *testing.T) {
	srv := testServer(t)
	conn := newMockConn()
	sess := srv.addSession(conn)

	sess.Send([]byte(`{"op_code":"OK","value":"one"}`))
	sess.Send([]byte(`{"op_code":"OK","value":"two"}`))

	waitFor(t, func() bool { return len(conn.Writes()) == 2 })

	writes := conn.Writes()
	if string(writes[0]) != `{"op_code":"OK","value":"one"}` {
		t.Errorf("first write = %s", writes[0])
	}
	if string(writes[1]) != `{"op_code":"OK","value":"two"}` {
		t.Errorf("second write = %s", writes[1])
	}
}

func TestReadLoopIgnoresBinaryFrames(t *testing.T) {
	srv := testServer(t)
	conn := newMockConn()
	sess := srv.addSession(conn)

	conn.push(websocket.BinaryMessage, []byte{0xde, 0xad})
	conn.push(websocket.TextMessage, []byte(`{"op_code":"GET_LOBBY_IDS"}`))

	// The binary frame is skipped; the text frame still gets its reply.
	waitFor(t, func() bool { return len(conn.Writes()) == 1 })

	if sessClosed(sess) {
		t.Error("binary frame must not terminate the session")
	}
}

func TestReadLoopReportsMalformedEnvelope(t *testing.T) {
	srv := testServer(t)
	conn := newMockConn()
	sess := srv.addSession(conn)

	conn.push(websocket.TextMessage, []byte(`{{{not json`))

	waitFor(t, func() bool { return len(conn.Writes()) == 1 })

	env := decodeOutbound(t, conn.Writes()[0])
	if env["op_code"] != "ERROR" {
		t.Errorf("expected ERROR reply, got %v", env)
	}
	if sessClosed(sess) {
		t.Error("a parse failure must not terminate the session")
	}

	// The loop keeps serving afterwards.
	conn.push(websocket.TextMessage, []byte(`{"op_code":"GET_LOBBY_IDS"}`))
	waitFor(t, func() bool { return len(conn.Writes()) == 2 })
}

func TestCloseUnregistersBoundUser(t *testing.T) {
	srv := testServer(t)
	srv.store.(*mockStore).AddUser("alice")

	conn := newMockConn()
	sess := srv.addSession(conn)
	conn.push(websocket.TextMessage, []byte(`{"op_code":"CONNECT","value":{"user_id":"alice"}}`))

	waitFor(t, func() bool { return srv.conns.Len() == 1 })

	conn.Close()

	waitFor(t, func() bool { return srv.conns.Len() == 0 })
	waitFor(t, func() bool { return sessClosed(sess) })
}

func TestCloseKeepsNewerBinding(t *testing.T) {
	srv := testServer(t)
	srv.store.(*mockStore).AddUser("alice")

	oldConn := newMockConn()
	oldSess := srv.addSession(oldConn)
	oldConn.push(websocket.TextMessage, []byte(`{"op_code":"CONNECT","value":{"user_id":"alice"}}`))
	waitFor(t, func() bool { return srv.conns.Len() == 1 })

	// Reconnect under the same account on a new socket.
	newConn := newMockConn()
	newSess := srv.addSession(newConn)
	newConn.push(websocket.TextMessage, []byte(`{"op_code":"CONNECT","value":{"user_id":"alice"}}`))
	waitFor(t, func() bool {
		got, ok := srv.conns.Lookup("alice")
		return ok && got == newSess
	})

	// The orphaned socket's teardown must not remove the new binding.
	oldConn.Close()
	waitFor(t, func() bool { return sessClosed(oldSess) })

	if got, ok := srv.conns.Lookup("alice"); !ok || got != newSess {
		t.Error("old teardown clobbered the newer connection's binding")
	}
}

func TestHostDisconnectDeletesLobbies(t *testing.T) {
	srv := testServer(t)
	srv.config.DeleteLobbiesOnHostDisconnect = true
	srv.store.(*mockStore).AddUser("alice")

	conn := newMockConn()
	srv.addSession(conn)
	conn.push(websocket.TextMessage, []byte(`{"op_code":"CONNECT","value":{"user_id":"alice"}}`))
	conn.push(websocket.TextMessage, []byte(`{"op_code":"CREATE_LOBBY","value":{"host_id":"alice"}}`))

	waitFor(t, func() bool { return srv.lobbies.Len() == 1 })

	conn.Close()

	waitFor(t, func() bool { return srv.lobbies.Len() == 0 })
}

// sessClosed reports whether the session's done channel has been closed.
func sessClosed(sess *Session) bool {
	select {
	case <-sess.done:
		return true
	default:
		return false
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
