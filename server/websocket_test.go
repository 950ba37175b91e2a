package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/tts"
)

// --- helpers ---

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// dialWS opens a websocket connection, optionally with a bearer token.
func dialWS(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()

	var header http.Header
	if token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func sendFrame(t *testing.T, conn *websocket.Conn, msg wsMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// --- tests ---

func TestGateway_WSChat(t *testing.T) {
	ts := newGateway(t,
		WithChat(newChatClient(t, "Hello from the other side.")),
		WithAuthenticator(newAuthenticator(t)),
	)
	token := registerDevice(t, ts)

	conn := dialWS(t, wsURL(ts), token)
	sendFrame(t, conn, wsMessage{Type: wsTypeChat, Message: "hello"})

	reply := readFrame(t, conn)
	if reply.Type != wsTypeReply {
		t.Fatalf("frame type = %q, want reply (error: %q)", reply.Type, reply.Error)
	}
	if reply.Reply != "Hello from the other side." {
		t.Errorf("reply = %q, want the mock text", reply.Reply)
	}
	if reply.Model == "" {
		t.Error("reply frame is missing the model")
	}
}

func TestGateway_WSQueryToken(t *testing.T) {
	ts := newGateway(t,
		WithChat(newChatClient(t, "ok")),
		WithAuthenticator(newAuthenticator(t)),
	)
	token := registerDevice(t, ts)

	// Browser websocket clients cannot set headers; the token rides the query.
	conn := dialWS(t, wsURL(ts)+"?token="+token, "")
	sendFrame(t, conn, wsMessage{Type: wsTypeChat, Message: "hello"})

	if reply := readFrame(t, conn); reply.Type != wsTypeReply {
		t.Errorf("frame type = %q, want reply", reply.Type)
	}
}

func TestGateway_WSUnauthorized(t *testing.T) {
	ts := newGateway(t, WithAuthenticator(newAuthenticator(t)))

	header := http.Header{"Authorization": []string{"Bearer bogus"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded with a bogus token")
	}
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("dial error = %v, want ErrBadHandshake", err)
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %+v, want 401", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestGateway_WSUnknownType(t *testing.T) {
	ts := newGateway(t)

	conn := dialWS(t, wsURL(ts), "")
	sendFrame(t, conn, wsMessage{Type: "bogus"})

	frame := readFrame(t, conn)
	if frame.Type != wsTypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	if !strings.Contains(frame.Error, "unknown message type") {
		t.Errorf("error = %q, want unknown message type", frame.Error)
	}
}

func TestGateway_WSChatNotConfigured(t *testing.T) {
	ts := newGateway(t)

	conn := dialWS(t, wsURL(ts), "")
	sendFrame(t, conn, wsMessage{Type: wsTypeChat, Message: "hello"})

	frame := readFrame(t, conn)
	if frame.Type != wsTypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	if !strings.Contains(frame.Error, "not configured") {
		t.Errorf("error = %q, want not configured", frame.Error)
	}
}

func TestGateway_WSChatEmptyMessage(t *testing.T) {
	ts := newGateway(t, WithChat(newChatClient(t, "unused")))

	conn := dialWS(t, wsURL(ts), "")
	sendFrame(t, conn, wsMessage{Type: wsTypeChat, Message: "   "})

	frame := readFrame(t, conn)
	if frame.Type != wsTypeError {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
	if !strings.Contains(frame.Error, "message cannot be empty") {
		t.Errorf("error = %q, want message cannot be empty", frame.Error)
	}
}

func TestGateway_WSChatSpeaks(t *testing.T) {
	fake := &fakeVoice{name: "fake", native: true, detected: true, spokeCh: make(chan string, 1)}
	ts := newGateway(t,
		WithChat(newChatClient(t, "Spoken reply.")),
		WithVoice(tts.NewManager(tts.WithProviders(fake))),
	)

	conn := dialWS(t, wsURL(ts), "")
	sendFrame(t, conn, wsMessage{Type: wsTypeChat, Message: "say it", Speak: true})

	if reply := readFrame(t, conn); reply.Type != wsTypeReply {
		t.Fatalf("frame type = %q, want reply", reply.Type)
	}

	select {
	case spoken := <-fake.spokeCh:
		if spoken != "Spoken reply." {
			t.Errorf("spoken = %q, want Spoken reply.", spoken)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("speech never dispatched")
	}
}

func TestGateway_WSCloseOnShutdown(t *testing.T) {
	srv := NewServer()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialWS(t, wsURL(ts), "")

	done := make(chan error, 1)
	go func() {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg wsMessage
		done <- conn.ReadJSON(&msg)
	}()

	// Shutdown drains HTTP and then closes hijacked websocket connections.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// The blocked read must unblock with a close (or network) error.
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("read succeeded after shutdown, want close error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("connection never closed after shutdown")
	}
}
