package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fundlink/chat-service/internal/domain"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event map[string]interface{}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	return event
}

func TestWebSocketAuthEventFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	token := env.issueToken(t, 1, "FOUNDER", "Frida")
	conn := dialWS(t, srv, "")

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": token}); err != nil {
		t.Fatalf("failed to write auth event: %v", err)
	}

	event := readEvent(t, conn)
	if event["type"] != domain.MsgTypeAuthResult || event["success"] != true {
		t.Fatalf("unexpected auth result: %v", event)
	}
	if int64(event["user_id"].(float64)) != 1 {
		t.Errorf("unexpected user id: %v", event["user_id"])
	}
}

func TestWebSocketQueryTokenHandshake(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	token := env.issueToken(t, 1, "FOUNDER", "Frida")
	conn := dialWS(t, srv, "?token="+token)

	event := readEvent(t, conn)
	if event["type"] != domain.MsgTypeAuthResult || event["success"] != true {
		t.Fatalf("unexpected auth result: %v", event)
	}
}

func TestWebSocketInvalidTokenClosesConnection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "bogus"}); err != nil {
		t.Fatalf("failed to write auth event: %v", err)
	}

	event := readEvent(t, conn)
	if event["type"] != domain.MsgTypeAuthResult {
		t.Fatalf("expected auth_result, got %v", event)
	}
	if success, _ := event["success"].(bool); success {
		t.Fatal("expected auth failure")
	}

	// The server tears the connection down after the rejection.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}
}

func TestWebSocketRejectedHandshakeUnregisters(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "?token=bogus")

	// Drain until the server tears the connection down.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// The hub must forget the connection even though the read pump never ran.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.hub.ClientCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub still tracks %d clients after rejected handshake", env.hub.ClientCount())
}

func TestWebSocketChatRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	founderToken := env.issueToken(t, 1, "FOUNDER", "Frida")
	investorToken := env.issueToken(t, 2, "INVESTOR", "Ivan")

	founder := dialWS(t, srv, "?token="+founderToken)
	investor := dialWS(t, srv, "?token="+investorToken)
	readEvent(t, founder)  // auth_result
	readEvent(t, investor) // auth_result

	// Both sides join the same room from their own perspective.
	founder.WriteJSON(map[string]interface{}{"type": "join_room", "proposal_id": 7, "counterpart_id": 2})
	investor.WriteJSON(map[string]interface{}{"type": "join_room", "proposal_id": 7, "counterpart_id": 1})

	founderJoined := readEvent(t, founder)
	investorJoined := readEvent(t, investor)
	if founderJoined["room_key"] != investorJoined["room_key"] {
		t.Fatalf("room keys differ: %v vs %v", founderJoined["room_key"], investorJoined["room_key"])
	}

	investor.WriteJSON(map[string]interface{}{
		"type": "send_message", "proposal_id": 7, "counterpart_id": 1,
		"content": "interested in the round",
	})

	for name, conn := range map[string]*websocket.Conn{"founder": founder, "investor": investor} {
		event := readEvent(t, conn)
		if event["type"] != domain.MsgTypeMessageCreated {
			t.Fatalf("%s expected message_created, got %v", name, event)
		}
		if event["content"] != "interested in the round" {
			t.Errorf("%s unexpected content: %v", name, event["content"])
		}
	}

	// The message survived into the store.
	msgs, err := env.messages.ListByRoom(context.Background(), founderJoined["room_key"].(string))
	if err != nil {
		t.Fatalf("ListByRoom returned error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SenderID != 2 {
		t.Errorf("unexpected persisted messages: %v", msgs)
	}
}

func TestWebSocketUnauthenticatedSendRejected(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	conn.WriteJSON(map[string]interface{}{
		"type": "send_message", "proposal_id": 7, "counterpart_id": 1, "content": "hi",
	})

	event := readEvent(t, conn)
	if event["code"] != domain.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %v", event)
	}
}

func TestWebSocketMalformedEvent(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not-json")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	event := readEvent(t, conn)
	if event["code"] != domain.ErrCodeInvalidArgument {
		t.Errorf("expected INVALID_ARGUMENT, got %v", event)
	}
}

func TestWebSocketPingPong(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	conn.WriteJSON(map[string]string{"type": "ping"})

	event := readEvent(t, conn)
	if event["type"] != domain.MsgTypePong {
		t.Errorf("expected pong, got %v", event)
	}
}

func TestWebSocketNotificationPush(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	token := env.issueToken(t, 42, "FOUNDER", "Frida")
	conn := dialWS(t, srv, "?token="+token)
	readEvent(t, conn) // auth_result

	if _, err := env.notifService.Notify(context.Background(), 42, domain.NotificationTypeInvestment, "Ivan invested"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	event := readEvent(t, conn)
	if event["type"] != domain.MsgTypeNotification {
		t.Fatalf("expected notification, got %v", event)
	}
	if event["content"] != "Ivan invested" {
		t.Errorf("unexpected content: %v", event["content"])
	}
}
