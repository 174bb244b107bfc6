package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketSubmitFlow(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?challengeId=day-1&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the initial aggregate snapshot first.
	msgType, payload := readNext(conn, t, "aggregate")
	if msgType != "aggregate" {
		t.Fatalf("expected aggregate, got %s", msgType)
	}
	if payload["bestAttemptCount"].(float64) != 0 {
		t.Fatalf("expected empty initial aggregate, got %v", payload)
	}

	submit := map[string]any{
		"type": "submit",
		"payload": map[string]any{
			"dateKey": "2026-03-01",
			"ranking": []string{"o1", "o2", "o3", "o4"},
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Expect result then an aggregate update.
	resultSeen := false
	updateSeen := false
	for i := 0; i < 3; i++ {
		typ, p := readNext(conn, t, "")
		switch typ {
		case "result":
			resultSeen = true
			if p["score"].(float64) != 100 {
				t.Fatalf("expected score 100, got %v", p)
			}
		case "aggregate":
			if p["bestAttemptCount"].(float64) == 1 {
				updateSeen = true
			}
		}
		if resultSeen && updateSeen {
			break
		}
	}
	if !resultSeen || !updateSeen {
		t.Fatalf("expected result and aggregate update, got result=%v update=%v", resultSeen, updateSeen)
	}
}

func TestWebSocketUnknownChallenge(t *testing.T) {
	service := newTestService()
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?challengeId=day-unknown&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, _ := readNext(conn, t, "error")
	if msgType != "error" {
		t.Fatalf("expected error for unknown challenge, got %s", msgType)
	}
}

func TestSendOrDoneGivesUpAfterWriterExit(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !sendOrDone(send, writerDone, outboundMessage[any]{Type: "result"}) {
		t.Fatalf("expected send to succeed with a live writer")
	}

	// Buffer full and writer gone: the peer keeps sending, the read loop
	// must not block.
	close(writerDone)
	done := make(chan bool, 1)
	go func() { done <- sendOrDone(send, writerDone, outboundMessage[any]{Type: "result"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected send to give up once the writer exited")
		}
	case <-time.After(time.Second):
		t.Fatalf("send blocked after writer exit")
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
