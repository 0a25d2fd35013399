package changes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(v); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func subscribe(t *testing.T, conn *websocket.Conn, coll string) {
	t.Helper()
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", Collection: coll}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack map[string]string
	readJSON(t, conn, &ack)
	if ack["type"] != "subscribed" {
		t.Fatalf("ack = %v", ack)
	}
}

func TestHub_BroadcastByCollection(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	markets := dial(t, srv)
	subscribe(t, markets, "markets")
	all := dial(t, srv)
	subscribe(t, all, "")

	if n := hub.Subscribers("markets"); n != 1 {
		t.Fatalf("markets subscribers = %d", n)
	}
	if n := hub.Subscribers(AllCollections); n != 1 {
		t.Fatalf("* subscribers = %d", n)
	}

	hub.Broadcast(Change{Collection: "teams", Op: "create", IDs: []string{"t1"}})
	_ = hub.Notify(context.Background(), Change{Collection: "markets", Op: "processed", IDs: []string{"m1", "m2"}})

	var got Change
	readJSON(t, markets, &got)
	if got.Collection != "markets" || got.Op != "processed" || len(got.IDs) != 2 {
		t.Errorf("markets client got %+v", got)
	}

	readJSON(t, all, &got)
	if got.Collection != "teams" {
		t.Errorf("first change for * = %+v", got)
	}
	readJSON(t, all, &got)
	if got.Collection != "markets" {
		t.Errorf("second change for * = %+v", got)
	}
}

func TestHub_PingAndUnsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dial(t, srv)
	subscribe(t, conn, "games")

	if err := conn.WriteJSON(ClientMsg{Type: "unsubscribe", Collection: "games"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	var pong map[string]string
	readJSON(t, conn, &pong)
	if pong["type"] != "pong" {
		t.Fatalf("pong = %v", pong)
	}
	// mensagens são processadas em ordem: o unsubscribe já foi aplicado
	if n := hub.Subscribers("games"); n != 0 {
		t.Errorf("games subscribers = %d, want 0", n)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	hub := NewHub(zap.NewNop(), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()
	conn := dial(t, srv)
	subscribe(t, conn, "teams")

	channel := "catalog_changes_test"
	if err := StartRedisSubscriber(ctx, rdb, channel, hub, zap.NewNop()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := NewRedisBroadcaster(rdb, channel).Notify(ctx, Change{Collection: "teams", Op: "ingest", IDs: []string{"a"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var raw json.RawMessage
	readJSON(t, conn, &raw)
	if !strings.Contains(string(raw), `"op":"ingest"`) {
		t.Errorf("got %s", raw)
	}
}

func httpHandler(h *Hub) http.Handler { return http.HandlerFunc(h.HandleWS) }
