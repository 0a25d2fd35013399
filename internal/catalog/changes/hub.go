package changes

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// AllCollections inscreve o cliente em todas as coleções
const AllCollections = "*"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Collection: teams, championships, games, markets ou "*" (vazio = "*")
type ClientMsg struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla não permite escritores concorrentes
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e suas assinaturas por coleção
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // coleção -> conexões inscritas

	OnSent func() // métricas (counter++)
}

// NewHub cria o hub; allowOrigin nil aceita qualquer origem
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// Bloqueia até o cliente desconectar.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		coll := msg.Collection
		if coll == "" {
			coll = AllCollections
		}
		switch msg.Type {
		case "subscribe":
			h.subscribe(coll, c)
			_ = h.reply(c, map[string]string{"type": "subscribed", "collection": coll})
		case "unsubscribe":
			h.unsubscribe(coll, c)
		case "ping":
			_ = h.reply(c, map[string]string{"type": "pong"})
		}
	}

	// remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for coll, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, coll)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(coll string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[coll]; !ok {
		h.subs[coll] = make(map[*client]struct{})
	}
	h.subs[coll][c] = struct{}{}
}

func (h *Hub) unsubscribe(coll string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[coll]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, coll)
		}
	}
}

func (h *Hub) reply(c *client, v any) error {
	b, _ := json.Marshal(v)
	return c.send(b)
}

// Subscribers conta as conexões inscritas em collection (sem contar "*")
func (h *Hub) Subscribers(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection])
}

// Broadcast envia a alteração para os inscritos na coleção e em "*"
func (h *Hub) Broadcast(change Change) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[change.Collection])+len(h.subs[AllCollections]))
	seen := make(map[*client]struct{})
	for _, coll := range []string{change.Collection, AllCollections} {
		for c := range h.subs[coll] {
			if _, dup := seen[c]; !dup {
				seen[c] = struct{}{}
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(change)
	if err != nil {
		h.log.Warn("change encode failed", zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.send(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
			continue
		}
		if h.OnSent != nil {
			h.OnSent()
		}
	}
}

// Notify entrega a alteração diretamente aos clientes deste processo
func (h *Hub) Notify(_ context.Context, c Change) error {
	h.Broadcast(c)
	return nil
}
