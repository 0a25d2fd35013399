// Package simulator implementa um fornecedor de odds falso: um hub WebSocket
// que faz broadcast de atualizações geradas a partir de um catálogo fixo de partidas.
package simulator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub gerencia os clientes conectados e faz broadcast de mensagens para todos
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*websocket.Conn
	log     *zap.Logger
	seq     int

	OnConnections func(delta int) // métricas (gauge)
	OnSent        func()          // métricas (counter++)
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*websocket.Conn), log: log}
}

// Len retorna o número de clientes conectados
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	id := fmt.Sprintf("%d-%d", time.Now().UnixNano(), h.seq)
	h.clients[id] = conn
	if h.OnConnections != nil {
		h.OnConnections(1)
	}
	h.log.Info("ws client connected", zap.String("client_id", id))
	return id
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		if h.OnConnections != nil {
			h.OnConnections(-1)
		}
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Broadcast envia v (JSON) para todos os clientes conectados
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("ws encode failed", zap.Error(err))
		return
	}

	// escrita sob lock exclusivo: gorilla não permite escritores concorrentes por conexão
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.Close()
			continue
		}
		if h.OnSent != nil {
			h.OnSent()
		}
	}
}

// ServeHTTP faz o upgrade para WebSocket e mantém o cliente até a desconexão
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := h.add(conn)

	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		for {
			// lê e descarta mensagens do cliente para detectar a desconexão
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
