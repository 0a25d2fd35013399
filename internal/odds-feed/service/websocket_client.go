package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/odds-feed/mapper"
	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// Publisher publica um payload de ingest com a chave da partida
type Publisher interface {
	Publish(ctx context.Context, key string, payload model.IngestPayload) error
}

// WSClient consome odds do fornecedor via WebSocket, converte cada atualização
// em payload de ingest e publica no Kafka.
type WSClient struct {
	URL       string        // URL do endpoint WebSocket do fornecedor
	Provider  string        // prefixo dos externalIds gerados
	Log       *zap.Logger   // Logger estruturado
	Publisher Publisher     // Publisher Kafka
	Backoff   time.Duration // espera entre reconexões (padrão 3s)

	OnReceived  func()       // métricas
	OnPublished func()       // métricas
	OnError     func(string) // métricas por fase
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar após o backoff até ctx ser cancelado.
func (c *WSClient) Start(ctx context.Context) {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		if err := c.connectAndListen(ctx); err != nil && ctx.Err() == nil {
			c.Log.Warn("connection closed", zap.Error(err))
			c.fail("connect")
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		case <-time.After(backoff):
		}
	}
}

// connectAndListen estabelece a conexão e processa as mensagens recebidas
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to supplier WS", zap.String("url", c.URL))

	// fecha a conexão no cancelamento para desbloquear ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.OnReceived != nil {
			c.OnReceived()
		}
		c.handle(ctx, message)
	}
}

func (c *WSClient) handle(ctx context.Context, message []byte) {
	var update events.OddsUpdate
	if err := json.Unmarshal(message, &update); err != nil {
		c.Log.Warn("invalid message", zap.Error(err))
		c.fail("decode")
		return
	}

	payload, ok := mapper.ToIngest(update, c.Provider)
	if !ok {
		c.Log.Warn("update without event or teams", zap.String("event_id", update.EventID))
		c.fail("map")
		return
	}

	if err := c.Publisher.Publish(ctx, update.EventID, payload); err != nil {
		c.Log.Error("failed to publish to Kafka", zap.Error(err))
		c.fail("publish")
		return
	}
	if c.OnPublished != nil {
		c.OnPublished()
	}
}

func (c *WSClient) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
