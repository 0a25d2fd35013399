package changes

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel é o canal Redis Pub/Sub das alterações do catálogo
const DefaultChannel = "catalog_changes"

// RedisBroadcaster publica alterações no Redis para que outros processos
// (ex: tips-api recebendo escritas do ingest-worker) possam repassá-las
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Notify(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// StartRedisSubscriber escuta o canal e repassa cada alteração ao hub até ctx ser cancelado.
// Retorna quando a inscrição foi confirmada pelo Redis.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					log.Warn("change subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(c)
			}
		}
	}()
	return nil
}
