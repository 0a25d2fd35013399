package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	sharedkafka "github.com/radieske/palpitei-api/internal/shared/kafka"
	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// MessageWriter é o subconjunto de *kafka.Writer usado pelo publisher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher envia payloads de ingest para o tópico "catalog_ingest"
type KafkaPublisher struct {
	writer MessageWriter
	source string
	log    *zap.Logger
	now    func() time.Time
}

// NewKafkaPublisher cria o publisher sobre um writer do tópico
func NewKafkaPublisher(brokers []string, topic, source string, log *zap.Logger) *KafkaPublisher {
	return NewWithWriter(sharedkafka.NewWriter(brokers, topic), source, log)
}

// NewWithWriter permite injetar o writer (testes)
func NewWithWriter(w MessageWriter, source string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, source: source, log: log, now: time.Now}
}

// Publish envolve o payload em events.CatalogIngest e publica com a chave key
// A chave (id da partida) mantém as atualizações de uma partida na mesma partição
func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload model.IngestPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := p.now()
	value, err := json.Marshal(events.CatalogIngest{
		Source:   p.source,
		Key:      key,
		Mode:     events.IngestModeFeed,
		Payload:  body,
		TsUnixMs: now.UnixMilli(),
	})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  now,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish catalog ingest", zap.String("key", key), zap.Error(err))
		return err
	}

	p.log.Debug("published catalog ingest", zap.String("key", key))
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
