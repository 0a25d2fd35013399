package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/validate"
	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado pelo Processor
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter é o subconjunto de *kafka.Writer usado para a DLQ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Ingester aplica um payload de ingest ao catálogo
type Ingester interface {
	IngestWith(ctx context.Context, p model.IngestPayload, opts model.IngestOptions) (model.IngestSummary, error)
}

// Processor consome mensagens de "catalog_ingest", valida o payload e aplica no catálogo
// Mensagens inválidas ou que falham no ingest vão para a DLQ (quando configurada)
type Processor struct {
	Log     *zap.Logger
	Reader  MessageReader
	Catalog Ingester
	DLQ     MessageWriter // opcional

	OnConsumed func()                    // métricas (counter++)
	OnApplied  func(model.IngestSummary) // métricas
	OnError    func(string)              // métricas por fase
}

// Run inicia o loop principal de consumo; retorna quando ctx é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma única mensagem; erros são registrados e encaminhados à DLQ
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var env events.CatalogIngest
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.reject(ctx, m, "decode", err)
		return
	}

	payload, err := validate.Ingest(env.Payload)
	if err != nil {
		p.reject(ctx, m, "validate", err)
		return
	}

	var opts model.IngestOptions
	switch env.Mode {
	case "", events.IngestModeReplace:
	case events.IngestModeFeed:
		opts = model.FeedIngestOptions()
	default:
		p.reject(ctx, m, "decode", fmt.Errorf("unknown ingest mode %q", env.Mode))
		return
	}

	sum, err := p.Catalog.IngestWith(ctx, payload, opts)
	if err != nil {
		p.reject(ctx, m, "ingest", err)
		return
	}

	p.Log.Debug("ingest message applied",
		zap.String("source", env.Source),
		zap.String("mode", env.Mode),
		zap.String("key", string(m.Key)),
		zap.Int("teams", sum.TeamsUpserted),
		zap.Int("championships", sum.ChampionshipsUpserted),
		zap.Int("games", sum.GamesUpserted),
		zap.Int("markets", sum.MarketsUpserted),
	)
	if p.OnApplied != nil {
		p.OnApplied(sum)
	}
}

func (p *Processor) reject(ctx context.Context, m kafka.Message, stage string, cause error) {
	p.Log.Warn("ingest message rejected",
		zap.String("stage", stage),
		zap.String("key", string(m.Key)),
		zap.Int64("offset", m.Offset),
		zap.Error(cause),
	)
	p.fail(stage)

	if p.DLQ == nil {
		return
	}
	dead := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "stage", Value: []byte(stage)},
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "origin", Value: []byte(fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset))},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dead); err != nil {
		p.Log.Error("dlq publish failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
