package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/service"
	"github.com/radieske/palpitei-api/internal/catalog/store"
	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// fakeReader entrega as mensagens e depois cancela o contexto
type fakeReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

type failingIngester struct{}

func (failingIngester) IngestWith(context.Context, model.IngestPayload, model.IngestOptions) (model.IngestSummary, error) {
	return model.IngestSummary{}, errors.New("store unavailable")
}

func envelope(t *testing.T, payload string) kafka.Message {
	t.Helper()
	return envelopeMode(t, "", payload)
}

func envelopeMode(t *testing.T, mode, payload string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.CatalogIngest{Source: "test", Mode: mode, Payload: json.RawMessage(payload), TsUnixMs: 1})
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Key: []byte("k"), Value: b}
}

func TestProcessor_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := service.New(store.NewMemory(), service.Options{})
	dlq := &fakeWriter{}
	var (
		consumed int
		applied  []model.IngestSummary
		errs     []string
	)
	p := &Processor{
		Log: zap.NewNop(),
		Reader: &fakeReader{cancel: cancel, msgs: []kafka.Message{
			envelope(t, `{"teams":[{"name":"A","externalId":"a"},{"name":"B","externalId":"b"}]}`),
			{Key: []byte("bad"), Value: []byte(`not json`)},
			envelope(t, `{"games":[{"homeTeamId":"a"}]}`),
			envelope(t, `{"teams":[{"name":"A2","externalId":"a"}],"markets":[{"gameId":"g","marketType":"1x2","odds":1.9}]}`),
		}},
		Catalog:    catalog,
		DLQ:        dlq,
		OnConsumed: func() { consumed++ },
		OnApplied:  func(s model.IngestSummary) { applied = append(applied, s) },
		OnError:    func(stage string) { errs = append(errs, stage) },
	}

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v", err)
	}

	if consumed != 4 {
		t.Errorf("consumed = %d", consumed)
	}
	if len(applied) != 2 || applied[0].TeamsUpserted != 2 || applied[1].MarketsUpserted != 1 {
		t.Errorf("applied = %+v", applied)
	}
	if len(errs) != 2 || errs[0] != "decode" || errs[1] != "validate" {
		t.Errorf("errors = %v", errs)
	}
	if len(dlq.msgs) != 2 || string(dlq.msgs[0].Key) != "bad" {
		t.Errorf("dlq = %+v", dlq.msgs)
	}

	teams, _ := catalog.Teams.List(context.Background())
	if len(teams) != 2 || *teams[0].Name != "A2" {
		t.Errorf("teams = %+v", teams)
	}
}

func TestProcessor_IngestFailureGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	var stages []string
	p := &Processor{
		Log:     zap.NewNop(),
		Catalog: failingIngester{},
		DLQ:     dlq,
		OnError: func(s string) { stages = append(stages, s) },
	}

	p.Handle(context.Background(), envelope(t, `{"teams":[{"name":"A"}]}`))

	if len(stages) != 1 || stages[0] != "ingest" {
		t.Errorf("stages = %v", stages)
	}
	if len(dlq.msgs) != 1 {
		t.Fatalf("dlq = %d", len(dlq.msgs))
	}
	var gotStage string
	for _, h := range dlq.msgs[0].Headers {
		if h.Key == "stage" {
			gotStage = string(h.Value)
		}
	}
	if gotStage != "ingest" {
		t.Errorf("stage header = %q", gotStage)
	}
}

func TestProcessor_NoDLQ(t *testing.T) {
	p := &Processor{Log: zap.NewNop(), Catalog: failingIngester{}}
	p.Handle(context.Background(), kafka.Message{Value: []byte(`{}`)})
}

func TestProcessor_FeedModeKeepsMarketFlags(t *testing.T) {
	ctx := context.Background()
	catalog := service.New(store.NewMemory(), service.Options{})
	p := &Processor{Log: zap.NewNop(), Catalog: catalog}

	const feed = `{"markets":[{"externalId":"m1","gameId":"g","marketType":"1x2","odds":1.9}]}`
	p.Handle(ctx, envelopeMode(t, events.IngestModeFeed, feed))

	markets, _ := catalog.Markets.List(ctx, service.MarketFilter{})
	if len(markets) != 1 || markets[0].Processed() || markets[0].IsProcessed == nil {
		t.Fatalf("new feed market should have explicit false flags: %+v", markets)
	}
	if _, err := catalog.Markets.MarkProcessed(ctx, markets); err != nil {
		t.Fatal(err)
	}

	p.Handle(ctx, envelopeMode(t, events.IngestModeFeed, feed))
	markets, _ = catalog.Markets.List(ctx, service.MarketFilter{})
	if !markets[0].Processed() {
		t.Errorf("feed re-send reset isProcessed: %+v", markets[0])
	}

	// modo padrão mantém a semântica de POST /api/ingest
	p.Handle(ctx, envelope(t, feed))
	markets, _ = catalog.Markets.List(ctx, service.MarketFilter{})
	if markets[0].Processed() {
		t.Errorf("replace mode should normalise flags: %+v", markets[0])
	}
}

func TestProcessor_UnknownModeGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	var stages []string
	p := &Processor{
		Log:     zap.NewNop(),
		Catalog: service.New(store.NewMemory(), service.Options{}),
		DLQ:     dlq,
		OnError: func(s string) { stages = append(stages, s) },
	}
	p.Handle(context.Background(), envelopeMode(t, "merge-all", `{"teams":[{"name":"A"}]}`))

	if len(stages) != 1 || stages[0] != "decode" || len(dlq.msgs) != 1 {
		t.Errorf("stages = %v, dlq = %d", stages, len(dlq.msgs))
	}
}
