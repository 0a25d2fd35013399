// Package service implementa as operações das coleções do catálogo
// (times, campeonatos, jogos e mercados) e o ingest multi-coleção.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/changes"
	"github.com/radieske/palpitei-api/internal/catalog/merge"
	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/store"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
)

// Options configura o Catalog; zero value é válido
type Options struct {
	Stamper merge.Stamper
	Metrics *metrics.Catalog // nil desliga métricas
	Log     *zap.Logger      // nil usa zap.NewNop

	// Notifier recebe cada escrita bem-sucedida (nil desliga)
	Notifier changes.Notifier

	// SerializeWrites serializa leitura-merge-escrita por coleção neste processo.
	// Desligado, escritores concorrentes na mesma coleção competem e o último vence.
	SerializeWrites bool
}

// Catalog agrupa os repositórios das quatro coleções sobre um mesmo backend
type Catalog struct {
	Teams         *Repository[model.Team]
	Championships *Repository[model.Championship]
	Games         *Repository[model.Game]
	Markets       *MarketRepository

	backend store.Store
	log     *zap.Logger
}

func New(backend store.Store, opts Options) *Catalog {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	log := opts.Log
	return &Catalog{
		Teams:         newRepository[model.Team](model.KindTeam, backend, opts),
		Championships: newRepository[model.Championship](model.KindChampionship, backend, opts),
		Games:         newRepository[model.Game](model.KindGame, backend, opts),
		Markets:       &MarketRepository{newRepository[model.Market](model.KindMarket, backend, opts)},
		backend:       backend,
		log:           log,
	}
}

// Ping verifica o backend de persistência (usado pelo /healthz)
func (c *Catalog) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Ingest aplica cada lote não vazio, na ordem teams, championships, games, markets.
// Cada coleção é gravada de forma independente: uma falha interrompe os lotes
// seguintes, mas não desfaz os já gravados.
func (c *Catalog) Ingest(ctx context.Context, p model.IngestPayload) (model.IngestSummary, error) {
	return c.IngestWith(ctx, p, model.IngestOptions{})
}

// IngestWith é Ingest com opções (ver model.IngestOptions)
func (c *Catalog) IngestWith(ctx context.Context, p model.IngestPayload, opts model.IngestOptions) (model.IngestSummary, error) {
	var (
		sum model.IngestSummary
		err error
	)

	if sum.TeamsUpserted, err = ingest(ctx, c.Teams, p.Teams, nil); err != nil {
		return sum, err
	}
	if sum.ChampionshipsUpserted, err = ingest(ctx, c.Championships, p.Championships, nil); err != nil {
		return sum, err
	}

	var newGame func(model.Game) model.Game
	if opts.NewGameStatus != "" {
		status := opts.NewGameStatus
		newGame = func(g model.Game) model.Game {
			if g.Status == nil {
				g.Status = model.StrPtr(status)
			}
			return g
		}
	}
	if sum.GamesUpserted, err = ingest(ctx, c.Games, p.Games, newGame); err != nil {
		return sum, err
	}

	markets := p.Markets
	var newMarket func(model.Market) model.Market
	if opts.PreserveMarketFlags {
		newMarket = model.Market.NormalizeFlags
	} else {
		markets = make([]model.Market, len(p.Markets))
		for i, m := range p.Markets {
			markets[i] = m.NormalizeFlags()
		}
	}
	if sum.MarketsUpserted, err = ingest(ctx, c.Markets.Repository, markets, newMarket); err != nil {
		return sum, err
	}

	c.log.Debug("ingest applied",
		zap.Int("teams", sum.TeamsUpserted),
		zap.Int("championships", sum.ChampionshipsUpserted),
		zap.Int("games", sum.GamesUpserted),
		zap.Int("markets", sum.MarketsUpserted),
		zap.Bool("preserve_flags", opts.PreserveMarketFlags),
	)
	return sum, nil
}

func ingest[T model.Entity[T]](ctx context.Context, r *Repository[T], items []T, onCreate func(T) T) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	out, err := r.upsert(ctx, items, "ingest", onCreate)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", r.coll.Name(), err)
	}
	return len(out), nil
}
