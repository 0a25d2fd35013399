package simulator

import (
	"math/rand"
	"time"

	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// DefaultCatalog é o catálogo fixo de partidas simuladas
func DefaultCatalog(now time.Time) []events.OddsUpdate {
	day := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	const champ = "Brasileirão Série A"
	return []events.OddsUpdate{
		{EventID: "MATCH_001", HomeTeam: "Flamengo", AwayTeam: "Palmeiras", Championship: champ, KickoffAt: day.Add(19 * time.Hour), Market: "1x2"},
		{EventID: "MATCH_002", HomeTeam: "Grêmio", AwayTeam: "Internacional", Championship: champ, KickoffAt: day.Add(21 * time.Hour), Market: "1x2"},
		{EventID: "MATCH_003", HomeTeam: "Corinthians", AwayTeam: "Santos", Championship: champ, KickoffAt: day.Add(43 * time.Hour), Market: "1x2"},
		{EventID: "MATCH_004", HomeTeam: "São Paulo", AwayTeam: "Vasco", Championship: champ, KickoffAt: day.Add(45 * time.Hour), Market: "1x2"},
	}
}

// Generator produz rodadas de odds aleatórias para um catálogo de partidas
type Generator struct {
	catalog []events.OddsUpdate
	source  string
	version int
	rnd     *rand.Rand
}

func NewGenerator(catalog []events.OddsUpdate, source string, seed int64) *Generator {
	return &Generator{catalog: catalog, source: source, version: 1, rnd: rand.New(rand.NewSource(seed))}
}

// Next gera uma atualização por partida; a versão é incrementada a cada rodada
func (g *Generator) Next(now time.Time) []events.OddsUpdate {
	updates := make([]events.OddsUpdate, len(g.catalog))
	for i, u := range g.catalog {
		u.Odds = events.Odds{
			Home: g.between(1.40, 3.50),
			Draw: g.between(2.50, 4.50),
			Away: g.between(2.00, 5.00),
		}
		u.UpdatedAt = now.UTC()
		u.Source = g.source
		u.Version = g.version
		updates[i] = u
	}
	g.version++
	return updates
}

func (g *Generator) between(min, max float64) float64 {
	return g.rnd.Float64()*(max-min) + min
}
