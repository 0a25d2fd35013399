package model

// IngestPayload é o corpo de POST /api/ingest; cada lote é opcional
type IngestPayload struct {
	Teams         []Team         `json:"teams,omitempty" validate:"omitempty,dive"`
	Championships []Championship `json:"championships,omitempty" validate:"omitempty,dive"`
	Games         []Game         `json:"games,omitempty" validate:"omitempty,dive"`
	Markets       []Market       `json:"markets,omitempty" validate:"omitempty,dive"`
}

// Empty indica que nenhum lote tem itens
func (p IngestPayload) Empty() bool {
	return len(p.Teams) == 0 && len(p.Championships) == 0 && len(p.Games) == 0 && len(p.Markets) == 0
}

// IngestSummary traz a contagem de upserts por coleção (0 quando ausente)
type IngestSummary struct {
	TeamsUpserted         int `json:"teamsUpserted"`
	ChampionshipsUpserted int `json:"championshipsUpserted"`
	GamesUpserted         int `json:"gamesUpserted"`
	MarketsUpserted       int `json:"marketsUpserted"`
}

// IngestOptions ajusta como um payload é aplicado. O zero value é a semântica
// de POST /api/ingest: flags de mercado normalizadas em todos os itens.
type IngestOptions struct {
	// PreserveMarketFlags normaliza as flags só nos mercados novos; mercados
	// existentes mantêm isProcessed/isProfitable quando o item não as traz
	PreserveMarketFlags bool
	// NewGameStatus é aplicado a jogos novos sem status
	NewGameStatus string
}

// FeedIngestOptions são as opções de payloads gerados pelo feed de odds, que
// reenvia as mesmas partidas continuamente
func FeedIngestOptions() IngestOptions {
	return IngestOptions{PreserveMarketFlags: true, NewGameStatus: GameScheduled}
}
