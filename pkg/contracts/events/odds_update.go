package events

import "time"

// Odds de um mercado 1x2 (zero = seleção indisponível)
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// OddsUpdate é o evento enviado pelo fornecedor via WebSocket
type OddsUpdate struct {
	EventID      string    `json:"event_id"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Championship string    `json:"championship,omitempty"`
	KickoffAt    time.Time `json:"kickoff_at,omitempty"`
	Market       string    `json:"market"` // "1x2"
	Odds         Odds      `json:"odds"`
	UpdatedAt    time.Time `json:"updated_at"`
	Source       string    `json:"source"`
	Version      int       `json:"version"` // incrementado a cada atualização
}
