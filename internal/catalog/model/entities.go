package model

import "encoding/json"

// Team representa um time
type Team struct {
	Meta
	Name      *string `json:"name,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	ShortName *string `json:"shortName,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	Country   *string `json:"country,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	BadgeURL  *string `json:"badgeUrl,omitempty" validate:"omitempty,url" patch:"omitempty,url"`
}

func (t Team) GetMeta() Meta { return t.Meta }
func (t Team) WithMeta(m Meta) Team { t.Meta = m; return t }

// Championship representa um campeonato (liga, copa, ...)
type Championship struct {
	Meta
	Name    *string `json:"name,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	Country *string `json:"country,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	Season  *string `json:"season,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
}

func (c Championship) GetMeta() Meta { return c.Meta }
func (c Championship) WithMeta(m Meta) Championship { c.Meta = m; return c }

// Status possíveis de um jogo
const (
	GameScheduled = "scheduled"
	GameLive      = "live"
	GameFinished  = "finished"
	GameCanceled  = "canceled"
)

// Game representa uma partida; times e campeonato são referenciados por id
type Game struct {
	Meta
	ChampionshipID *string `json:"championshipId,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	KickoffAt      *string `json:"kickoffAt,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00" patch:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=scheduled live finished canceled" patch:"omitempty,oneof=scheduled live finished canceled"`
	HomeTeamID     *string `json:"homeTeamId,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	AwayTeamID     *string `json:"awayTeamId,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	HomeScore      *int    `json:"homeScore,omitempty" validate:"omitempty,gte=0" patch:"omitempty,gte=0"`
	AwayScore      *int    `json:"awayScore,omitempty" validate:"omitempty,gte=0" patch:"omitempty,gte=0"`
}

func (g Game) GetMeta() Meta { return g.Meta }
func (g Game) WithMeta(m Meta) Game { g.Meta = m; return g }

// Market é um registro de mercado/palpite de um jogo
// isProcessed e isProfitable são independentes
type Market struct {
	Meta
	GameID       *string         `json:"gameId,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	Provider     *string         `json:"provider,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	MarketType   *string         `json:"marketType,omitempty" validate:"required,min=1" patch:"omitempty,min=1"`
	Selection    *string         `json:"selection,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	Odds         *float64        `json:"odds,omitempty" validate:"required,gt=0" patch:"omitempty,gt=0"`
	IsProcessed  *bool           `json:"isProcessed,omitempty"`
	IsProfitable *bool           `json:"isProfitable,omitempty"`
	ProcessedAt  *string         `json:"processedAt,omitempty"`
	ProfitableAt *string         `json:"profitableAt,omitempty"`
	ProfitScore  *float64        `json:"profitScore,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

func (m Market) GetMeta() Meta { return m.Meta }
func (m Market) WithMeta(meta Meta) Market { m.Meta = meta; return m }

// Processed/Profitable leem as flags tratando ausência como false
func (m Market) Processed() bool { return m.IsProcessed != nil && *m.IsProcessed }
func (m Market) Profitable() bool { return m.IsProfitable != nil && *m.IsProfitable }

// ToStrictBool converte o valor recebido em booleano estrito (ausente => false)
func ToStrictBool(v *bool) *bool {
	b := v != nil && *v
	return &b
}

// NormalizeFlags aplica ToStrictBool às duas flags do mercado
func (m Market) NormalizeFlags() Market {
	m.IsProcessed = ToStrictBool(m.IsProcessed)
	m.IsProfitable = ToStrictBool(m.IsProfitable)
	return m
}
