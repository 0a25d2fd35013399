// Package mapper converte atualizações de odds do fornecedor em payloads de ingest do catálogo.
//
// Todos os registros gerados são identificados por externalId com prefixo do provedor,
// de modo que reenvios da mesma partida atualizam os registros existentes.
// Jogos e mercados referenciam times e jogos pelo externalId (o id interno só
// existe depois do ingest). Os payloads não trazem status do jogo nem flags de
// mercado: reenvios não desfazem alterações feitas pela API.
package mapper

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/pkg/contracts/events"
)

// MarketOneXTwo é o único tipo de mercado enviado pelo fornecedor
const MarketOneXTwo = "1x2"

// Keys agrupa os externalIds derivados de uma atualização
type Keys struct {
	Provider string
}

func (k Keys) Team(name string) string         { return k.Provider + ":team:" + slug(name) }
func (k Keys) Championship(name string) string { return k.Provider + ":championship:" + slug(name) }
func (k Keys) Game(eventID string) string      { return k.Provider + ":game:" + eventID }
func (k Keys) Market(eventID, marketType, selection string) string {
	return k.Provider + ":market:" + eventID + ":" + marketType + ":" + selection
}

// ToIngest monta o payload de uma atualização; ok=false quando a atualização
// não identifica a partida ou os times
func ToIngest(u events.OddsUpdate, provider string) (model.IngestPayload, bool) {
	if u.EventID == "" || strings.TrimSpace(u.HomeTeam) == "" || strings.TrimSpace(u.AwayTeam) == "" {
		return model.IngestPayload{}, false
	}
	k := Keys{Provider: provider}

	p := model.IngestPayload{
		Teams: []model.Team{
			{Meta: meta(k.Team(u.HomeTeam)), Name: model.StrPtr(u.HomeTeam)},
			{Meta: meta(k.Team(u.AwayTeam)), Name: model.StrPtr(u.AwayTeam)},
		},
	}

	game := model.Game{
		Meta:       meta(k.Game(u.EventID)),
		HomeTeamID: model.StrPtr(k.Team(u.HomeTeam)),
		AwayTeamID: model.StrPtr(k.Team(u.AwayTeam)),
	}
	if u.Championship != "" {
		p.Championships = []model.Championship{
			{Meta: meta(k.Championship(u.Championship)), Name: model.StrPtr(u.Championship)},
		}
		game.ChampionshipID = model.StrPtr(k.Championship(u.Championship))
	}
	if !u.KickoffAt.IsZero() {
		game.KickoffAt = model.StrPtr(u.KickoffAt.UTC().Format(time.RFC3339))
	}
	p.Games = []model.Game{game}

	marketType := u.Market
	if marketType == "" {
		marketType = MarketOneXTwo
	}
	raw, _ := json.Marshal(map[string]any{
		"eventId":   u.EventID,
		"version":   u.Version,
		"updatedAt": u.UpdatedAt,
		"source":    u.Source,
	})

	for _, sel := range []struct {
		name string
		odds float64
	}{
		{"home", u.Odds.Home},
		{"draw", u.Odds.Draw},
		{"away", u.Odds.Away},
	} {
		if sel.odds <= 0 {
			continue // seleção indisponível
		}
		odds := sel.odds
		p.Markets = append(p.Markets, model.Market{
			Meta:       meta(k.Market(u.EventID, marketType, sel.name)),
			GameID:     model.StrPtr(k.Game(u.EventID)),
			Provider:   model.StrPtr(provider),
			MarketType: model.StrPtr(marketType),
			Selection:  model.StrPtr(sel.name),
			Odds:       &odds,
			Raw:        raw,
		})
	}
	return p, true
}

func meta(externalID string) model.Meta {
	return model.Meta{ExternalID: model.StrPtr(externalID)}
}

// slug normaliza nomes para uso em chaves: minúsculas, espaços viram "-"
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
