package service

import (
	"context"
	"strings"

	"github.com/radieske/palpitei-api/internal/catalog/model"
)

// MarketFilter restringe a listagem de mercados; campos vazios/nil não filtram
type MarketFilter struct {
	GameID     string
	Provider   string
	MarketType string
	Processed  *bool
	Profitable *bool
}

// ParseBoolFilter interpreta "true"/"1" e "false"/"0"; qualquer outro valor não filtra
func ParseBoolFilter(v string) *bool {
	switch strings.ToLower(v) {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}

func (f MarketFilter) match(m model.Market) bool {
	if f.GameID != "" && deref(m.GameID) != f.GameID {
		return false
	}
	if f.Provider != "" && deref(m.Provider) != f.Provider {
		return false
	}
	if f.MarketType != "" && deref(m.MarketType) != f.MarketType {
		return false
	}
	if f.Processed != nil && m.Processed() != *f.Processed {
		return false
	}
	if f.Profitable != nil && m.Profitable() != *f.Profitable {
		return false
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarketRepository adiciona filtros, normalização de flags e marcações em lote
type MarketRepository struct {
	*Repository[model.Market]
}

// List retorna os mercados que atendem ao filtro, na ordem persistida
func (r *MarketRepository) List(ctx context.Context, f MarketFilter) ([]model.Market, error) {
	items, err := r.Repository.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(items))
	for _, m := range items {
		if f.match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Create grava o mercado com as flags normalizadas (ausente => false),
// inclusive quando atualiza um mercado existente
func (r *MarketRepository) Create(ctx context.Context, m model.Market) (model.Market, error) {
	return r.Repository.Create(ctx, m.NormalizeFlags())
}

// MarkProcessed marca o lote como processado e retorna quantos registros foram gravados
func (r *MarketRepository) MarkProcessed(ctx context.Context, items []model.Market) (int, error) {
	now := r.stamper.Stamp()
	incoming := make([]model.Market, len(items))
	for i, m := range items {
		m.IsProcessed = boolPtr(true)
		m.ProcessedAt = &now
		incoming[i] = m
	}
	out, err := r.Upsert(ctx, incoming, "processed")
	return len(out), err
}

// MarkProfitable marca o lote como lucrativo e retorna quantos registros foram gravados
func (r *MarketRepository) MarkProfitable(ctx context.Context, items []model.Market) (int, error) {
	now := r.stamper.Stamp()
	incoming := make([]model.Market, len(items))
	for i, m := range items {
		m.IsProfitable = boolPtr(true)
		m.ProfitableAt = &now
		incoming[i] = m
	}
	out, err := r.Upsert(ctx, incoming, "profitable")
	return len(out), err
}

func boolPtr(b bool) *bool { return &b }
