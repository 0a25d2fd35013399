package model

import (
	"strings"
	"time"
)

// TimestampLayout é o formato textual (ordenável) usado em createdAt/updatedAt
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Meta agrupa os campos de identidade e controle comuns a todo registro
type Meta struct {
	ID         string  `json:"id,omitempty"`
	ExternalID *string `json:"externalId,omitempty" validate:"omitempty,min=1" patch:"omitempty,min=1"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

// ExternalKey retorna o externalId ou "" quando ausente
func (m Meta) ExternalKey() string {
	if m.ExternalID == nil {
		return ""
	}
	return *m.ExternalID
}

// Entity é a restrição usada pelo merge e pelo store: um registro tipado
// que expõe e substitui seu Meta
type Entity[T any] interface {
	GetMeta() Meta
	WithMeta(Meta) T
}

// Kind identifica uma coleção
type Kind string

const (
	KindTeam         Kind = "team"
	KindChampionship Kind = "championship"
	KindGame         Kind = "game"
	KindMarket       Kind = "market"
)

// Collection retorna o nome da coleção persistida
func (k Kind) Collection() string {
	switch k {
	case KindChampionship:
		return "championships"
	case KindTeam, KindGame, KindMarket:
		return string(k) + "s"
	}
	return string(k)
}

// NotFoundCode retorna o código de erro HTTP 404 (ex.: TEAM_NOT_FOUND)
func (k Kind) NotFoundCode() string {
	return strings.ToUpper(string(k)) + "_NOT_FOUND"
}

// Timestamp formata t em UTC no layout de TimestampLayout
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// StrPtr é um atalho para literais em payloads e testes
func StrPtr(s string) *string { return &s }
