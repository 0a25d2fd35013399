// Package merge reconcilia lotes de registros recebidos com uma coleção existente.
//
// Regras de correspondência, em ordem de precedência:
//  1. externalId não vazio presente no índice por externalId
//  2. id presente no índice por id
//  3. nenhum: registro novo (id do candidato ou um uuid novo)
//
// Registros correspondidos substituem a posição original; novos são anexados.
package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/palpitei-api/internal/catalog/model"
)

// ErrInvalidArgument indica violação de contrato (registro não representável como objeto JSON)
var ErrInvalidArgument = errors.New("merge: invalid argument")

// Stamper fornece relógio e gerador de ids; zero value usa time.Now e uuid
type Stamper struct {
	Now   func() time.Time
	NewID func() string
}

// Stamp retorna o instante atual formatado como timestamp de registro.
// Com o relógio padrão os valores são estritamente crescentes no processo:
// duas chamadas no mesmo milissegundo avançam o segundo valor em 1ms.
func (s Stamper) Stamp() string {
	if s.Now != nil {
		return model.Timestamp(s.Now())
	}
	return model.Timestamp(time.UnixMilli(nextMilli(time.Now().UnixMilli())))
}

var lastMilli atomic.Int64

func nextMilli(now int64) int64 {
	for {
		last := lastMilli.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastMilli.CompareAndSwap(last, next) {
			return next
		}
	}
}

func (s Stamper) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Result traz a coleção completa a persistir e os registros efetivamente gravados,
// um por candidato, na ordem de entrada
type Result[T any] struct {
	Merged   []T
	Upserted []T
}

// Upsert aplica o lote incoming sobre existing. Não faz I/O.
func Upsert[T model.Entity[T]](s Stamper, existing, incoming []T) (Result[T], error) {
	return UpsertWith(s, existing, incoming, nil)
}

// UpsertWith é Upsert com onCreate aplicado somente aos candidatos sem
// correspondência, antes de receberem id e timestamps. onCreate pode ser nil.
func UpsertWith[T model.Entity[T]](s Stamper, existing, incoming []T, onCreate func(T) T) (Result[T], error) {
	byExternal := make(map[string]T, len(existing))
	byID := make(map[string]T, len(existing))
	for _, item := range existing {
		meta := item.GetMeta()
		if ext := meta.ExternalKey(); ext != "" {
			byExternal[ext] = item // duplicados: o último vence
		}
		byID[meta.ID] = item
	}

	upserted := make([]T, 0, len(incoming))
	for _, item := range incoming {
		meta := item.GetMeta()

		var (
			found   T
			matched bool
		)
		if ext := meta.ExternalKey(); ext != "" {
			found, matched = byExternal[ext]
		}
		if !matched && meta.ID != "" {
			found, matched = byID[meta.ID]
		}

		if matched {
			next, err := Patch(s, found, item)
			if err != nil {
				return Result[T]{}, err
			}
			upserted = append(upserted, next)
			continue
		}

		if onCreate != nil {
			item = onCreate(item)
		}
		now := s.Stamp()
		if meta.ID == "" {
			meta.ID = s.newID()
		}
		meta.CreatedAt = now
		meta.UpdatedAt = now
		upserted = append(upserted, item.WithMeta(meta))
	}

	merged := make([]T, len(existing), len(existing)+len(upserted))
	copy(merged, existing)
	// índice de posições calculado uma única vez sobre a coleção original
	position := make(map[string]int, len(existing))
	for i, item := range existing {
		position[item.GetMeta().ID] = i
	}
	for _, item := range upserted {
		if idx, ok := position[item.GetMeta().ID]; ok {
			merged[idx] = item
		} else {
			merged = append(merged, item)
		}
	}

	return Result[T]{Merged: merged, Upserted: upserted}, nil
}

// Patch faz a união de campos de existing com patch (patch sobrescreve),
// mantém o id de existing e carimba updatedAt
func Patch[T model.Entity[T]](s Stamper, existing, patch T) (T, error) {
	out, err := overlay(existing, patch)
	if err != nil {
		return existing, err
	}
	meta := out.GetMeta()
	meta.ID = existing.GetMeta().ID
	meta.UpdatedAt = s.Stamp()
	return out.WithMeta(meta), nil
}

// overlay sobrepõe os campos presentes em patch aos de base (merge raso via JSON)
func overlay[T any](base, patch T) (T, error) {
	var out T

	baseFields, err := fields(base)
	if err != nil {
		return out, err
	}
	patchFields, err := fields(patch)
	if err != nil {
		return out, err
	}
	for k, v := range patchFields {
		baseFields[k] = v
	}

	b, err := json.Marshal(baseFields)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return out, nil
}

func fields(v any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return nil, fmt.Errorf("%w: record is not an object", ErrInvalidArgument)
	}
	return m, nil
}
