// Package store persiste coleções nomeadas de registros como arrays JSON.
//
// Store é o backend em bytes (arquivo, memória, Redis, SQL); Collection[T]
// implementa as operações tipadas de leitura, escrita completa e remoção por id.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/palpitei-api/internal/catalog/model"
)

// ErrCorrupt indica conteúdo persistido que não é JSON válido
var ErrCorrupt = errors.New("store: corrupted collection")

// Store guarda o conteúdo completo de cada coleção
// Load retorna (nil, nil) quando nada foi gravado para o nome
// Save substitui o conteúdo de forma atômica para leitores concorrentes
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Ping(ctx context.Context) error
}

// Collection é a visão tipada de uma coleção sobre um Store
type Collection[T model.Entity[T]] struct {
	name    string
	backend Store
}

// NewCollection cria a coleção name sobre o backend
func NewCollection[T model.Entity[T]](backend Store, name string) *Collection[T] {
	return &Collection[T]{name: name, backend: backend}
}

// Name retorna o nome da coleção
func (c *Collection[T]) Name() string { return c.name }

// Read retorna a sequência completa; vazia se nunca houve gravação
func (c *Collection[T]) Read(ctx context.Context) ([]T, error) {
	raw, err := c.backend.Load(ctx, c.name)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", c.name, err)
	}
	return decode[T](c.name, raw)
}

// Write persiste items como o novo conteúdo completo da coleção
func (c *Collection[T]) Write(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", c.name, err)
	}
	if err := c.backend.Save(ctx, c.name, b); err != nil {
		return fmt.Errorf("write collection %s: %w", c.name, err)
	}
	return nil
}

// DeleteByID remove o (primeiro) registro com o id e grava somente se houve remoção
func (c *Collection[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	items, err := c.Read(ctx)
	if err != nil {
		return false, err
	}
	for i, item := range items {
		if item.GetMeta().ID != id {
			continue
		}
		next := make([]T, 0, len(items)-1)
		next = append(next, items[:i]...)
		next = append(next, items[i+1:]...)
		if err := c.Write(ctx, next); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func decode[T any](name string, raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	// conteúdo que não é array é tratado como coleção vazia
	if len(raw) == 0 || raw[0] != '[' {
		if len(raw) > 0 && !json.Valid(raw) {
			return nil, fmt.Errorf("%w: %s", ErrCorrupt, name)
		}
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return items, nil
}
