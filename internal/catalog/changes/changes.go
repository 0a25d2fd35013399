// Package changes publica e distribui notificações de alteração nas coleções do catálogo.
package changes

import "context"

// Change descreve uma escrita bem-sucedida em uma coleção
type Change struct {
	Collection string   `json:"collection"`
	Op         string   `json:"op"` // create | update | delete | ingest | processed | profitable
	IDs        []string `json:"ids"`
	At         string   `json:"at"`
}

// Notifier recebe as alterações após a persistência
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// NotifierFunc adapta uma função a Notifier
type NotifierFunc func(ctx context.Context, c Change) error

func (f NotifierFunc) Notify(ctx context.Context, c Change) error { return f(ctx, c) }
