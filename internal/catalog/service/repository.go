package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/palpitei-api/internal/catalog/changes"
	"github.com/radieske/palpitei-api/internal/catalog/merge"
	"github.com/radieske/palpitei-api/internal/catalog/model"
	"github.com/radieske/palpitei-api/internal/catalog/store"
	"github.com/radieske/palpitei-api/internal/shared/metrics"
)

// NotFoundError indica id ausente na coleção do Kind
type NotFoundError struct {
	Kind model.Kind
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Kind)
}

// Repository implementa list/get/create/update/delete de uma coleção.
// Cada mutação relê a coleção inteira e regrava o resultado completo.
type Repository[T model.Entity[T]] struct {
	kind     model.Kind
	coll     *store.Collection[T]
	stamper  merge.Stamper
	metrics  *metrics.Catalog
	notifier changes.Notifier // opcional
	log      *zap.Logger
	mu       *sync.Mutex // nil: sem serialização (padrão)
}

func newRepository[T model.Entity[T]](kind model.Kind, backend store.Store, opts Options) *Repository[T] {
	r := &Repository[T]{
		kind:     kind,
		coll:     store.NewCollection[T](backend, kind.Collection()),
		stamper:  opts.Stamper,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		log:      opts.Log,
	}
	if opts.SerializeWrites {
		r.mu = &sync.Mutex{}
	}
	return r
}

// Kind retorna o tipo de registro da coleção
func (r *Repository[T]) Kind() model.Kind { return r.kind }

func (r *Repository[T]) lock() func() {
	if r.mu == nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// List retorna a coleção completa na ordem persistida
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	return r.read(ctx)
}

// Get busca por id (busca linear)
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	items, err := r.read(ctx)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.GetMeta().ID == id {
			return item, nil
		}
	}
	return zero, &NotFoundError{Kind: r.kind}
}

// Create faz o upsert de um único registro e retorna o registro gravado
func (r *Repository[T]) Create(ctx context.Context, rec T) (T, error) {
	out, err := r.Upsert(ctx, []T{rec}, "create")
	if err != nil {
		var zero T
		return zero, err
	}
	return out[0], nil
}

// Upsert aplica o lote com o merge engine e persiste a coleção resultante.
// op rotula a métrica (create, ingest, processed, ...)
func (r *Repository[T]) Upsert(ctx context.Context, items []T, op string) ([]T, error) {
	return r.upsert(ctx, items, op, nil)
}

func (r *Repository[T]) upsert(ctx context.Context, items []T, op string, onCreate func(T) T) ([]T, error) {
	unlock := r.lock()
	defer unlock()

	existing, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	res, err := merge.UpsertWith(r.stamper, existing, items, onCreate)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", r.coll.Name(), err)
	}
	if err := r.write(ctx, res.Merged); err != nil {
		return nil, err
	}
	r.metrics.Upserted(r.coll.Name(), op, len(res.Upserted))
	r.notify(ctx, op, idsOf(res.Upserted))
	return res.Upserted, nil
}

// Update faz a união de campos do registro id com patch
func (r *Repository[T]) Update(ctx context.Context, id string, patch T) (T, error) {
	var zero T
	unlock := r.lock()
	defer unlock()

	items, err := r.read(ctx)
	if err != nil {
		return zero, err
	}
	idx := -1
	for i, item := range items {
		if item.GetMeta().ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return zero, &NotFoundError{Kind: r.kind}
	}

	updated, err := merge.Patch(r.stamper, items[idx], patch)
	if err != nil {
		return zero, fmt.Errorf("patch %s: %w", r.coll.Name(), err)
	}
	items[idx] = updated
	if err := r.write(ctx, items); err != nil {
		return zero, err
	}
	r.metrics.Upserted(r.coll.Name(), "update", 1)
	r.notify(ctx, "update", []string{id})
	return updated, nil
}

// Delete remove o registro id; NotFoundError se nada foi removido
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	unlock := r.lock()
	defer unlock()

	removed, err := r.coll.DeleteByID(ctx, id)
	if err != nil {
		r.metrics.StoreError(r.coll.Name(), "delete")
		return err
	}
	if !removed {
		return &NotFoundError{Kind: r.kind}
	}
	r.metrics.Deleted(r.coll.Name())
	r.notify(ctx, "delete", []string{id})
	return nil
}

// notify avisa o Notifier após a persistência; falhas só são logadas
func (r *Repository[T]) notify(ctx context.Context, op string, ids []string) {
	if r.notifier == nil || len(ids) == 0 {
		return
	}
	c := changes.Change{Collection: r.coll.Name(), Op: op, IDs: ids, At: r.stamper.Stamp()}
	if err := r.notifier.Notify(ctx, c); err != nil {
		r.log.Warn("change notification failed",
			zap.String("collection", c.Collection),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func idsOf[T model.Entity[T]](items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.GetMeta().ID
	}
	return ids
}

func (r *Repository[T]) read(ctx context.Context) ([]T, error) {
	items, err := r.coll.Read(ctx)
	if err != nil {
		r.metrics.StoreError(r.coll.Name(), "read")
		return nil, err
	}
	return items, nil
}

func (r *Repository[T]) write(ctx context.Context, items []T) error {
	if err := r.coll.Write(ctx, items); err != nil {
		r.metrics.StoreError(r.coll.Name(), "write")
		return err
	}
	return nil
}
