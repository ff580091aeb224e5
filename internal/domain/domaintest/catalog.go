// Package domaintest provides in-memory repositories for service tests.
package domaintest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/domain"
)

// CatalogItem is satisfied by pointers to structs embedding entity.Catalog.
type CatalogItem interface {
	entity.Validatable
	GetID() id.ID
	GetCode() string
}

// CatalogRepo is a map-backed domain.CatalogRepository.
type CatalogRepo[T CatalogItem] struct {
	mu      sync.RWMutex
	items   map[id.ID]T
	deleted map[id.ID]bool
	name    string
}

func NewCatalogRepo[T CatalogItem](name string) *CatalogRepo[T] {
	return &CatalogRepo[T]{
		items:   make(map[id.ID]T),
		deleted: make(map[id.ID]bool),
		name:    name,
	}
}

func (r *CatalogRepo[T]) Create(ctx context.Context, e T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.GetCode() == e.GetCode() {
			return apperror.NewDuplicate(r.name, "code", e.GetCode())
		}
	}
	r.items[e.GetID()] = e
	return nil
}

func (r *CatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[entityID]
	if !ok {
		var zero T
		return zero, apperror.NewNotFound(r.name, entityID.String())
	}
	return e, nil
}

func (r *CatalogRepo[T]) GetByCode(ctx context.Context, code string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.items {
		if e.GetCode() == code {
			return e, nil
		}
	}
	var zero T
	return zero, apperror.NewNotFound(r.name, code)
}

// Find returns the first item matching pred.
func (r *CatalogRepo[T]) Find(pred func(T) bool) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.items {
		if pred(e) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func (r *CatalogRepo[T]) Update(ctx context.Context, e T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[e.GetID()]; !ok {
		return apperror.NewNotFound(r.name, e.GetID().String())
	}
	r.items[e.GetID()] = e
	return nil
}

func (r *CatalogRepo[T]) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[entityID]; !ok {
		return apperror.NewNotFound(r.name, entityID.String())
	}
	r.deleted[entityID] = marked
	return nil
}

func (r *CatalogRepo[T]) IsDeleted(entityID id.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleted[entityID]
}

// List supports Search on code, IncludeDeleted, Limit and Offset. Items are
// ordered by code.
func (r *CatalogRepo[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []T
	for entityID, e := range r.items {
		if r.deleted[entityID] && !f.IncludeDeleted {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.GetCode()), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].GetCode() < all[j].GetCode() })

	res := domain.ListResult[T]{TotalCount: int64(len(all)), Limit: f.Limit, Offset: f.Offset}
	if f.Offset < len(all) {
		all = all[f.Offset:]
	} else {
		all = nil
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	res.Items = all
	return res, nil
}

func (r *CatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[entityID]
	return ok, nil
}

func (r *CatalogRepo[T]) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	return err == nil, nil
}
