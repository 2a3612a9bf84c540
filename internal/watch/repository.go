package watch

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned for unknown source ids.
var ErrNotFound = errors.New("linked source not found")

// Repository persists linked sources by id.
type Repository interface {
	Get(ctx context.Context, id string) (*LinkedSource, error)
	Put(ctx context.Context, src *LinkedSource) error
	// Update replaces an existing record and returns ErrNotFound when the
	// id is no longer stored. It never creates a record.
	Update(ctx context.Context, src *LinkedSource) error
	List(ctx context.Context) ([]*LinkedSource, error)
	Remove(ctx context.Context, id string) error
}

// Notifier is implemented by repositories that can be changed from outside
// the process. A value on Changes means the whole collection should be
// re-read.
type Notifier interface {
	Changes() <-chan struct{}
}

// MemoryRepository keeps sources in memory. Returned records are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	sources map[string]*LinkedSource
	changes chan struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sources: make(map[string]*LinkedSource),
		changes: make(chan struct{}, 1),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*LinkedSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return src.clone(), nil
}

func (r *MemoryRepository) Put(ctx context.Context, src *LinkedSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if src == nil || src.ID == "" {
		return errors.New("linked source id is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.ID] = src.clone()
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, src *LinkedSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if src == nil || src.ID == "" {
		return errors.New("linked source id is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[src.ID]; !ok {
		return ErrNotFound
	}
	r.sources[src.ID] = src.clone()
	return nil
}

// List returns sources ordered by link time, then id.
func (r *MemoryRepository) List(ctx context.Context) ([]*LinkedSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*LinkedSource, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, src.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LinkedAt.Equal(out[j].LinkedAt) {
			return out[i].LinkedAt.Before(out[j].LinkedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return ErrNotFound
	}
	delete(r.sources, id)
	return nil
}

func (r *MemoryRepository) Changes() <-chan struct{} {
	return r.changes
}

// NotifyExternalChange signals subscribers as if another process had
// written to the store. Signals coalesce.
func (r *MemoryRepository) NotifyExternalChange() {
	select {
	case r.changes <- struct{}{}:
	default:
	}
}
