// Package resolver matches wikilink reference text against note titles,
// with a memoized resolution cache.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/store"
)

// TitleIndex is the store capability the resolver depends on.
type TitleIndex interface {
	QueryNotesByTitleExact(ctx context.Context, ref string) ([]store.Note, error)
	QueryNotesByTitleContains(ctx context.Context, ref string) ([]store.Note, error)
}

// Resolver resolves reference text to candidate notes. Results are memoized
// per normalized reference until invalidated; the owning session must
// invalidate on every note create, delete, or title change.
type Resolver struct {
	titles TitleIndex

	mu    sync.RWMutex
	cache map[string][]store.Note
	epoch uint64
	group singleflight.Group
}

// New creates a resolver over the given title index.
func New(titles TitleIndex) *Resolver {
	return &Resolver{
		titles: titles,
		cache:  make(map[string][]store.Note),
	}
}

// Resolve returns the candidate notes for a reference. Exact title matches
// (case-insensitive, trimmed) always win; only when there are none does the
// resolver fall back to substring matching. Absence is an empty result,
// never an error.
func (r *Resolver) Resolve(ctx context.Context, ref string) ([]store.Note, error) {
	norm := scanner.NormalizeTitle(ref)
	if norm == "" {
		return nil, nil
	}

	r.mu.RLock()
	cached, ok := r.cache[norm]
	epoch := r.epoch
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// Collapse concurrent lookups for the same reference into one query.
	v, err, _ := r.group.Do(norm, func() (any, error) {
		notes, err := r.lookup(ctx, norm)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		// An invalidation while the lookup was in flight means the result
		// may predate it; return it to the caller but keep it out of the
		// cache so later resolves see post-invalidation truth.
		if r.epoch == epoch {
			r.cache[norm] = notes
		}
		r.mu.Unlock()
		return notes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolver: resolve %q: %w", ref, err)
	}
	return v.([]store.Note), nil
}

func (r *Resolver) lookup(ctx context.Context, norm string) ([]store.Note, error) {
	exact, err := r.titles.QueryNotesByTitleExact(ctx, norm)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return r.titles.QueryNotesByTitleContains(ctx, norm)
}

// FindFirstMatch returns the first candidate for a reference, or nil when
// nothing matches. Used by rendering to decide link vs stub.
func (r *Resolver) FindFirstMatch(ctx context.Context, ref string) (*store.Note, error) {
	notes, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}
	return &notes[0], nil
}

// Invalidate removes the cache entries for the given references (normalized
// internally).
func (r *Resolver) Invalidate(refs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	for _, ref := range refs {
		delete(r.cache, scanner.NormalizeTitle(ref))
	}
}

// InvalidateAll clears the whole cache.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	clear(r.cache)
}

// CacheLen reports the number of memoized references.
func (r *Resolver) CacheLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
