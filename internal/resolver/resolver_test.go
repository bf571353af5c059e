package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/store"
)

// fakeIndex is an in-memory TitleIndex that counts queries.
type fakeIndex struct {
	notes   []store.Note
	lookups int
	err     error
}

func (f *fakeIndex) QueryNotesByTitleExact(_ context.Context, ref string) ([]store.Note, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	norm := scanner.NormalizeTitle(ref)
	var out []store.Note
	for _, n := range f.notes {
		if scanner.NormalizeTitle(n.Title) == norm {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeIndex) QueryNotesByTitleContains(_ context.Context, ref string) ([]store.Note, error) {
	if f.err != nil {
		return nil, f.err
	}
	norm := scanner.NormalizeTitle(ref)
	var out []store.Note
	for _, n := range f.notes {
		if norm != "" && strings.Contains(scanner.NormalizeTitle(n.Title), norm) {
			out = append(out, n)
		}
	}
	return out, nil
}

func planIndex() *fakeIndex {
	return &fakeIndex{notes: []store.Note{
		{ID: "1", Title: "Plan"},
		{ID: "2", Title: "Plan B"},
	}}
}

func TestResolve_ExactMatchWins(t *testing.T) {
	r := New(planIndex())
	for _, ref := range []string{"Plan", "plan", "  PLAN "} {
		notes, err := r.Resolve(context.Background(), ref)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", ref, err)
		}
		if len(notes) != 1 || notes[0].ID != "1" {
			t.Errorf("Resolve(%q) = %+v, want only Plan", ref, notes)
		}
	}
}

func TestResolve_SubstringFallback(t *testing.T) {
	r := New(planIndex())
	notes, err := r.Resolve(context.Background(), "Pla")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("notes = %+v, want both Plan and Plan B", notes)
	}
}

func TestResolve_EmptyReference(t *testing.T) {
	r := New(planIndex())
	notes, err := r.Resolve(context.Background(), "   ")
	if err != nil || notes != nil {
		t.Errorf("Resolve(blank) = %v, %v, want empty and no error", notes, err)
	}
}

func TestResolve_Memoized(t *testing.T) {
	idx := planIndex()
	r := New(idx)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "Plan"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(ctx, "PLAN"); err != nil {
		t.Fatal(err)
	}
	if idx.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (second resolve served from cache)", idx.lookups)
	}
	if r.CacheLen() != 1 {
		t.Errorf("CacheLen = %d, want 1", r.CacheLen())
	}
}

func TestInvalidate_TargetedAndFull(t *testing.T) {
	idx := planIndex()
	r := New(idx)
	ctx := context.Background()

	_, _ = r.Resolve(ctx, "Plan")
	_, _ = r.Resolve(ctx, "Plan B")

	r.Invalidate(" PLAN ")
	if r.CacheLen() != 1 {
		t.Errorf("CacheLen = %d after targeted invalidate, want 1", r.CacheLen())
	}

	r.InvalidateAll()
	if r.CacheLen() != 0 {
		t.Errorf("CacheLen = %d after full invalidate, want 0", r.CacheLen())
	}

	// The next resolve hits the index again.
	before := idx.lookups
	_, _ = r.Resolve(ctx, "Plan")
	if idx.lookups != before+1 {
		t.Error("invalidated entry still served from cache")
	}
}

func TestResolve_RenameScenario(t *testing.T) {
	idx := planIndex()
	idx.notes = append(idx.notes, store.Note{ID: "3", Title: "Draft"})
	r := New(idx)
	ctx := context.Background()

	notes, _ := r.Resolve(ctx, "Draft")
	if len(notes) != 1 || notes[0].ID != "3" {
		t.Fatalf("notes = %+v", notes)
	}

	// Rename Draft -> Final in the backing index; the cache must not be
	// trusted after the owning session invalidates.
	idx.notes[2].Title = "Final"
	r.InvalidateAll()

	notes, _ = r.Resolve(ctx, "Draft")
	if len(notes) != 0 {
		t.Errorf("stale resolution after rename: %+v", notes)
	}
}

// gatedIndex blocks the first exact-title query until released, so a test
// can invalidate the cache while a lookup is in flight.
type gatedIndex struct {
	fakeIndex
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedIndex) QueryNotesByTitleExact(ctx context.Context, ref string) ([]store.Note, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.fakeIndex.QueryNotesByTitleExact(ctx, ref)
}

func TestResolve_InvalidationDuringLookupNotCached(t *testing.T) {
	idx := &gatedIndex{
		fakeIndex: fakeIndex{notes: []store.Note{{ID: "n1", Title: "Draft"}}},
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	r := New(idx)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The result may predate the invalidation; that is fine for this
		// caller, it just must not stick in the cache.
		_, _ = r.Resolve(ctx, "Draft")
	}()

	<-idx.started
	// Rename lands while the lookup is in flight.
	idx.notes[0].Title = "Final"
	r.InvalidateAll()
	close(idx.release)
	<-done

	if r.CacheLen() != 0 {
		t.Fatalf("CacheLen = %d, pre-invalidation result was cached", r.CacheLen())
	}
	notes, err := r.Resolve(ctx, "Draft")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 0 {
		t.Errorf("resolve(Draft) after invalidation = %+v, want empty", notes)
	}
}

func TestFindFirstMatch(t *testing.T) {
	r := New(planIndex())
	ctx := context.Background()

	n, err := r.FindFirstMatch(ctx, "Plan B")
	if err != nil || n == nil || n.ID != "2" {
		t.Errorf("FindFirstMatch = %+v, %v", n, err)
	}
	n, err = r.FindFirstMatch(ctx, "nothing here")
	if err != nil || n != nil {
		t.Errorf("FindFirstMatch(miss) = %+v, %v, want nil", n, err)
	}
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	idx := planIndex()
	idx.err = errors.New("disk gone")
	r := New(idx)

	if _, err := r.Resolve(context.Background(), "Plan"); err == nil {
		t.Error("expected store error to propagate")
	}
	if r.CacheLen() != 0 {
		t.Error("failed lookup must not be cached")
	}
}
