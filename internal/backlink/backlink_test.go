package backlink

import (
	"context"
	"errors"
	"testing"

	"github.com/lllllan02/knowledge-base/internal/store"
)

type fakeLister struct {
	notes []store.Note
	err   error
}

func (f *fakeLister) ListAllNotes(_ context.Context) ([]store.Note, error) {
	return f.notes, f.err
}

func TestFindBacklinks_ExactTitleOnly(t *testing.T) {
	target := store.Note{ID: "b", Title: "B"}
	lister := &fakeLister{notes: []store.Note{
		target,
		{ID: "a", Title: "A", Content: "links to [[B]] here"},
		{ID: "c", Title: "C", Content: "mentions [[Bigger]] only"}, // substring, not a backlink
		{ID: "d", Title: "D", Content: "case folded [[ b ]] link"},
		{ID: "e", Title: "E", Content: "plain text B without brackets"},
	}}

	ix := New(lister)
	bl, err := ix.FindBacklinks(context.Background(), target)
	if err != nil {
		t.Fatalf("FindBacklinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("backlinks = %+v, want a and d", bl)
	}
	if bl[0].ID != "a" || bl[1].ID != "d" {
		t.Errorf("backlinks = %v, %v", bl[0].ID, bl[1].ID)
	}
}

func TestFindBacklinks_ExcludesSelf(t *testing.T) {
	target := store.Note{ID: "x", Title: "X", Content: "self reference [[X]]"}
	ix := New(&fakeLister{notes: []store.Note{target}})

	bl, err := ix.FindBacklinks(context.Background(), target)
	if err != nil || len(bl) != 0 {
		t.Errorf("backlinks = %+v, %v, want none", bl, err)
	}
}

func TestFindBacklinks_RemovedAfterEdit(t *testing.T) {
	target := store.Note{ID: "b", Title: "B"}
	lister := &fakeLister{notes: []store.Note{
		target,
		{ID: "a", Title: "A", Content: "see [[B]]"},
	}}
	ix := New(lister)
	ctx := context.Background()

	bl, _ := ix.FindBacklinks(ctx, target)
	if len(bl) != 1 {
		t.Fatalf("backlinks = %+v, want a", bl)
	}

	// A's content no longer names B; no stale results may survive since
	// nothing is persisted.
	lister.notes[1].Content = "link removed"
	bl, _ = ix.FindBacklinks(ctx, target)
	if len(bl) != 0 {
		t.Errorf("backlinks = %+v after edit, want none", bl)
	}
}

func TestFindBacklinks_OrphanedByRename(t *testing.T) {
	// Target was renamed so existing [[Old]] references no longer match.
	target := store.Note{ID: "t", Title: "New Title"}
	ix := New(&fakeLister{notes: []store.Note{
		target,
		{ID: "a", Title: "A", Content: "see [[Old]]"},
	}})

	bl, err := ix.FindBacklinks(context.Background(), target)
	if err != nil || len(bl) != 0 {
		t.Errorf("backlinks = %+v, %v, want empty set", bl, err)
	}
}

func TestFindBacklinks_NoIdentity(t *testing.T) {
	ix := New(&fakeLister{})
	bl, err := ix.FindBacklinks(context.Background(), store.Note{Title: "unsaved"})
	if err != nil || bl != nil {
		t.Errorf("backlinks = %+v, %v, want empty", bl, err)
	}
}

func TestFindBacklinks_ListError(t *testing.T) {
	ix := New(&fakeLister{err: errors.New("boom")})
	if _, err := ix.FindBacklinks(context.Background(), store.Note{ID: "x", Title: "X"}); err == nil {
		t.Error("expected error to propagate")
	}
}
