// Package backlink computes the reverse link view: which notes reference a
// given note by title.
package backlink

import (
	"context"
	"fmt"

	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/store"
)

// NoteLister is the store capability the index depends on.
type NoteLister interface {
	ListAllNotes(ctx context.Context) ([]store.Note, error)
}

// Index computes backlinks by a full scan over all notes. No reverse index
// is persisted; the corpus is local and bounded.
type Index struct {
	notes NoteLister
}

// New creates a backlink index over the given note lister.
func New(notes NoteLister) *Index {
	return &Index{notes: notes}
}

// FindBacklinks returns every note (excluding the target itself) whose
// content contains a wikilink whose normalized form equals the target's
// normalized title. Substring matches never count as backlinks; a backlink
// claims the note explicitly names the target.
func (ix *Index) FindBacklinks(ctx context.Context, target store.Note) ([]store.Note, error) {
	if target.ID == "" {
		return nil, nil
	}
	norm := scanner.NormalizeTitle(target.Title)
	if norm == "" {
		return nil, nil
	}

	all, err := ix.notes.ListAllNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("backlink: list notes: %w", err)
	}

	var out []store.Note
	for _, n := range all {
		if n.ID == target.ID {
			continue
		}
		for _, ref := range scanner.Wikilinks(n.Content) {
			if scanner.NormalizeTitle(ref) == norm {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}
