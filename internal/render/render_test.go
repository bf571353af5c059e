package render

import (
	"context"
	"strings"
	"testing"

	"github.com/lllllan02/knowledge-base/internal/scanner"
	"github.com/lllllan02/knowledge-base/internal/store"
)

type fakeFinder struct {
	byTitle map[string]string // normalized title -> note id
}

func (f *fakeFinder) FindFirstMatch(_ context.Context, ref string) (*store.Note, error) {
	id, ok := f.byTitle[scanner.NormalizeTitle(ref)]
	if !ok {
		return nil, nil
	}
	return &store.Note{ID: id}, nil
}

func TestRender_ResolvedLinkBecomesAnchor(t *testing.T) {
	r := New(&fakeFinder{byTitle: map[string]string{"plan": "id-1"}})
	out, err := r.Render(context.Background(), "see [[Plan]] for details")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, `<a class="wikilink" href="/api/notes/id-1">Plan</a>`) {
		t.Errorf("output = %q", out)
	}
}

func TestRender_UnresolvedLinkBecomesStub(t *testing.T) {
	r := New(&fakeFinder{byTitle: map[string]string{}})
	out, err := r.Render(context.Background(), "see [[Missing]]")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, `<span class="wikilink stub">Missing</span>`) {
		t.Errorf("output = %q", out)
	}
}

func TestRender_TagsBecomeSpans(t *testing.T) {
	r := New(&fakeFinder{})
	out, err := r.Render(context.Background(), "tagged #go here")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, `<span class="tag">#go</span>`) {
		t.Errorf("output = %q", out)
	}
}

func TestRender_MarkdownConverted(t *testing.T) {
	r := New(&fakeFinder{})
	out, err := r.Render(context.Background(), "# Heading\n\nbody")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<h1>Heading</h1>") {
		t.Errorf("output = %q", out)
	}
	// The heading marker must not be mistaken for a tag.
	if strings.Contains(out, `<span class="tag">#Heading`) {
		t.Errorf("heading rendered as tag: %q", out)
	}
}
