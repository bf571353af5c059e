// Package render converts note content to HTML previews. Wikilinks become
// anchors when they resolve and stub spans when they do not; tags become
// styled spans.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"

	"github.com/yuin/goldmark"

	"github.com/lllllan02/knowledge-base/internal/store"
)

var md = goldmark.New()

// LinkFinder decides whether a reference resolves; typically the session's
// resolver.
type LinkFinder interface {
	FindFirstMatch(ctx context.Context, ref string) (*store.Note, error)
}

// Renderer produces HTML previews of note content.
type Renderer struct {
	links LinkFinder
}

// New creates a renderer using the given link finder.
func New(links LinkFinder) *Renderer {
	return &Renderer{links: links}
}

var (
	wikilinkSpanRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	// The leading group keeps HTML entities like &#39; from being read as tags.
	tagSpanRe = regexp.MustCompile(`(^|[^&\pL\pN])#([\p{L}\p{N}_-]+)`)
)

// Render converts content to HTML. Markdown is converted first; wikilink
// and tag spans survive conversion as literal text and are rewritten in the
// HTML output. Resolution failures degrade to stub links, never errors.
func (r *Renderer) Render(ctx context.Context, content string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render: convert: %w", err)
	}
	out := buf.String()

	out = wikilinkSpanRe.ReplaceAllStringFunc(out, func(m string) string {
		inner := wikilinkSpanRe.FindStringSubmatch(m)[1]
		display := html.EscapeString(inner)
		target, err := r.links.FindFirstMatch(ctx, inner)
		if err != nil || target == nil {
			return `<span class="wikilink stub">` + display + `</span>`
		}
		return `<a class="wikilink" href="/api/notes/` + target.ID + `">` + display + `</a>`
	})

	out = tagSpanRe.ReplaceAllString(out, `$1<span class="tag">#$2</span>`)
	return out, nil
}
