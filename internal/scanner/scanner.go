// Package scanner extracts titles, tags, and wikilink references from raw
// note content. All functions are pure and safe for arbitrary input.
package scanner

import (
	"regexp"
	"strings"
)

const untitledFallback = "Untitled note"

var (
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	tagRe      = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)
)

// Title returns the first non-empty line of content with leading Markdown
// markers (#, -, *, _) and whitespace stripped. Returns a fixed fallback
// when content has no usable line.
func Title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimLeft(line, "#-*_ \t\r")
		stripped = strings.TrimSpace(stripped)
		if stripped != "" {
			return stripped
		}
	}
	return untitledFallback
}

// Tags returns all #tag tokens in content, lowercased and deduplicated in
// first-seen order. A tag is # followed by letters (any script), digits,
// underscore, or hyphen.
func Tags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Wikilinks returns the inner text of every [[...]] span, trimmed and
// deduplicated in first-seen order. Spans containing brackets, and spans
// that are empty after trimming, are skipped. Unterminated [[ never matches.
func Wikilinks(content string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		ref := strings.TrimSpace(m[1])
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// NormalizeTitle returns the trimmed, case-folded form of a title or
// reference. All link-equality comparisons use this form.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
