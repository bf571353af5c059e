package scanner

import (
	"reflect"
	"testing"
)

func TestTitle_FirstLine(t *testing.T) {
	title := Title("# My Note\nbody text")
	if title != "My Note" {
		t.Errorf("title = %q, want %q", title, "My Note")
	}
}

func TestTitle_SkipsEmptyLines(t *testing.T) {
	title := Title("\n\n   \n- First item\nmore")
	if title != "First item" {
		t.Errorf("title = %q, want %q", title, "First item")
	}
}

func TestTitle_StripsMarkers(t *testing.T) {
	cases := map[string]string{
		"## Heading":    "Heading",
		"* bullet":      "bullet",
		"_emphasis":     "emphasis",
		"  - # mixed":   "mixed",
		"plain already": "plain already",
	}
	for in, want := range cases {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTitle_Fallback(t *testing.T) {
	for _, in := range []string{"", "   \n\t\n", "###\n--"} {
		if got := Title(in); got != "Untitled note" {
			t.Errorf("Title(%q) = %q, want fallback", in, got)
		}
	}
}

func TestTags_LowercaseDedupeOrder(t *testing.T) {
	tags := Tags("#Go and #go again, then #Testing and #db-design #snake_case")
	want := []string{"go", "testing", "db-design", "snake_case"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}

func TestTags_Unicode(t *testing.T) {
	tags := Tags("notes about #读书 and #café")
	want := []string{"读书", "café"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}

func TestTags_PartialSyntax(t *testing.T) {
	if tags := Tags("# just a heading marker, lone # sign"); tags != nil {
		// "# " is not followed by a word character, so nothing matches.
		t.Errorf("tags = %v, want none", tags)
	}
}

func TestWikilinks_TrimDedupeOrder(t *testing.T) {
	links := Wikilinks("see [[ Plan ]] then [[Other]] then [[Plan]] again")
	want := []string{"Plan", "Other"}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("links = %v, want %v", links, want)
	}
}

func TestWikilinks_Malformed(t *testing.T) {
	cases := []string{
		"unterminated [[Link goes nowhere",
		"empty [[  ]] span",
		"nested [[a[[b]]",  // inner brackets break the outer span
		"stray ]] closing",
	}
	for _, in := range cases {
		links := Wikilinks(in)
		for _, l := range links {
			if l != "b" { // the nested case legitimately yields the inner span
				t.Errorf("Wikilinks(%q) produced unexpected %q", in, l)
			}
		}
	}
}

func TestWikilinks_Unterminated(t *testing.T) {
	if links := Wikilinks("[[never closed"); links != nil {
		t.Errorf("links = %v, want none", links)
	}
}

func TestExtraction_Idempotent(t *testing.T) {
	content := "# Note\n[[A]] [[B]] #x #y [[A]]"
	if Title(content) != Title(content) {
		t.Error("Title is not deterministic")
	}
	if !reflect.DeepEqual(Tags(content), Tags(content)) {
		t.Error("Tags is not deterministic")
	}
	if !reflect.DeepEqual(Wikilinks(content), Wikilinks(content)) {
		t.Error("Wikilinks is not deterministic")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  Plan B  "); got != "plan b" {
		t.Errorf("NormalizeTitle = %q, want %q", got, "plan b")
	}
}
