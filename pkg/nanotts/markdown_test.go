package nanotts

import (
	"strings"
	"testing"
)

func TestCleanMarkdownStripsCommonSyntax(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bold", "this is **important** text"},
		{"italic", "this is *important* text"},
		{"code", "run `go build` now"},
		{"fenced block", "before\n```go\nfmt.Println(1)\n```\nafter"},
		{"heading", "# A Heading\nbody"},
		{"link", "see [the docs](https://example.com) for more"},
		{"blockquote", "> quoted line"},
		{"bullet list", "- first\n- second"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := cleanMarkdown(c.in)
			if hasMarkdownResidue(out) {
				t.Errorf("cleanMarkdown(%q) = %q, still has markdown residue", c.in, out)
			}
		})
	}
}

func TestCleanMarkdownPreservesReadableContent(t *testing.T) {
	out := cleanMarkdown("this is **important** text")
	if !strings.Contains(out, "important") {
		t.Errorf("expected content preserved, got %q", out)
	}
}

func TestNormalizeTextCollapsesHorizontalWhitespace(t *testing.T) {
	out := normalizeText("too    many   spaces")
	if strings.Contains(out, "   ") {
		t.Errorf("expected collapsed whitespace, got %q", out)
	}
}

func TestNormalizeTextPreservesLeadingAndTrailingWhitespace(t *testing.T) {
	out := normalizeText(" leading and trailing ")
	if !strings.HasPrefix(out, " ") || !strings.HasSuffix(out, " ") {
		t.Errorf("expected boundary whitespace preserved for streaming joins, got %q", out)
	}
}
