package nanotts

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// markdownPatterns strips common markdown formatting while preserving the
// content beneath it, so synthesized speech never utters "asterisk
// asterisk" or reads out a heading's hash marks. Adapted from the
// teacher's simple markdown-stripping pass (no glamour renderer in the
// hot path — glamour is reserved for the demo CLI's optional preview).
var markdownPatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile("```[^`]*```"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`), "$1"},
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`__([^_]+)__`), "$1"},
	{regexp.MustCompile(`_([^_]+)_`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^>\s?(.*)$`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`), ""},
}

var collapseSpaces = regexp.MustCompile(`[ \t]+`)
var collapseBlankLines = regexp.MustCompile(`\n{3,}`)

// cleanMarkdown removes markdown syntax from text, preserving its
// readable content. It is applied to every completed segment before the
// pre-hook runs.
func cleanMarkdown(text string) string {
	if text == "" {
		return text
	}
	cleaned := text
	for _, p := range markdownPatterns {
		cleaned = p.pattern.ReplaceAllString(cleaned, p.replacement)
	}
	cleaned = collapseSpaces.ReplaceAllString(cleaned, " ")
	cleaned = collapseBlankLines.ReplaceAllString(cleaned, "\n\n")
	return cleaned
}

// normalizeText NFC-normalizes incoming text fragments, collapses runs of
// two or more spaces to one (tabs are left as they are), and collapses
// three or more newlines to a blank line, matching the original implementation's
// per-chunk preprocessing. It deliberately does not trim leading or
// trailing whitespace: that would merge words across fragment boundaries
// in a streaming feed.
func normalizeText(text string) string {
	if text == "" {
		return text
	}
	normalized := norm.NFC.String(text)
	normalized = regexp.MustCompile(`  +`).ReplaceAllString(normalized, " ")
	normalized = regexp.MustCompile(`\n[ \t]*\n[ \t]*\n+`).ReplaceAllString(normalized, "\n\n")
	return normalized
}

// hasMarkdownResidue reports whether text still contains obvious markdown
// syntax; used by tests to assert the cleanliness invariant.
func hasMarkdownResidue(text string) bool {
	return strings.Contains(text, "**") || strings.Contains(text, "`") ||
		regexp.MustCompile(`(?m)^#`).MatchString(text)
}
