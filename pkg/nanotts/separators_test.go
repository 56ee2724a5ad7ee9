package nanotts

import "testing"

func TestTier1MatchesCJKPunctuationUnconditionally(t *testing.T) {
	ends := tier1Matches("你好。再见！")
	if len(ends) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(ends), ends)
	}
}

func TestTier1MatchesQuestionMarkRequiresTrailingSpace(t *testing.T) {
	ends := tier1Matches("is this real?yes")
	if len(ends) != 0 {
		t.Fatalf("expected no match for '?' immediately followed by a letter, got %v", ends)
	}

	ends = tier1Matches("is this real? yes")
	if len(ends) != 1 {
		t.Fatalf("expected 1 match for '? ', got %v", ends)
	}
}

func TestTier1MatchesDotFollowedByLowercaseIsNotABreak(t *testing.T) {
	// A period immediately followed by another letter (as in "Ph.D.") never
	// matches; only whitespace-then-uppercase or end-of-buffer do.
	ends := tier1Matches("Ph.D. in physics")
	if len(ends) != 0 {
		t.Fatalf("expected no match inside 'Ph.D.', got %v", ends)
	}
}

func TestTier1MatchesDotFollowedBySpaceUppercase(t *testing.T) {
	// This mirrors the original regex's `\.(?=\s+[A-Z])` rule exactly: a
	// capitalized word after the period is what the tier-1 matcher treats
	// as a sentence boundary, whether or not the preceding word is an
	// abbreviation. The min-token gate in checkAndSegment, not this
	// matcher, is what keeps short abbreviations from producing a segment
	// on their own.
	ends := tier1Matches("Dr. Smith arrived.")
	if len(ends) != 2 {
		t.Fatalf("expected 2 matches ('Dr. ' and the trailing '.'), got %v", ends)
	}
}

func TestTier1MatchesEndOfBufferDot(t *testing.T) {
	ends := tier1Matches("That is all.")
	if len(ends) != 1 {
		t.Fatalf("expected end-of-buffer '.' to match, got %v", ends)
	}
	if ends[0] != len("That is all.") {
		t.Errorf("expected match to end at buffer end, got %d", ends[0])
	}
}

func TestTier1MatchesNewlineRun(t *testing.T) {
	ends := tier1Matches("paragraph one\n\n\nparagraph two")
	if len(ends) != 1 {
		t.Fatalf("expected a single match collapsing the newline run, got %v", ends)
	}
}

func TestTier2MatchesCommaWithTrailingSpace(t *testing.T) {
	ends := tier2Matches("first, second, third")
	if len(ends) != 2 {
		t.Fatalf("expected 2 comma matches, got %v", ends)
	}
}

func TestTier2MatchesIgnoresCommaWithoutSpace(t *testing.T) {
	ends := tier2Matches("1,000,000")
	if len(ends) != 0 {
		t.Fatalf("expected no match for comma with no trailing space, got %v", ends)
	}
}
