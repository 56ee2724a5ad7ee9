package nanotts

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collectSegments(t *testing.T, in Input, cfg SegmenterConfig) []Segment {
	t.Helper()
	seg, err := NewSegmenter(cfg)
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	out := make(chan Segment, 256)
	token := &StreamToken{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		seg.Run(ctx, in, out, token)
		close(done)
	}()

	var got []Segment
	for s := range out {
		got = append(got, s)
	}
	<-done
	return got
}

func TestSegmenterCJKStrongPunctuationCutsImmediately(t *testing.T) {
	got := collectSegments(t, StringInput("A。B！C？"), SegmenterConfig{MinTokens: 1, MaxTokens: 50})
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(got), got)
	}
	for i, want := range []string{"A。", "B！", "C？"} {
		if got[i].Text != want {
			t.Errorf("segment %d: got %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestSegmenterPreservesDecimalsAndInitialisms(t *testing.T) {
	// "Ph.D." and "$5.99" never qualify as tier-1 matches at all (no
	// whitespace follows those internal dots), so they survive regardless
	// of where MinTokens happens to fall.
	text := "She holds a Ph.D. in physics and the stock is worth $5.99 more than yesterday, which surprised everyone in the office this morning."
	got := collectSegments(t, StringInput(text), DefaultSegmenterConfig())

	joined := ""
	for _, s := range got {
		joined += s.Text
	}
	if !strings.Contains(joined, "Ph.D.") {
		t.Errorf("expected 'Ph.D.' preserved across joined segments, got %q", joined)
	}
	if !strings.Contains(joined, "$5.99") {
		t.Errorf("expected '$5.99' preserved across joined segments, got %q", joined)
	}
}

func TestSegmenterStreamingIdleFlush(t *testing.T) {
	ch := make(chan string)
	cfg := SegmenterConfig{MinTokens: 1, MaxTokens: 50, Timeout: 30 * time.Millisecond}
	seg, err := NewSegmenter(cfg)
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	out := make(chan Segment, 16)
	token := &StreamToken{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		seg.Run(ctx, ChanInput(ch), out, token)
		close(done)
	}()

	ch <- "hello there"
	select {
	case s := <-out:
		if !strings.Contains(s.Text, "hello there") {
			t.Errorf("got unexpected flush text %q", s.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("expected idle-timeout flush, got nothing")
	}
	close(ch)
	<-done
}

func TestSegmenterForcesBreakAtMaxTokensOnWordBoundary(t *testing.T) {
	words := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		words = append(words, "word")
	}
	text := strings.Join(words, " ")

	got := collectSegments(t, StringInput(text), SegmenterConfig{MinTokens: 5, MaxTokens: 20})
	if len(got) < 2 {
		t.Fatalf("expected multiple forced segments, got %d", len(got))
	}

	texts := make([]string, len(got))
	for i, s := range got {
		texts[i] = s.Text
		if strings.HasSuffix(s.Text, "wor") || strings.HasSuffix(s.Text, "wo") {
			t.Errorf("segment %d ends mid-word: %q", i, s.Text)
		}
	}
	joined := strings.Join(texts, " ")
	if !strings.Contains(joined, "word") {
		t.Fatalf("expected forced segments to still contain original words, got %q", joined)
	}
}

func TestSegmenterCancellationStopsEmission(t *testing.T) {
	seg, err := NewSegmenter(SegmenterConfig{MinTokens: 1, MaxTokens: 5})
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	out := make(chan Segment)
	token := &StreamToken{}
	token.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		seg.Run(ctx, StringInput("one two three four five six seven eight"), out, token)
		close(done)
	}()

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected no segments after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not close output channel after cancellation")
	}
	<-done
}

func TestSegmenterRejectsInvalidBounds(t *testing.T) {
	_, err := NewSegmenter(SegmenterConfig{MinTokens: 20, MaxTokens: 5})
	if err == nil {
		t.Fatal("expected error for MaxTokens < MinTokens")
	}
	var cfgErr *ConfigError
	if !isConfigError(err, &cfgErr) {
		t.Errorf("expected *ConfigError, got %T: %v", err, err)
	}
}

func isConfigError(err error, target **ConfigError) bool {
	ce, ok := err.(*ConfigError)
	if ok {
		*target = ce
	}
	return ok
}
