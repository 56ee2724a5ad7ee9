package nanotts

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Default segmentation bounds, per spec.
const (
	defaultMinTokens = 10
	defaultMaxTokens = 50
	defaultTimeout   = 800 * time.Millisecond

	// softBreakRatio names the magic 0.8 constant the tiered algorithm
	// uses to decide when it's worth taking a soft (tier-2) break instead
	// of waiting for a tier-1 one. No documented rationale survives from
	// the source; it is preserved here as-is.
	softBreakRatio = 0.8
)

// SegmenterConfig bounds and tunes a Segmenter's cut decisions.
type SegmenterConfig struct {
	// MinTokens is the minimum token count a segment must reach before a
	// soft break may be taken. Zero uses defaultMinTokens.
	MinTokens int
	// MaxTokens is the hard ceiling forcing a break. Zero uses
	// defaultMaxTokens.
	MaxTokens int
	// Timeout bounds how long the Segmenter waits for the next fragment
	// of a channel Input before flushing. Zero uses defaultTimeout.
	Timeout time.Duration
	// PreHook, if set, transforms a segment's cleaned text immediately
	// before publication. It is never called with an empty string. A
	// non-nil error drops the segment before it is assigned an id, so the
	// dropped text leaves no gap in the ids the reorder consumer sees.
	PreHook func(string) (string, error)
}

// DefaultSegmenterConfig returns the spec's default bounds.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		MinTokens: defaultMinTokens,
		MaxTokens: defaultMaxTokens,
		Timeout:   defaultTimeout,
	}
}

func (c SegmenterConfig) withDefaults() SegmenterConfig {
	if c.MinTokens <= 0 {
		c.MinTokens = defaultMinTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Segmenter cuts a possibly-unbounded input text stream into Segments,
// publishing each on a channel the moment it's decided, in strictly
// ascending id order. A Segmenter is single-use: create a fresh one per
// Pipeline.Stream call.
type Segmenter struct {
	cfg    SegmenterConfig
	tok    *tokenizer
	buf    string
	nextID int
}

// NewSegmenter builds a Segmenter from cfg, loading the shared cl100k_base
// tokenizer. Zero-valued fields in cfg take spec defaults.
func NewSegmenter(cfg SegmenterConfig) (*Segmenter, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxTokens < cfg.MinTokens {
		return nil, &ConfigError{Err: errMaxBelowMin}
	}
	tok, err := newTokenizer()
	if err != nil {
		return nil, err
	}
	return &Segmenter{cfg: cfg, tok: tok}, nil
}

var errMaxBelowMin = errInvalidBounds{}

type errInvalidBounds struct{}

func (errInvalidBounds) Error() string { return "max_tokens must be >= min_tokens" }

// emitSink bundles the destination and cancellation surface every emit
// path needs: the output channel, the cooperative StreamToken checked
// before any send, and the context whose cancellation unblocks a send
// that's stuck behind a full channel or a cancelled stream.
type emitSink struct {
	ctx   context.Context
	token *StreamToken
	out   chan<- Segment
}

// Run consumes in and publishes Segments to out, closing out when done —
// on input exhaustion, on cancellation, or when a send is unblocked by
// ctx's cancellation because nothing is draining out anymore. Channel send
// failure (nothing downstream to observe) is not treated as an error; Run
// simply stops.
func (s *Segmenter) Run(ctx context.Context, in Input, out chan<- Segment, token *StreamToken) {
	defer close(out)
	sink := emitSink{ctx: ctx, token: token, out: out}

	switch in.kind {
	case inputKindString:
		if !s.feedFragment(in.str, sink) {
			return
		}
	case inputKindSlice:
		for _, frag := range in.slice {
			if token.Cancelled() {
				return
			}
			if !s.feedFragment(frag, sink) {
				return
			}
		}
	case inputKindChan:
		s.feedChan(in.ch, sink)
	}

	s.emit(sink)
}

// feedChan reads fragments from ch until it closes, flushing the pending
// buffer whenever timeout elapses with no new fragment. An empty buffer at
// timeout is a no-op: the wait simply repeats.
func (s *Segmenter) feedChan(ch <-chan string, sink emitSink) {
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	for {
		if sink.token.Cancelled() {
			return
		}
		select {
		case <-sink.ctx.Done():
			return

		case frag, ok := <-ch:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if !ok {
				return
			}
			if !s.feedFragment(frag, sink) {
				return
			}
			timer.Reset(s.cfg.Timeout)

		case <-timer.C:
			if strings.TrimSpace(s.buf) != "" {
				if !s.emit(sink) {
					return
				}
			}
			timer.Reset(s.cfg.Timeout)
		}
	}
}

// feedFragment normalizes and appends one fragment to the running buffer,
// then evaluates whether the buffer is ready to cut. It returns false when
// the caller should stop feeding (cancellation observed).
func (s *Segmenter) feedFragment(frag string, sink emitSink) bool {
	if frag == "" {
		return true
	}
	if sink.token.Cancelled() {
		return false
	}
	s.buf += normalizeText(frag)
	return s.checkAndSegment(sink)
}

// checkAndSegment implements the tiered separator search from the spec:
// force a cut at max_tokens, else prefer a tier-1 (strong) break once
// min_tokens is reached, else fall back to a tier-2 (soft) break once
// approaching max_tokens, else keep accumulating.
func (s *Segmenter) checkAndSegment(sink emitSink) bool {
	if strings.TrimSpace(s.buf) == "" {
		return true
	}

	count := s.tok.count(s.buf)

	if count >= s.cfg.MaxTokens {
		return s.emitWithTokenBoundary(sink)
	}

	if count >= s.cfg.MinTokens {
		ok, sent := s.trySegmentAtTier(tier1Matches, sink)
		if !ok {
			return false
		}
		if sent {
			return true
		}
	}

	softThreshold := int(float64(s.cfg.MaxTokens) * softBreakRatio)
	if count >= softThreshold {
		ok, sent := s.trySegmentAtTier(tier2Matches, sink)
		if !ok {
			return false
		}
		if sent {
			return true
		}
	}

	return true
}

// trySegmentAtTier looks for the earliest match from matches whose prefix
// reaches MinTokens, cuts there, and recurses on the remainder only if the
// remainder itself still clears MinTokens — avoiding pointless re-scans of
// trivial leftovers. The bool results are (shouldContinue, didCut).
func (s *Segmenter) trySegmentAtTier(matches func(string) []int, sink emitSink) (bool, bool) {
	breakPoint := 0
	for _, end := range matches(s.buf) {
		if s.tok.count(s.buf[:end]) >= s.cfg.MinTokens {
			breakPoint = end
			break
		}
	}
	if breakPoint == 0 {
		return true, false
	}

	segText := s.buf[:breakPoint]
	remaining := s.buf[breakPoint:]

	s.buf = segText
	if !s.emit(sink) {
		return false, true
	}
	s.buf = remaining

	if strings.TrimSpace(remaining) != "" && s.tok.count(remaining) >= s.cfg.MinTokens {
		if !s.checkAndSegment(sink) {
			return false, true
		}
	}
	return true, true
}

// emitWithTokenBoundary forces a cut when the buffer has reached
// MaxTokens, searching backwards for the largest prefix whose decoded text
// contains any tier-1 or tier-2 separator (the cut falls at the end of that
// prefix, not at the separator), falling back to a prefix ending in
// whitespace, and finally a hard token-count cut as a last resort. The cut
// is moved back a token at a time until the prefix decodes to valid UTF-8,
// so a multi-byte character is never split.
func (s *Segmenter) emitWithTokenBoundary(sink emitSink) bool {
	if strings.TrimSpace(s.buf) == "" {
		return true
	}

	tokens := s.tok.encode(s.buf)
	if len(tokens) <= s.cfg.MaxTokens {
		return s.emit(sink)
	}

	best := s.findTokenBreakPoint(tokens)
	for best > 1 && !utf8.ValidString(s.tok.decode(tokens[:best])) {
		best--
	}
	text := s.tok.decode(tokens[:best])
	remaining := tokens[best:]

	if strings.TrimSpace(text) != "" {
		s.buf = text
		if !s.emit(sink) {
			return false
		}
	}
	s.buf = s.tok.decode(remaining)
	return true
}

func (s *Segmenter) findTokenBreakPoint(tokens []int) int {
	maxSearch := s.cfg.MaxTokens
	if len(tokens) < maxSearch {
		maxSearch = len(tokens)
	}

	for i := maxSearch; i > s.cfg.MinTokens; i-- {
		partial := s.tok.decode(tokens[:i])
		if len(tier1Matches(partial)) > 0 || len(tier2Matches(partial)) > 0 {
			return i
		}
	}

	for i := s.cfg.MaxTokens; i > s.cfg.MinTokens; i-- {
		if i >= len(tokens) {
			continue
		}
		partial := s.tok.decode(tokens[:i])
		if strings.HasSuffix(partial, " ") || strings.HasSuffix(partial, "\n") || strings.HasSuffix(partial, "\t") {
			return i
		}
	}

	if s.cfg.MaxTokens < len(tokens) {
		return s.cfg.MaxTokens
	}
	return len(tokens)
}

// emit publishes the current buffer as a segment and clears it. Markdown
// cleaning and the configured PreHook run here, just before publication,
// per spec — never on an empty string. emit returns false once the
// StreamToken has been observed cancelled, or once ctx is done while
// blocked trying to send; Run treats either as a signal to stop.
func (s *Segmenter) emit(sink emitSink) bool {
	text := s.buf
	s.buf = ""
	if strings.TrimSpace(text) == "" {
		return true
	}

	cleaned := cleanMarkdown(text)
	if cleaned == "" {
		return true
	}

	if s.cfg.PreHook != nil {
		transformed, err := s.cfg.PreHook(cleaned)
		if err != nil {
			return true
		}
		cleaned = transformed
	}
	if cleaned == "" {
		return true
	}

	if sink.token.Cancelled() {
		return false
	}

	seg := Segment{ID: s.nextID, Text: cleaned}
	select {
	case sink.out <- seg:
		s.nextID++
		return true
	case <-sink.ctx.Done():
		return false
	}
}
