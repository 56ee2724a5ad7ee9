package nanotts

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// tokenizer counts and decodes tokens using the cl100k_base BPE scheme, so
// that segment sizing is language-agnostic and stable across runs. It is
// used only for sizing decisions — segment boundaries always fall at
// character positions in the original text, never at token positions that
// don't round-trip to valid UTF-8 (see segmenter.go's emitWithTokenBoundary,
// which backs a forced cut off until its prefix decodes to valid UTF-8).
type tokenizer struct {
	enc *tiktoken.Tiktoken
}

var (
	sharedTokenizer     *tokenizer
	sharedTokenizerOnce sync.Once
	sharedTokenizerErr  error
)

// newTokenizer returns the process-wide cl100k_base tokenizer, building it
// once. The underlying BPE codec holds no mutable state once built, so the
// shared instance is safe for concurrent Encode/Decode calls across
// Segmenters and Pipelines.
func newTokenizer() (*tokenizer, error) {
	sharedTokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			sharedTokenizerErr = fmt.Errorf("nanotts: loading cl100k_base encoding: %w", err)
			return
		}
		sharedTokenizer = &tokenizer{enc: enc}
	})
	return sharedTokenizer, sharedTokenizerErr
}

func (t *tokenizer) count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tokenizer) encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tokenizer) decode(tokens []int) string {
	if len(tokens) == 0 {
		return ""
	}
	return t.enc.Decode(tokens)
}
