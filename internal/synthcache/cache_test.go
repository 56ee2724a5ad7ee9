package synthcache

import (
	"context"
	"testing"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

type countingEngine struct {
	calls int
}

func (e *countingEngine) Synth(_ context.Context, text string, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	e.calls++
	return nanotts.AudioChunk{Data: []byte(text), Spec: target}, nil
}

func TestCachedEngineServesRepeatRequestFromCache(t *testing.T) {
	inner := &countingEngine{}
	cached := Wrap("test", inner, New(DefaultCapacity))
	spec := nanotts.DefaultOutputSpec()

	if _, err := cached.Synth(context.Background(), "hello", spec); err != nil {
		t.Fatalf("Synth: %v", err)
	}
	if _, err := cached.Synth(context.Background(), "hello", spec); err != nil {
		t.Fatalf("Synth: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner engine called once, got %d", inner.calls)
	}
}

func TestCacheEvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	c := New(10)
	c.Put("a", nanotts.AudioChunk{Data: []byte("01234")})
	c.Put("b", nanotts.AudioChunk{Data: []byte("56789")})
	// Touch "a" so "b" becomes the least-recently-used entry.
	c.Get("a")
	c.Put("c", nanotts.AudioChunk{Data: []byte("abcde")})

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected 'a' to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected 'c' to be present")
	}
}

func TestEngineKeyDistinguishesEngineAndText(t *testing.T) {
	spec := nanotts.DefaultOutputSpec()
	a := EngineKey("piper", "hello", spec)
	b := EngineKey("gtts", "hello", spec)
	c := EngineKey("piper", "goodbye", spec)
	if a == b || a == c {
		t.Error("expected distinct keys for distinct engine/text combinations")
	}
}
