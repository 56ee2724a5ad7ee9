// Package dummy provides a configurable test-double Engine, registered
// under the "mock" model name: unlike the library's built-in zero-value
// "dummy" engine, this one can be told to add latency or fail on demand,
// for exercising the pipeline's timeout and skip-on-failure paths.
package dummy

import (
	"context"
	"sync"
	"time"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

const wordsPerMinute = 150

// Engine generates silence sized to roughly match a text's speaking time,
// with optional injected delay and injected failure for test control.
type Engine struct {
	mu sync.Mutex

	delay        time.Duration
	shouldFail   bool
	failureError error
	callCount    int
}

// New builds an Engine with no injected delay or failure.
func New() *Engine {
	return &Engine{}
}

// SetDelay sets a fixed delay added before every successful Synth call
// returns; a call failing through SetFailure returns without the delay.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// SetFailure makes every subsequent Synth call return err until
// ClearFailure is called.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shouldFail = true
	e.failureError = err
}

// ClearFailure undoes SetFailure.
func (e *Engine) ClearFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shouldFail = false
	e.failureError = nil
}

// CallCount reports how many times Synth has been invoked.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount
}

func (e *Engine) Synth(ctx context.Context, text string, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	e.mu.Lock()
	e.callCount++
	delay := e.delay
	shouldFail := e.shouldFail
	failureError := e.failureError
	e.mu.Unlock()

	if shouldFail {
		return nanotts.AudioChunk{}, failureError
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nanotts.AudioChunk{}, ctx.Err()
		}
	}

	duration := estimateDuration(text)
	frames := int(duration.Seconds() * float64(target.SampleRate))
	bytesPerFrame := target.Channels * (target.SampleWidth / 8)
	if bytesPerFrame <= 0 {
		bytesPerFrame = 2
	}
	return nanotts.AudioChunk{Data: make([]byte, frames*bytesPerFrame), Spec: target}, nil
}

func estimateDuration(text string) time.Duration {
	words := len(text) / 5
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / wordsPerMinute
	return time.Duration(seconds * float64(time.Second))
}

func init() {
	nanotts.MustRegister("mock", func(kwargs map[string]any) (nanotts.Engine, error) {
		return New(), nil
	}, "configurable test double supporting injected delay and failure")
}
