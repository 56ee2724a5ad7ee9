package nanotts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// channelCapacity bounds the segment and result channels, absorbing
// burstiness between the segmenter and workers without unbounded memory.
const channelCapacity = 64

// Option configures a Pipeline at construction time.
type Option func(*Pipeline) error

// WithEngine binds an already-built Engine. Mutually exclusive with
// WithModel.
func WithEngine(e Engine) Option {
	return func(p *Pipeline) error {
		p.engine = e
		p.engineSet = true
		return nil
	}
}

// WithModel selects an Engine by name from the Pipeline's Registry,
// passing kwargs to its factory verbatim. Mutually exclusive with
// WithEngine.
func WithModel(name string, kwargs map[string]any) Option {
	return func(p *Pipeline) error {
		p.model = name
		p.engineKwargs = kwargs
		p.modelSet = true
		return nil
	}
}

// WithOutputSpec sets the target AudioSpec for emitted chunks. Default is
// 16kHz mono 16-bit PCM.
func WithOutputSpec(spec AudioSpec) Option {
	return func(p *Pipeline) error {
		p.outputSpec = spec
		return nil
	}
}

// WithTimeout sets the Segmenter's idle-flush deadline. Default 800ms.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		p.segCfg.Timeout = d
		return nil
	}
}

// WithTokenBounds sets the Segmenter's min/max token bounds. Defaults are
// 10 and 50.
func WithTokenBounds(minTokens, maxTokens int) Option {
	return func(p *Pipeline) error {
		if maxTokens < minTokens {
			return &ConfigError{Err: errInvalidBounds{}}
		}
		p.segCfg.MinTokens = minTokens
		p.segCfg.MaxTokens = maxTokens
		return nil
	}
}

// WithPreHook sets a per-segment text transform applied just before
// publication.
func WithPreHook(fn func(string) (string, error)) Option {
	return func(p *Pipeline) error {
		p.segCfg.PreHook = fn
		return nil
	}
}

// WithWorkerCount sets the number of concurrent synthesis workers.
// Default 1.
func WithWorkerCount(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return &ConfigError{Err: fmt.Errorf("worker count must be >= 1, got %d", n)}
		}
		p.workerCount = n
		return nil
	}
}

// WithTranscoder overrides the default IdentityTranscoder.
func WithTranscoder(t Transcoder) Option {
	return func(p *Pipeline) error {
		p.transcoder = t
		return nil
	}
}

// WithRegistry overrides the process-wide DefaultRegistry, mainly useful
// in tests that want an isolated set of model factories.
func WithRegistry(r *Registry) Option {
	return func(p *Pipeline) error {
		p.registry = r
		return nil
	}
}

// WithDebug toggles Debug-level logging for the shared logger.
func WithDebug(enabled bool) Option {
	return func(p *Pipeline) error {
		p.debug = enabled
		return nil
	}
}

// Pipeline orchestrates the segmenter, synthesis workers, and reorder
// consumer described in spec.md §4.4. A Pipeline may be reused across
// multiple Stream calls; the engine it lazily builds is shared across all
// of them.
type Pipeline struct {
	mu sync.Mutex

	engine       Engine
	engineSet    bool
	model        string
	modelSet     bool
	engineKwargs map[string]any
	registry     *Registry

	outputSpec  AudioSpec
	segCfg      SegmenterConfig
	workerCount int
	transcoder  Transcoder
	debug       bool

	token *StreamToken
}

// NewPipeline builds a Pipeline from opts. Conflicting configuration
// (WithEngine and WithModel both supplied) is rejected immediately, per
// spec — it does not wait for the first Stream call.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		outputSpec:  DefaultOutputSpec(),
		segCfg:      DefaultSegmenterConfig(),
		workerCount: 1,
		transcoder:  IdentityTranscoder{},
		registry:    DefaultRegistry(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.engineSet && p.modelSet {
		return nil, &ConfigError{Err: ErrConflictingEngineSource}
	}
	setDebugLogging(p.debug)
	return p, nil
}

// OutputSpec reports the AudioSpec that Stream's emitted chunks conform to.
func (p *Pipeline) OutputSpec() AudioSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outputSpec
}

// Cancel sets the current stream's StreamToken, if one is active. Safe to
// call from any goroutine, any number of times; it does not itself cancel
// in-flight engine I/O, it only suppresses further emission.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	t := p.token
	p.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

// Stream converts input into a lazy, ordered sequence of (AudioChunk,
// text) pairs. input may be a string, a []string, a <-chan string, or an
// Input built with StringInput/SliceInput/ChanInput. Each call allocates a
// fresh StreamToken and a fresh Segmenter; the Engine, once resolved, is
// reused across calls.
func (p *Pipeline) Stream(input any) (*ResultIter, error) {
	in, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	engine, err := p.resolveEngine()
	if err != nil {
		return nil, err
	}

	token := &StreamToken{}
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()

	segmenter, err := NewSegmenter(p.segCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	segCh := make(chan Segment, channelCapacity)
	resultCh := make(chan synthResult, channelCapacity)
	pairs := make(chan pair, channelCapacity)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		segmenter.Run(gctx, in, segCh, token)
		return nil
	})
	g.Go(func() error {
		p.runWorkers(gctx, engine, segCh, resultCh, token)
		return nil
	})

	go func() {
		defer close(pairs)
		runReorderConsumer(ctx, resultCh, pairs, token)
	}()

	go func() {
		if err := g.Wait(); err != nil {
			log.Debug("nanotts: pipeline task group exited with error", "error", err)
		}
	}()

	return &ResultIter{pairs: pairs, token: token, cancel: cancel}, nil
}

// resolveEngine builds the bound engine at most once per Pipeline, per the
// data model's "Engine is created at most once per Pipeline" invariant.
func (p *Pipeline) resolveEngine() (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine != nil {
		return p.engine, nil
	}

	model := p.model
	if !p.engineSet && !p.modelSet {
		model = "dummy"
	}

	e, err := p.registry.Get(model, p.engineKwargs)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	p.engine = e
	return e, nil
}

// runWorkers fans a fixed-size pool of synthesis workers out over segCh
// and closes resultCh once every worker has drained its input and
// returned.
func (p *Pipeline) runWorkers(ctx context.Context, engine Engine, segCh <-chan Segment, resultCh chan<- synthResult, token *StreamToken) {
	defer close(resultCh)

	n := p.workerCount
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		w := &synthesisWorker{
			id:         i,
			engine:     engine,
			transcoder: p.transcoder,
			outputSpec: p.outputSpec,
		}
		go func() {
			defer wg.Done()
			w.run(ctx, segCh, resultCh, token)
		}()
	}
	wg.Wait()
}

// runReorderConsumer drains resultCh, restoring ascending-id order, and
// forwards deliverable pairs to out until resultCh closes or cancellation
// is observed.
func runReorderConsumer(ctx context.Context, resultCh <-chan synthResult, out chan<- pair, token *StreamToken) {
	consumer := newReorderConsumer()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-resultCh:
			if !ok {
				return
			}
			if token.Cancelled() {
				return
			}
			for _, pr := range consumer.accept(r) {
				if token.Cancelled() {
					return
				}
				select {
				case out <- pr:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// ResultIter is the lazy, finite, non-restartable output of Stream. Pull
// results with Next until it reports false.
type ResultIter struct {
	pairs  <-chan pair
	token  *StreamToken
	cancel context.CancelFunc
}

// Next blocks until the next (AudioChunk, text) pair is ready, the stream
// is exhausted, or cancellation is observed. ok is false in the latter two
// cases.
func (it *ResultIter) Next() (chunk AudioChunk, text string, ok bool) {
	if it.token.Cancelled() {
		return AudioChunk{}, "", false
	}
	p, open := <-it.pairs
	if !open {
		return AudioChunk{}, "", false
	}
	return p.chunk, p.text, true
}

// Cancel stops this iterator's stream: sets its StreamToken and releases
// the internal context so blocked tasks unwind promptly. Idempotent.
func (it *ResultIter) Cancel() {
	it.token.Cancel()
	it.cancel()
}
