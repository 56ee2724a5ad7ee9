package nanotts

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// EngineFactory builds an Engine from arbitrary, engine-specific keyword
// arguments. Meaning of kwargs is entirely up to the registered engine.
type EngineFactory func(kwargs map[string]any) (Engine, error)

type registryEntry struct {
	build EngineFactory
	doc   string
}

// Registry is a process-wide, concurrency-safe mapping from model name to
// engine factory, mirroring the original implementation's ModelManager.
// Engine plugins register themselves at init() time; a Pipeline looks its
// model up when its first Stream call resolves the engine.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

var defaultRegistry = &Registry{entries: make(map[string]registryEntry)}

// DefaultRegistry returns the process-wide registry that engine plugin
// packages register themselves into via init().
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a named factory to the registry. Calling Register twice
// with the same name replaces the previous factory — the last
// registration wins, which matters only when two plugin packages claim
// the same name.
func (r *Registry) Register(name string, build EngineFactory, doc string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{build: build, doc: doc}
}

// MustRegister registers build under name in the default registry,
// logging and swallowing any panic raised during registration so that one
// broken plugin package never keeps the others from loading. The factory
// is not called here; its errors surface later, from Get. Engine packages
// call this from init().
func MustRegister(name string, build EngineFactory, doc string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("nanotts: plugin registration failed, skipping", "model", name, "panic", r)
		}
	}()
	defaultRegistry.Register(name, build, doc)
}

// Get builds an Engine for the named model, returning an error wrapping
// ErrUnknownModel when no factory is registered under name. Pipeline calls
// it on its first Stream and wraps any error in a *ConfigError.
func (r *Registry) Get(name string, kwargs map[string]any) (Engine, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return entry.build(kwargs)
}

// List returns every registered model name mapped to its human-readable
// description, for diagnostics and the demo CLI's --list-engines flag.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.entries))
	for name, entry := range r.entries {
		out[name] = entry.doc
	}
	return out
}
