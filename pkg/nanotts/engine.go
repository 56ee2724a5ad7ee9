package nanotts

import "context"

// Engine is the pluggable speech backend contract. Implementations are
// opaque to the pipeline and may block on I/O; Synth may be invoked
// concurrently when a Pipeline is configured with more than one worker, so
// implementations must be internally safe for concurrent use.
//
// ctx carries the stream's cancellation: ResultIter.Cancel cancels it
// along with the StreamToken, giving an Engine the chance to abort an
// in-flight call cooperatively. Pipeline.Cancel sets only the StreamToken
// and leaves ctx live. The pipeline itself never forces the call
// to return early — any chunk an Engine returns after cancellation is
// simply discarded by the worker that called it.
type Engine interface {
	Synth(ctx context.Context, text string, target AudioSpec) (AudioChunk, error)
}

// EngineFunc adapts a plain synchronous function into an Engine, for tests
// and for the simplest user-supplied engines that don't need a struct.
// Ported from the original implementation's CallableEngine.
type EngineFunc struct {
	Fn         func(text string) ([]byte, error)
	OutputSpec AudioSpec
}

// Synth invokes Fn and wraps its bytes in an AudioChunk tagged with
// OutputSpec, ignoring target — callers that need format conversion rely
// on the pipeline's transcoding step.
func (e EngineFunc) Synth(_ context.Context, text string, _ AudioSpec) (AudioChunk, error) {
	data, err := e.Fn(text)
	if err != nil {
		return AudioChunk{}, err
	}
	return AudioChunk{Data: data, Spec: e.OutputSpec}, nil
}

// Transcoder converts an AudioChunk to a target AudioSpec. Implementations
// must return the chunk unchanged, without copying, when chunk.Spec ==
// target.
type Transcoder interface {
	Convert(ctx context.Context, chunk AudioChunk, target AudioSpec) (AudioChunk, error)
}

// IdentityTranscoder returns chunks whose spec already matches the target
// unchanged and fails otherwise. It is the pipeline's default when no
// Transcoder is configured, matching the common case of an engine that
// already synthesizes directly to the requested spec.
type IdentityTranscoder struct{}

func (IdentityTranscoder) Convert(_ context.Context, chunk AudioChunk, target AudioSpec) (AudioChunk, error) {
	if chunk.Spec == target {
		return chunk, nil
	}
	return AudioChunk{}, &UnsupportedFormatError{Source: chunk.Spec, Target: target}
}
