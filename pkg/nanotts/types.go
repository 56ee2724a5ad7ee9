// Package nanotts implements a streaming text-to-speech pipeline: an
// incremental text segmenter, a pool of synthesis workers driving a
// pluggable speech engine, and a reorder consumer that restores source
// order before handing audio back to the caller.
package nanotts

import "sync/atomic"

// Segment is a prosodically-reasonable unit of input text chosen by the
// Segmenter for independent synthesis. IDs are assigned in strictly
// ascending publication order starting at zero.
type Segment struct {
	ID   int
	Text string
}

// AudioSpec describes the format of an AudioChunk's bytes. It is a value
// type: two specs describing the same format compare equal with ==.
type AudioSpec struct {
	Codec      string
	SampleRate int
	Channels   int
	// SampleWidth is the bit depth, in bits. Required when Codec == "pcm".
	SampleWidth int
}

// DefaultOutputSpec is 16kHz mono 16-bit PCM, the pipeline's default
// target format when none is supplied.
func DefaultOutputSpec() AudioSpec {
	return AudioSpec{Codec: "pcm", SampleRate: 16000, Channels: 1, SampleWidth: 16}
}

// AudioChunk is an opaque buffer of synthesized audio described by Spec.
type AudioChunk struct {
	Data []byte
	Spec AudioSpec
}

// synthResult travels from a synthesis worker to the reorder consumer.
// skipped is set when synthesis or transcoding failed for this segment;
// the reorder consumer advances past it without yielding a pair.
type synthResult struct {
	id      int
	chunk   AudioChunk
	text    string
	skipped bool
}

// StreamToken is a monotonic cancellation flag scoped to a single
// Pipeline.Stream invocation. Setting it is cheap, observable from
// synchronous code, and never aborts an in-flight engine call — engines
// that want prompt abort must watch the context passed to Synth.
type StreamToken struct {
	cancelled atomic.Bool
}

// Cancel sets the token. Safe to call from any goroutine, any number of
// times; only the first call has an effect.
func (t *StreamToken) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *StreamToken) Cancelled() bool {
	return t.cancelled.Load()
}
