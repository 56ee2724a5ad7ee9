package nanotts

import (
	"context"
	"time"
)

// silenceEngine is the zero-configuration Engine bound whenever a
// Pipeline is constructed without WithEngine or WithModel. It produces
// digital silence sized to roughly match how long the text would take to
// speak, which is enough to exercise the full pipeline — segmentation,
// worker fan-out, reordering — without a real synthesis backend.
type silenceEngine struct {
	spec AudioSpec
}

// charsPerSecond is a rough English speech rate, used only to size the
// dummy engine's silence; it has no bearing on real synthesis timing.
const charsPerSecond = 15

func (e silenceEngine) Synth(ctx context.Context, text string, target AudioSpec) (AudioChunk, error) {
	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	default:
	}

	seconds := float64(len([]rune(text))) / charsPerSecond
	if seconds <= 0 {
		seconds = 0.1
	}
	duration := time.Duration(seconds * float64(time.Second))

	spec := target
	frames := int(duration.Seconds() * float64(spec.SampleRate))
	bytesPerFrame := spec.Channels * (spec.SampleWidth / 8)
	if bytesPerFrame <= 0 {
		bytesPerFrame = 2
	}
	data := make([]byte, frames*bytesPerFrame)

	return AudioChunk{Data: data, Spec: spec}, nil
}

func init() {
	MustRegister("dummy", func(kwargs map[string]any) (Engine, error) {
		return silenceEngine{spec: DefaultOutputSpec()}, nil
	}, "silence generator; exercises the pipeline without a real TTS backend")
}
