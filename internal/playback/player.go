// Package playback provides blocking, sequential speaker playback of the
// Pipeline's raw PCM output via oto, for the demo CLI's --play flag.
package playback

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

// Player wraps a single oto.Context sized for one AudioSpec. Build a new
// Player whenever the spec changes — oto does not support reconfiguring a
// context's sample rate or channel count after creation.
type Player struct {
	ctx  *oto.Context
	spec nanotts.AudioSpec
}

// New creates a Player for spec, blocking until oto's context is ready.
func New(spec nanotts.AudioSpec) (*Player, error) {
	if spec.Codec != "pcm" || spec.SampleWidth != 16 {
		return nil, fmt.Errorf("playback: only 16-bit PCM is supported, got %s/%d", spec.Codec, spec.SampleWidth)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   spec.SampleRate,
		ChannelCount: spec.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("playback: creating oto context: %w", err)
	}
	<-ready

	return &Player{ctx: ctx, spec: spec}, nil
}

// Play blocks until chunk has finished playing. Chunks are played one at
// a time, matching Pipeline's in-order delivery — there is no mixing or
// queuing beyond what the caller does by calling Play in a loop.
func (p *Player) Play(chunk nanotts.AudioChunk) error {
	if len(chunk.Data) == 0 {
		return nil
	}
	if chunk.Spec != p.spec {
		return fmt.Errorf("playback: chunk spec %+v does not match player spec %+v", chunk.Spec, p.spec)
	}

	player := p.ctx.NewPlayer(bytes.NewReader(chunk.Data))
	defer player.Close()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
