// Package transcode provides an ffmpeg-backed nanotts.Transcoder for
// converting between the audio formats the bundled engines and
// nanotts.Pipeline's output spec disagree on (piper's raw PCM, gtts's
// MP3, and whatever sample rate or channel count the caller asked for).
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

const defaultTimeout = 15 * time.Second

// FFmpeg pipes chunk.Data through the ffmpeg binary to reach target's
// format. One invocation runs at a time per FFmpeg value; Pipeline's
// worker pool is expected to use one FFmpeg per worker, or to accept the
// serialization a shared one implies.
type FFmpeg struct {
	mu      sync.Mutex
	timeout time.Duration
}

// New builds an FFmpeg transcoder using the process's default timeout.
func New() *FFmpeg {
	return &FFmpeg{timeout: defaultTimeout}
}

// Convert returns chunk unchanged when its spec already matches target,
// otherwise pipes it through ffmpeg -f <in> -i pipe:0 -f <out> pipe:1.
func (f *FFmpeg) Convert(ctx context.Context, chunk nanotts.AudioChunk, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	if chunk.Spec == target {
		return chunk, nil
	}

	inFormat, ok := ffmpegFormat(chunk.Spec)
	if !ok {
		return nanotts.AudioChunk{}, &nanotts.UnsupportedFormatError{Source: chunk.Spec, Target: target}
	}
	outFormat, ok := ffmpegFormat(target)
	if !ok {
		return nanotts.AudioChunk{}, &nanotts.UnsupportedFormatError{Source: chunk.Spec, Target: target}
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nanotts.AudioChunk{}, &nanotts.UnsupportedFormatError{Source: chunk.Spec, Target: target}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := []string{
		"-f", inFormat,
		"-ar", strconv.Itoa(chunk.Spec.SampleRate),
		"-ac", strconv.Itoa(chunk.Spec.Channels),
		"-i", "pipe:0",
		"-f", outFormat,
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = bytes.NewReader(chunk.Data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nanotts.AudioChunk{}, fmt.Errorf("transcode: ffmpeg timed out after %v", f.timeout)
		}
		return nanotts.AudioChunk{}, fmt.Errorf("transcode: ffmpeg failed: %w: %s", err, stderr.String())
	}

	return nanotts.AudioChunk{Data: stdout.Bytes(), Spec: target}, nil
}

// ffmpegFormat maps an AudioSpec to the -f value ffmpeg expects, mirroring
// the original implementation's format table.
func ffmpegFormat(spec nanotts.AudioSpec) (string, bool) {
	switch spec.Codec {
	case "pcm":
		switch spec.SampleWidth {
		case 16:
			return "s16le", true
		case 24:
			return "s24le", true
		case 32:
			return "s32le", true
		default:
			return "", false
		}
	case "mp3", "opus", "wav":
		return spec.Codec, true
	default:
		return "", false
	}
}
