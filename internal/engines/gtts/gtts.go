// Package gtts adapts the gtts-cli command-line tool (a thin wrapper
// around Google's public Translate TTS endpoint) to the nanotts.Engine
// interface.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

const (
	defaultTimeout = 20 * time.Second
	// requestsPerSecond throttles calls to the free endpoint gtts-cli
	// wraps, which rate-limits aggressively and returns HTTP 429 well
	// before any per-process concurrency limit would matter.
	requestsPerSecond = 2
)

// Engine shells out to gtts-cli to fetch an MP3, one request per segment,
// throttled by a shared limiter so concurrent workers don't collectively
// exceed what the backing endpoint tolerates.
type Engine struct {
	binary   string
	language string
	tld      string
	tempDir  string
	limiter  *rate.Limiter
}

// New builds a gtts Engine. language and tld follow gtts-cli's own flags
// (e.g. "en" / "com", "en" / "co.uk" for a different accent).
func New(language, tld string) (*Engine, error) {
	binary, err := exec.LookPath("gtts-cli")
	if err != nil {
		return nil, fmt.Errorf("gtts-cli binary not found on PATH: %w", err)
	}
	if language == "" {
		language = "en"
	}
	if tld == "" {
		tld = "com"
	}
	tempDir := filepath.Join(os.TempDir(), "nanospeak-gtts")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating gtts temp dir: %w", err)
	}
	return &Engine{
		binary:   binary,
		language: language,
		tld:      tld,
		tempDir:  tempDir,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// OutputSpec reports the spec of the chunks Synth returns: MP3, tagged as
// 24kHz mono. gtts-cli itself returns MP3; decoding to PCM is left to the
// Pipeline's Transcoder, which must be able to convert MP3 (the default
// IdentityTranscoder cannot).
func (e *Engine) OutputSpec() nanotts.AudioSpec {
	return nanotts.AudioSpec{Codec: "mp3", SampleRate: 24000, Channels: 1, SampleWidth: 16}
}

// Synth fetches one utterance's MP3 bytes from gtts-cli, writing to a
// scratch file because gtts-cli does not stream to stdout.
func (e *Engine) Synth(ctx context.Context, text string, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	if text == "" {
		return nanotts.AudioChunk{Spec: e.OutputSpec()}, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nanotts.AudioChunk{}, fmt.Errorf("gtts: rate limiter: %w", err)
	}

	outPath := filepath.Join(e.tempDir, uuid.NewString()+".mp3")
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := []string{
		"--lang", e.language,
		"--tld", e.tld,
		"--output", outPath,
		text,
	}
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Debug("gtts: gtts-cli invocation failed", "error", err, "stderr", stderr.String())
		return nanotts.AudioChunk{}, fmt.Errorf("gtts-cli failed: %w: %s", err, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nanotts.AudioChunk{}, fmt.Errorf("reading gtts-cli output: %w", err)
	}
	return nanotts.AudioChunk{Data: data, Spec: e.OutputSpec()}, nil
}

func init() {
	nanotts.MustRegister("gtts", func(kwargs map[string]any) (nanotts.Engine, error) {
		language, _ := kwargs["language"].(string)
		tld, _ := kwargs["tld"].(string)
		return New(language, tld)
	}, "Google Translate TTS via the gtts-cli subprocess, rate-limited at "+strconv.Itoa(requestsPerSecond)+" req/s")
}
