// Package piper adapts the Piper neural TTS binary to the nanotts.Engine
// interface, spawning one subprocess per segment.
package piper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

const (
	sampleRate  = 22050
	sampleWidth = 16
	channels    = 1

	defaultSpeed = 1.0
	defaultTimeout = 30 * time.Second
)

// Error wraps a Piper-specific failure with the stage it occurred at.
type Error struct {
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("piper %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("piper %s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Engine drives the piper binary with stdin set up before the process
// starts, the same stdin-race-avoidance pattern the subprocess manager
// this is grounded on uses for every invocation.
type Engine struct {
	binaryPath string
	modelPath  string
	configPath string
	speed      float64
	timeout    time.Duration
}

// New builds a piper Engine bound to modelPath, auto-locating the piper
// binary on PATH and the sibling ".onnx.json" config if present.
func New(modelPath string) (*Engine, error) {
	binaryPath, err := exec.LookPath("piper")
	if err != nil {
		return nil, &Error{Stage: "dependency", Message: "piper binary not found on PATH", Cause: err}
	}
	if modelPath == "" {
		return nil, &Error{Stage: "model", Message: "no model path configured"}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &Error{Stage: "model", Message: "model file not found: " + modelPath, Cause: err}
	}

	e := &Engine{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		speed:      defaultSpeed,
		timeout:    defaultTimeout,
	}
	configPath := strings.TrimSuffix(modelPath, ".onnx") + ".onnx.json"
	if _, err := os.Stat(configPath); err == nil {
		e.configPath = configPath
	}
	return e, nil
}

// OutputSpec reports the raw PCM format piper emits on --output-raw.
func (e *Engine) OutputSpec() nanotts.AudioSpec {
	return nanotts.AudioSpec{Codec: "pcm", SampleRate: sampleRate, Channels: channels, SampleWidth: sampleWidth}
}

// Synth runs text through piper and returns the raw PCM it writes to
// stdout. target is ignored here; the caller's Transcoder is responsible
// for converting the engine's native AudioSpec to whatever target was
// requested.
func (e *Engine) Synth(ctx context.Context, text string, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	if text == "" {
		return nanotts.AudioChunk{Spec: e.OutputSpec()}, nil
	}

	args := []string{"--model", e.modelPath, "--output-raw"}
	if e.configPath != "" {
		args = append(args, "--config", e.configPath)
	}
	if e.speed != 1.0 {
		args = append(args, "--length-scale", fmt.Sprintf("%.2f", 1.0/e.speed))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nanotts.AudioChunk{}, &Error{Stage: "process", Message: "failed to create stdout pipe", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return nanotts.AudioChunk{}, &Error{Stage: "process", Message: "failed to start piper", Cause: err}
	}

	data, readErr := io.ReadAll(stdout)
	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		return nanotts.AudioChunk{}, &Error{Stage: "process", Message: "synthesis timed out", Cause: ctx.Err()}
	}
	if readErr != nil {
		return nanotts.AudioChunk{}, &Error{Stage: "process", Message: "failed reading piper stdout", Cause: readErr}
	}
	if waitErr != nil {
		return nanotts.AudioChunk{}, &Error{Stage: "process", Message: "piper exited with error: " + stderr.String(), Cause: waitErr}
	}

	return nanotts.AudioChunk{Data: data, Spec: e.OutputSpec()}, nil
}

func findDefaultModel() string {
	dirs := []string{
		filepath.Join(os.Getenv("HOME"), ".local/share/piper-voices"),
		"/usr/share/piper-voices",
		"/usr/local/share/piper-voices",
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		var found string
		_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if strings.HasSuffix(path, ".onnx") {
				found = path
				return io.EOF
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func init() {
	nanotts.MustRegister("piper", func(kwargs map[string]any) (nanotts.Engine, error) {
		modelPath, _ := kwargs["model_path"].(string)
		if modelPath == "" {
			modelPath = findDefaultModel()
		}
		return New(modelPath)
	}, "local neural TTS via the piper subprocess binary")
}
