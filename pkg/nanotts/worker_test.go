package nanotts

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct {
	fn func(ctx context.Context, text string, target AudioSpec) (AudioChunk, error)
}

func (f fakeEngine) Synth(ctx context.Context, text string, target AudioSpec) (AudioChunk, error) {
	return f.fn(ctx, text, target)
}

func TestSynthesisWorkerSendsResultOnSuccess(t *testing.T) {
	w := &synthesisWorker{
		engine: fakeEngine{fn: func(_ context.Context, text string, target AudioSpec) (AudioChunk, error) {
			return AudioChunk{Data: []byte(text), Spec: target}, nil
		}},
		transcoder: IdentityTranscoder{},
		outputSpec: DefaultOutputSpec(),
	}

	in := make(chan Segment, 1)
	out := make(chan synthResult, 1)
	token := &StreamToken{}
	in <- Segment{ID: 7, Text: "hello"}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.run(ctx, in, out, token)

	select {
	case r := <-out:
		if r.id != 7 || r.skipped || string(r.chunk.Data) != "hello" {
			t.Fatalf("unexpected result: %+v", r)
		}
	default:
		t.Fatal("expected one result on out")
	}
}

func TestSynthesisWorkerSkipsOnEngineFailure(t *testing.T) {
	w := &synthesisWorker{
		engine: fakeEngine{fn: func(context.Context, string, AudioSpec) (AudioChunk, error) {
			return AudioChunk{}, errors.New("boom")
		}},
		transcoder: IdentityTranscoder{},
		outputSpec: DefaultOutputSpec(),
	}

	in := make(chan Segment, 1)
	out := make(chan synthResult, 1)
	token := &StreamToken{}
	in <- Segment{ID: 3, Text: "hello"}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.run(ctx, in, out, token)

	select {
	case r := <-out:
		if r.id != 3 || !r.skipped {
			t.Fatalf("expected skipped result for id 3, got %+v", r)
		}
	default:
		t.Fatal("expected a skipped result acknowledging the segment")
	}
}

func TestSynthesisWorkerStopsOnCancellation(t *testing.T) {
	w := &synthesisWorker{
		engine: fakeEngine{fn: func(context.Context, string, AudioSpec) (AudioChunk, error) {
			t.Fatal("engine should not be invoked once cancelled")
			return AudioChunk{}, nil
		}},
		transcoder: IdentityTranscoder{},
		outputSpec: DefaultOutputSpec(),
	}

	in := make(chan Segment, 1)
	out := make(chan synthResult, 1)
	token := &StreamToken{}
	token.Cancel()
	in <- Segment{ID: 0, Text: "hello"}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.run(ctx, in, out, token)

	select {
	case r := <-out:
		t.Fatalf("expected no result after cancellation, got %+v", r)
	default:
	}
}
