package nanotts

import (
	"context"

	"github.com/charmbracelet/log"
)

// synthesisWorker consumes Segments, drives the Engine and Transcoder, and
// publishes synthResults in arrival order — which need not match segment
// id order once more than one worker is running concurrently.
type synthesisWorker struct {
	id         int
	engine     Engine
	transcoder Transcoder
	outputSpec AudioSpec
}

// run drains in until it closes or token fires, sending exactly one
// synthResult per segment it receives: a real one on success, a skipped
// sentinel on failure. This acknowledges every segment handed to a
// worker, so the reorder consumer never stalls on a gap (spec.md §4.3's
// recommended resolution (a) to the reorder/failure interaction).
func (w *synthesisWorker) run(ctx context.Context, in <-chan Segment, out chan<- synthResult, token *StreamToken) {
	for {
		select {
		case <-ctx.Done():
			return
		case seg, ok := <-in:
			if !ok {
				return
			}
			if token.Cancelled() {
				return
			}
			w.synthesizeAndSend(ctx, seg, out, token)
		}
	}
}

func (w *synthesisWorker) synthesizeAndSend(ctx context.Context, seg Segment, out chan<- synthResult, token *StreamToken) {
	result := synthResult{id: seg.ID, text: seg.Text}

	raw, err := w.engine.Synth(ctx, seg.Text, w.outputSpec)
	if err != nil {
		log.Debug("nanotts: synthesis failed, skipping segment", "worker", w.id, "segment", seg.ID, "error", err)
		result.skipped = true
	} else {
		final, err := w.transcoder.Convert(ctx, raw, w.outputSpec)
		if err != nil {
			log.Debug("nanotts: transcode failed, skipping segment", "worker", w.id, "segment", seg.ID, "error", err)
			result.skipped = true
		} else {
			result.chunk = final
		}
	}

	if token.Cancelled() {
		return
	}
	select {
	case out <- result:
	case <-ctx.Done():
	}
}
