package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	maxBatch     = 64
	writeTimeout = 5 * time.Second
)

// Worker consumes audit events from a channel and hands them to a sink in
// batches. It returns once the channel is closed and drained.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run() {
	for event := range w.inbox {
		batch := []Event{event}
	fill:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-w.inbox:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		w.flush(batch)
	}
}

func (w *Worker) flush(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.sink.Write(ctx, batch); err != nil {
		droppedEvents.Add(float64(len(batch)))
		w.logger.ErrorContext(ctx, "failed to write audit events",
			"error", err,
			"count", len(batch),
		)
	}
}
