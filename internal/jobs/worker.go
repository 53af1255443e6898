// Package jobs runs the background report-generation pipeline: a polling
// worker claims pending report jobs and drives them through synthesis,
// rendering, and artifact storage.
package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor handles one poll's worth of claimed jobs.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls the job queue on a fixed interval until stopped. Stop blocks
// until the in-flight poll finishes, so shutdown never abandons a claimed job
// mid-pipeline.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a Worker around a processor.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. Jobs left pending by an earlier process are picked up on the first
// poll, which runs immediately rather than waiting out the first interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("report worker started, polling every %v", w.pollInterval)

	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("report worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("report worker stopped: stop requested")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("report worker poll failed: %v", err)
	}
}

// Stop signals the worker and waits for the loop to exit.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("report worker shut down")
}
