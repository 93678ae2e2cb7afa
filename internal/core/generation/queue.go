package generation

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Queue runs generation jobs off a bounded in-memory channel. Jobs for
// different uploads may run concurrently; status transitions stay safe
// because SetJobStatus is idempotent and monotonic.
type Queue struct {
	gen  *Generator
	jobs chan GenerateRequest
	grp  *errgroup.Group
}

func NewQueue(gen *Generator, buffer int) *Queue {
	if buffer <= 0 {
		buffer = 64
	}
	return &Queue{gen: gen, jobs: make(chan GenerateRequest, buffer)}
}

// Start launches numWorkers goroutines reading from the jobs channel.
func (q *Queue) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	q.grp = g

	for w := 1; w <= numWorkers; w++ {
		w := w
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					log.Printf("[queue] worker %d shutting down", w)
					return nil
				case req := <-q.jobs:
					log.Printf("[queue] worker %d processing upload %s", w, req.UploadID)
					if _, err := q.gen.Run(gctx, req); err != nil {
						// The job row already carries the error; workers keep going.
						log.Printf("[queue] upload %s failed: %v", req.UploadID, err)
					}
				}
			}
		})
	}
}

// Enqueue schedules a generation request. Blocks when the queue is full.
func (q *Queue) Enqueue(req GenerateRequest) {
	q.jobs <- req
}

// Wait blocks until all workers have exited.
func (q *Queue) Wait() error {
	if q.grp == nil {
		return nil
	}
	return q.grp.Wait()
}
