package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/backmassage/texmaster/internal/convert"
)

// Status is the terminal state of one task.
type Status int

const (
	StatusSkipped   Status = iota // Never started (batch cancelled) or interrupted.
	StatusConverted               // fn returned nil.
	StatusFailed                  // fn returned an error.
)

func (s Status) String() string {
	switch s {
	case StatusConverted:
		return "converted"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// TaskFunc converts one file. It blocks until the conversion finishes.
type TaskFunc func(ctx context.Context, path string) (convert.Result, error)

// TaskResult is the outcome of one task.
type TaskResult struct {
	Index    int // Position in the discovery order.
	Source   string
	Result   convert.Result
	Status   Status
	Err      error
	Duration time.Duration
}

// Dispatch runs fn over paths with at most workers concurrent calls and
// returns one result per path in input order. Per-task errors never stop
// the batch. obs (may be nil) receives OnTaskDone in completion order from
// the calling goroutine only.
//
// When ctx is cancelled no new task is started; tasks never started, and
// tasks whose fn failed because of the cancellation, are StatusSkipped.
func Dispatch(ctx context.Context, paths []string, workers int, fn TaskFunc, obs Observer) []TaskResult {
	results := make([]TaskResult, len(paths))
	for i, p := range paths {
		results[i] = TaskResult{Index: i, Source: p, Status: StatusSkipped}
	}
	if len(paths) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	done := make(chan int, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				started := time.Now()
				res, err := fn(ctx, paths[i])
				r := &results[i]
				r.Result = res
				r.Err = err
				r.Duration = time.Since(started)
				switch {
				case err == nil:
					r.Status = StatusConverted
				case ctx.Err() != nil:
					r.Status = StatusSkipped
				default:
					r.Status = StatusFailed
				}
				done <- i
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(done)
		}()
		for i := range paths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	finished := 0
	for i := range done {
		finished++
		if obs != nil {
			obs.OnTaskDone(finished, len(paths), results[i])
		}
	}
	return results
}
