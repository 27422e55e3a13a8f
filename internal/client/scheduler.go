package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task produces the terminal outcome of one batch.
// Tasks report failure through Outcome.Err, never by panicking.
type Task func(ctx context.Context) Outcome

// OnSettled is called once per task as soon as it settles.
// It is invoked from the task's goroutine and must be safe for concurrent use.
type OnSettled func(index int, outcome Outcome)

// Scheduler runs tasks in consecutive groups of at most MaxConcurrent.
// A group is launched all at once and fully joined before the next group
// starts, so at most MaxConcurrent tasks are ever in flight. A failing task
// does not stop its siblings.
type Scheduler struct {
	MaxConcurrent int
	OnSettled     OnSettled
}

// Run executes tasks and returns one outcome per task, in task order
func (s Scheduler) Run(ctx context.Context, tasks []Task) []Outcome {
	size := s.MaxConcurrent
	if size < 1 {
		size = 1
	}

	outcomes := make([]Outcome, len(tasks))
	for start := 0; start < len(tasks); start += size {
		end := min(start+size, len(tasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				outcomes[i] = runTask(ctx, i, tasks[i])
				if s.OnSettled != nil {
					s.OnSettled(i, outcomes[i])
				}
				return nil
			})
		}
		// Tasks never return errors; Wait is only the group join
		_ = g.Wait()
	}
	return outcomes
}

// RunGrouped runs tasks with at most maxConcurrent in flight, group by group
func RunGrouped(ctx context.Context, tasks []Task, maxConcurrent int) []Outcome {
	return Scheduler{MaxConcurrent: maxConcurrent}.Run(ctx, tasks)
}

func runTask(ctx context.Context, index int, task Task) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{BatchIndex: index, Err: fmt.Errorf("batch %d: panic: %v", index, r)}
		}
	}()
	return task(ctx)
}
