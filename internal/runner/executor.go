// Package runner executes probe tasks and writes their results.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jandubois/clinicprobe/internal/probe"
)

// Task is a single probe invocation.
type Task struct {
	Name string
	Run  func(ctx context.Context) *probe.Result
}

// ResultWriter persists probe results.
type ResultWriter interface {
	WriteResult(ctx context.Context, name string, result *probe.Result, executedAt time.Time, durationMs int) error
}

// Executor runs tasks, bounded by MaxConcurrent.
type Executor struct {
	maxConcurrent int
	log           *slog.Logger

	mu           sync.Mutex
	resultWriter ResultWriter
}

// NewExecutor creates a new Executor. maxConcurrent below 1 means 1.
func NewExecutor(maxConcurrent int, log *slog.Logger) *Executor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Executor{
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// SetResultWriter sets the result writer.
func (e *Executor) SetResultWriter(w ResultWriter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resultWriter = w
}

// Execute runs one task and writes its result. The returned error only
// reports a failure to write the result; probe failures live in the result.
func (e *Executor) Execute(ctx context.Context, task Task) (*probe.Result, error) {
	executedAt := time.Now()
	result := e.runTask(ctx, task)
	duration := time.Since(executedAt)

	e.log.Info("probe executed",
		"name", task.Name,
		"status", result.Status,
		"duration_ms", duration.Milliseconds(),
		"message", result.Message,
	)

	e.mu.Lock()
	writer := e.resultWriter
	e.mu.Unlock()

	if writer != nil {
		if err := writer.WriteResult(ctx, task.Name, result, executedAt, int(duration.Milliseconds())); err != nil {
			e.log.Error("failed to write result", "probe", task.Name, "error", err)
			return result, err
		}
	}
	return result, nil
}

// ExecuteAll runs tasks concurrently and returns their results in task order.
func (e *Executor) ExecuteAll(ctx context.Context, tasks []Task) ([]*probe.Result, error) {
	results := make([]*probe.Result, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)
	for i, task := range tasks {
		g.Go(func() error {
			result, err := e.Execute(ctx, task)
			results[i] = result
			return err
		})
	}
	return results, g.Wait()
}

func (e *Executor) runTask(ctx context.Context, task Task) (result *probe.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("probe panicked", "name", task.Name, "panic", r)
			result = &probe.Result{
				Status:  probe.StatusUnknown,
				Message: fmt.Sprintf("probe panicked: %v", r),
			}
		}
	}()

	result = task.Run(ctx)
	if result == nil {
		result = &probe.Result{
			Status:  probe.StatusUnknown,
			Message: "probe returned no result",
		}
	}
	return result
}
