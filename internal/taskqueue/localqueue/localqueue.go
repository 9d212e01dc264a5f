// Package localqueue is a concrete stand-in for the external distributed
// task queue: a goroutine worker pool running commands locally with
// os/exec, so the engine is runnable and testable end-to-end without the
// real queue daemon.
package localqueue

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/lngonzalezg/yerba/internal/taskqueue"
	"github.com/lngonzalezg/yerba/pkg/logger"
)

const maxCapturedOutput = 64 * 1024

// Queue is a local worker-pool implementation of taskqueue.Queue.
type Queue struct {
	log *logger.Logger
	sem chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc
	waiting int
	results chan taskqueue.Result
	closed  bool

	wg sync.WaitGroup
}

// New starts a worker pool of the given size (minimum 1): at most
// workers tasks run their command concurrently, the rest queue.
func New(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		log:     logger.WithField("component", "localqueue"),
		sem:     make(chan struct{}, workers),
		running: make(map[string]context.CancelFunc),
		results: make(chan taskqueue.Result, 64),
	}
}

// Submit records t as pending and hands it to the worker pool; at most
// the configured number of workers run commands at once.
func (q *Queue) Submit(t taskqueue.Task) error {
	ctx, cancel := context.WithCancel(context.Background())

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return nil
	}
	q.running[t.ID] = cancel
	q.waiting++
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(ctx, t)
	return nil
}

func (q *Queue) run(ctx context.Context, t taskqueue.Task) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		delete(q.running, t.ID)
		q.mu.Unlock()
	}()

	select {
	case q.sem <- struct{}{}:
		defer func() { <-q.sem }()
	case <-ctx.Done():
		q.mu.Lock()
		q.waiting--
		q.mu.Unlock()
		return
	}
	q.mu.Lock()
	q.waiting--
	q.mu.Unlock()

	submitted := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", t.Command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	ended := time.Now()

	returned := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			returned = exitErr.ExitCode()
		} else {
			returned = -1
			q.log.Warn("local task did not run to completion", "task_id", t.ID, "error", err.Error())
		}
	}

	output := out.String()
	if len(output) > maxCapturedOutput {
		output = output[:maxCapturedOutput]
	}

	result := taskqueue.Result{
		TaskID:      t.ID,
		Returned:    returned,
		SubmittedAt: submitted,
		EndedAt:     ended,
		Output:      output,
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return
	}
	select {
	case q.results <- result:
	default:
		q.log.Warn("local task result dropped, results buffer full", "task_id", t.ID)
	}
}

// Wait performs one non-blocking poll for a finished task.
func (q *Queue) Wait() (taskqueue.Result, bool) {
	select {
	case r := <-q.results:
		return r, true
	default:
		return taskqueue.Result{}, false
	}
}

// Cancel kills the task with the given id, if still running.
func (q *Queue) Cancel(taskID string) error {
	q.mu.Lock()
	cancel, ok := q.running[taskID]
	q.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Stats reports current occupancy: tasks held by the semaphore are
// running, the rest are waiting for a free worker slot.
func (q *Queue) Stats() taskqueue.Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	active := len(q.sem)
	return taskqueue.Stats{
		TasksRunning:  active,
		TasksWaiting:  q.waiting,
		WorkersActive: active,
	}
}

// Close cancels every running task and waits for workers to exit.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	for _, cancel := range q.running {
		cancel()
	}
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
