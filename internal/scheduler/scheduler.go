// Package scheduler implements the Scheduler Adapter: it translates
// ready Jobs into external queue Tasks, coalesces structurally-equal
// jobs submitted by different workflows onto a single Task, and drains
// completions back out through the Event Notifier.
package scheduler

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lngonzalezg/yerba/internal/event"
	"github.com/lngonzalezg/yerba/internal/job"
	"github.com/lngonzalezg/yerba/internal/taskqueue"
	"github.com/lngonzalezg/yerba/pkg/logger"
)

// entry tracks one outstanding external Task and every workflow that
// depends on it, each with its own Job pointer — coalesced jobs are
// structurally equal but remain distinct objects owned by distinct
// Workflows.
type entry struct {
	fingerprint    string
	taskID         string
	jobsByWorkflow map[int64]*job.Job
}

// Adapter is the Scheduler Adapter.
type Adapter struct {
	mu            sync.Mutex
	queue         taskqueue.Queue
	notifier      *event.Notifier
	byFingerprint map[string]*entry
	byTaskID      map[string]*entry
	log           *logger.Logger
}

// NewAdapter constructs an Adapter bound to queue and subscribes it to
// the notifier's ScheduleTask and CancelTask events.
func NewAdapter(queue taskqueue.Queue, notifier *event.Notifier) *Adapter {
	a := &Adapter{
		queue:         queue,
		notifier:      notifier,
		byFingerprint: make(map[string]*entry),
		byTaskID:      make(map[string]*entry),
		log:           logger.WithField("component", "scheduler-adapter"),
	}
	notifier.Register(event.ScheduleTaskKind, a.handleScheduleTask)
	notifier.Register(event.CancelTaskKind, a.handleCancelTask)
	return a
}

// fingerprint is the canonical structural key used for task coalescing:
// command, sorted inputs, sorted outputs.
func fingerprint(j *job.Job) string {
	inputs := fileRefPaths(j.Inputs)
	outputs := fileRefPaths(j.Outputs)
	sort.Strings(inputs)
	sort.Strings(outputs)
	return j.RenderCommand() + "\x00" + strings.Join(inputs, ",") + "\x00" + strings.Join(outputs, ",")
}

func fileRefPaths(refs []job.FileRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path
	}
	return out
}

func (a *Adapter) handleScheduleTask(payload any) {
	evt, ok := payload.(event.ScheduleTask)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, j := range evt.Jobs {
		if !j.Ready() {
			continue
		}

		fp := fingerprint(j)
		if existing, ok := a.byFingerprint[fp]; ok {
			existing.jobsByWorkflow[evt.WorkflowID] = j
			continue
		}

		e := &entry{
			fingerprint:    fp,
			taskID:         uuid.NewString(),
			jobsByWorkflow: map[int64]*job.Job{evt.WorkflowID: j},
		}
		if err := a.queue.Submit(taskqueue.Task{
			ID:      e.taskID,
			Command: j.RenderCommand(),
			Inputs:  fileRefPaths(j.Inputs),
			Outputs: fileRefPaths(j.Outputs),
		}); err != nil {
			a.log.Warn("task submission failed", "workflow_id", evt.WorkflowID, "error", err.Error())
			continue
		}
		a.byFingerprint[fp] = e
		a.byTaskID[e.taskID] = e
	}
}

func (a *Adapter) handleCancelTask(payload any) {
	evt, ok := payload.(event.CancelTask)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for taskID, e := range a.byTaskID {
		if _, dependsOn := e.jobsByWorkflow[evt.WorkflowID]; !dependsOn {
			continue
		}
		delete(e.jobsByWorkflow, evt.WorkflowID)
		if len(e.jobsByWorkflow) == 0 {
			if err := a.queue.Cancel(taskID); err != nil {
				a.log.Warn("queue cancel failed", "task_id", taskID, "error", err.Error())
			}
			delete(a.byTaskID, taskID)
			delete(a.byFingerprint, e.fingerprint)
		}
	}
}

// Update performs the non-blocking drain step: every task the queue has
// finished since the last call is resolved into one TaskDone notification
// per dependent workflow.
func (a *Adapter) Update() {
	for {
		result, ok := a.queue.Wait()
		if !ok {
			return
		}
		a.drain(result)
	}
}

func (a *Adapter) drain(result taskqueue.Result) {
	a.mu.Lock()
	e, ok := a.byTaskID[result.TaskID]
	if ok {
		delete(a.byTaskID, result.TaskID)
		delete(a.byFingerprint, e.fingerprint)
	}
	a.mu.Unlock()

	if !ok {
		return
	}

	info := &job.Info{
		SubmittedAt:    result.SubmittedAt,
		EndedAt:        result.EndedAt,
		ElapsedSeconds: result.EndedAt.Sub(result.SubmittedAt).Seconds(),
		TaskID:         result.TaskID,
		Returned:       result.Returned,
		Output:         result.Output,
	}

	for workflowID, j := range e.jobsByWorkflow {
		info := *info
		info.Command = j.RenderCommand()
		a.notifier.Notify(event.TaskDoneKind, event.TaskDone{WorkflowID: workflowID, Job: j, Info: &info})
	}
}

// Stats reports current queue occupancy, folded into the daemon's
// periodic operational snapshot.
func (a *Adapter) Stats() taskqueue.Stats {
	return a.queue.Stats()
}

// Initialize satisfies lifecycle.Service; the queue is already connected
// by the time an Adapter is constructed, so there is nothing to do here
// beyond the interface requirement.
func (a *Adapter) Initialize() error { return nil }

// Stop satisfies lifecycle.Service, closing the underlying queue.
func (a *Adapter) Stop() {
	if err := a.queue.Close(); err != nil {
		a.log.Warn("error closing task queue", "error", err.Error())
	}
}
