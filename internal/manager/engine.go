// Package manager implements the Workflow Manager: the single owned
// Engine value holding the live workflow map, the Store, and the
// Notifier, mediating every submit/schedule/update/cancel/status
// operation against them.
package manager

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/lngonzalezg/yerba/internal/event"
	"github.com/lngonzalezg/yerba/internal/job"
	"github.com/lngonzalezg/yerba/internal/status"
	"github.com/lngonzalezg/yerba/internal/store"
	"github.com/lngonzalezg/yerba/internal/workflow"
	"github.com/lngonzalezg/yerba/internal/yerbaerrors"
	"github.com/lngonzalezg/yerba/pkg/logger"
)

// Engine is the single owned coordination point named in the design
// notes in place of the source's global registries: constructed once at
// startup, holding the Store, Notifier, and live-workflow map. Dispatch
// handlers close over it.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	notifier *event.Notifier
	live     map[int64]*workflow.Workflow
	log      *logger.Logger
}

// New constructs an Engine and subscribes it to TaskDone notifications.
func New(s *store.Store, n *event.Notifier) *Engine {
	e := &Engine{
		store:    s,
		notifier: n,
		live:     make(map[int64]*workflow.Workflow),
		log:      logger.WithField("component", "engine"),
	}
	n.Register(event.TaskDoneKind, e.handleTaskDone)
	return e
}

func isTerminal(st status.Workflow) bool {
	switch st {
	case status.Completed, status.Cancelled, status.Stopped, status.Failed:
		return true
	default:
		return false
	}
}

// reportedStatus translates a workflow's post-schedule in-memory status
// into what's handed back to the submitter. A terminal outcome
// (Completed/Failed/...) is surfaced as-is, but a workflow left Running
// because next() just dispatched a job that hasn't completed yet is
// reported as Scheduled — the job was scheduled, not finished.
func reportedStatus(w *workflow.Workflow) status.Workflow {
	if isTerminal(w.Status) {
		return w.Status
	}
	return status.Scheduled
}

func (e *Engine) persist(w *workflow.Workflow) {
	if err := e.store.UpdateStatus(w.ID, string(w.Status), isTerminal(w.Status)); err != nil {
		e.log.Warn("transient store error persisting status", "workflow_id", w.ID, "error", err.Error())
	}
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	ID     int64
	Status status.Workflow
	Errors []yerbaerrors.JobError
}

// Submit validates spec, finds or creates the corresponding store row,
// places the live Workflow into the id map, and schedules it.
func (e *Engine) Submit(spec workflow.Spec) (SubmitResult, error) {
	w, verr := workflow.Construct(spec, time.Now())
	if verr != nil {
		return SubmitResult{Status: status.Error, Errors: verr.Reasons}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var row *store.Row
	var err error
	if spec.ID != nil {
		row, err = e.store.GetWorkflow(*spec.ID)
	} else {
		row, err = e.store.FindWorkflow(w.JobsBlob)
	}
	if err != nil {
		return SubmitResult{}, &yerbaerrors.TransientStoreError{Op: "lookup workflow", Err: err}
	}

	switch {
	case row != nil && row.Status == string(status.Running):
		if live, ok := e.live[row.ID]; ok {
			return SubmitResult{ID: row.ID, Status: live.Status}, nil
		}
		// Running in the store but not live (e.g. pre-restart) falls
		// through to the general update-and-proceed path below.
		fallthrough
	case row != nil:
		w.ID = row.ID
		if err := e.store.UpdateWorkflow(row.ID, w.Name, w.LogFile, w.JobsBlob, w.Priority); err != nil {
			return SubmitResult{}, &yerbaerrors.TransientStoreError{Op: "update workflow", Err: err}
		}
	default:
		id, err := e.store.AddWorkflow(w.Name, w.LogFile, w.JobsBlob, w.Priority, string(status.Initialized))
		if err != nil {
			return SubmitResult{}, &yerbaerrors.TransientStoreError{Op: "add workflow", Err: err}
		}
		w.ID = id
	}

	e.live[w.ID] = w
	e.scheduleLocked(w)

	return SubmitResult{ID: w.ID, Status: reportedStatus(w)}, nil
}

// schedule persists Scheduled, asks the workflow for its next batch, and
// notifies the Scheduler Adapter when that batch is non-empty.
func (e *Engine) schedule(id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.live[id]
	if !ok {
		return yerbaerrors.ErrWorkflowNotFound
	}
	e.scheduleLocked(w)
	return nil
}

func (e *Engine) scheduleLocked(w *workflow.Workflow) {
	if err := e.store.UpdateStatus(w.ID, string(status.Scheduled), false); err != nil {
		e.log.Warn("transient store error persisting Scheduled", "workflow_id", w.ID, "error", err.Error())
	}

	jobs := w.Next()
	e.persist(w)
	if len(jobs) > 0 {
		// Notify is synchronous and a subscriber may deliver TaskDone
		// straight back into update(), so e.mu is released around it.
		e.mu.Unlock()
		e.notifier.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: w.ID, Jobs: jobs, Priority: w.Priority})
		e.mu.Lock()
	}
}

// handleTaskDone is the TaskDone subscriber: it updates the owning
// workflow and, if progress can continue, re-schedules it.
func (e *Engine) handleTaskDone(payload any) {
	evt, ok := payload.(event.TaskDone)
	if !ok {
		return
	}
	if err := e.update(evt.WorkflowID, evt.Job, evt.Info); err != nil {
		e.log.Warn("update failed for completed task", "workflow_id", evt.WorkflowID, "error", err.Error())
	}
}

func (e *Engine) update(id int64, j *job.Job, info *job.Info) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.live[id]
	if !ok {
		return yerbaerrors.ErrWorkflowNotFound
	}

	newStatus := w.UpdateStatus(j, info)
	e.persist(w)

	if newStatus == status.Running {
		jobs := w.Next()
		e.persist(w)
		if len(jobs) > 0 {
			e.notifier.Notify(event.ScheduleTaskKind, event.ScheduleTask{WorkflowID: w.ID, Jobs: jobs, Priority: w.Priority})
		}
	}
	return nil
}

// Cancel freezes the workflow, persists the terminal status, and tells
// the Scheduler Adapter to drop tasks no other workflow still needs.
// Cancelling an unknown id is idempotent and returns NotFound.
func (e *Engine) Cancel(id int64) status.Workflow {
	e.mu.Lock()
	w, ok := e.live[id]
	e.mu.Unlock()
	if !ok {
		return status.NotFound
	}

	st := w.Cancel()
	e.persist(w)
	e.notifier.Notify(event.CancelTaskKind, event.CancelTask{WorkflowID: id})
	return st
}

// StatusResult is the outcome of Status.
type StatusResult struct {
	Status status.Workflow
	Jobs   []workflow.JobState
}

// Status returns the persisted status and, if the workflow is live, its
// per-job state vector.
func (e *Engine) Status(id int64) (StatusResult, error) {
	row, err := e.store.GetWorkflow(id)
	if err != nil {
		return StatusResult{}, &yerbaerrors.TransientStoreError{Op: "get workflow", Err: err}
	}
	if row == nil {
		return StatusResult{Status: status.NotFound}, nil
	}

	e.mu.Lock()
	w, ok := e.live[id]
	e.mu.Unlock()

	result := StatusResult{Status: status.Workflow(row.Status)}
	if ok {
		result.Jobs = w.State()
	}
	return result, nil
}

// Workflows lists summaries, restricted to ids when non-empty.
func (e *Engine) Workflows(ids []int64) ([]store.Summary, error) {
	return e.store.Fetch(ids)
}

// Restart rehydrates a workflow from its stored blob, places it in the
// live map, marks the row Initialized, and schedules it.
func (e *Engine) Restart(id int64) (SubmitResult, error) {
	row, err := e.store.GetWorkflow(id)
	if err != nil {
		return SubmitResult{}, &yerbaerrors.TransientStoreError{Op: "get workflow", Err: err}
	}
	if row == nil {
		return SubmitResult{Status: status.NotFound}, nil
	}

	var jobs []*job.Job
	if err := json.Unmarshal(row.JobsBlob, &jobs); err != nil {
		return SubmitResult{}, &yerbaerrors.TransientStoreError{Op: "decode jobs blob", Err: err}
	}

	w := workflow.Rehydrate(row.ID, row.Name, row.Log, row.Priority, jobs, row.JobsBlob, row.Submitted)

	e.mu.Lock()
	e.live[w.ID] = w
	e.mu.Unlock()

	if err := e.store.UpdateStatus(row.ID, string(status.Initialized), false); err != nil {
		e.log.Warn("transient store error persisting Initialized", "workflow_id", row.ID, "error", err.Error())
	}
	if err := e.schedule(row.ID); err != nil {
		return SubmitResult{}, err
	}

	e.mu.Lock()
	st := reportedStatus(w)
	e.mu.Unlock()
	return SubmitResult{ID: w.ID, Status: st}, nil
}

// Cleanup flips every stored row still marked Running to Stopped; called
// both at startup (crash recovery) and at shutdown.
func (e *Engine) Cleanup() error {
	return e.store.StopWorkflows(string(status.Stopped))
}
