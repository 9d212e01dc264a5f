// Package workflow implements the per-workflow job dependency/state
// machine: an ordered tuple of jobs partitioned into available, running,
// and completed sets, computing the next dispatchable batch and ingesting
// task completions.
package workflow

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/lngonzalezg/yerba/internal/job"
	"github.com/lngonzalezg/yerba/internal/status"
	"github.com/lngonzalezg/yerba/internal/yerbaerrors"
)

// Workflow is a set of jobs submitted and tracked as a unit.
type Workflow struct {
	mu sync.Mutex

	ID       int64
	Name     string
	Priority int
	LogFile  string

	jobs      []*job.Job
	indexOf   map[*job.Job]int
	available map[int]struct{}
	running   map[int]struct{}
	completed map[int]struct{}

	Status      status.Workflow
	Submitted   time.Time
	CompletedAt *time.Time

	frozen bool

	// JobsBlob is the canonical JSON of the submitted job specification,
	// captured at construction and never mutated; it is the store's
	// deduplication key.
	JobsBlob []byte
}

// Construct validates spec and builds a Workflow in its Initialized
// state. Validation rejects a missing command, a null inputs/outputs
// entry, or an empty jobs array; no partial workflow is produced.
func Construct(spec Spec, now time.Time) (*Workflow, *yerbaerrors.ValidationError) {
	if len(spec.Jobs) == 0 {
		return nil, &yerbaerrors.ValidationError{Reasons: []yerbaerrors.JobError{{Index: 0, Reason: "empty jobs array"}}}
	}

	jobs := make([]*job.Job, 0, len(spec.Jobs))
	var reasons []yerbaerrors.JobError
	for i, js := range spec.Jobs {
		j, reason := js.ToJob()
		if reason != "" {
			reasons = append(reasons, yerbaerrors.JobError{Index: i, Reason: reason})
			continue
		}
		jobs = append(jobs, j)
	}
	if len(reasons) > 0 {
		return nil, &yerbaerrors.ValidationError{Reasons: reasons}
	}

	blob, err := json.Marshal(jobs)
	if err != nil {
		return nil, &yerbaerrors.ValidationError{Reasons: []yerbaerrors.JobError{{Index: 0, Reason: "could not serialize jobs: " + err.Error()}}}
	}

	name := spec.Name
	if name == "" {
		name = defaultName
	}

	w := &Workflow{
		Name:      name,
		Priority:  spec.Priority,
		LogFile:   spec.LogFile,
		jobs:      jobs,
		indexOf:   make(map[*job.Job]int, len(jobs)),
		available: make(map[int]struct{}, len(jobs)),
		running:   make(map[int]struct{}),
		completed: make(map[int]struct{}),
		Status:    status.Initialized,
		Submitted: now,
		JobsBlob:  blob,
	}
	for i, j := range jobs {
		w.indexOf[j] = i
		w.available[i] = struct{}{}
	}
	return w, nil
}

// Rehydrate rebuilds a live Workflow from a previously-stored job list,
// resetting every job to waiting — used by restart(id) to bring a
// workflow back into the live map from its durable blob.
func Rehydrate(id int64, name, logFile string, priority int, jobs []*job.Job, blob []byte, submitted time.Time) *Workflow {
	w := &Workflow{
		ID:        id,
		Name:      name,
		Priority:  priority,
		LogFile:   logFile,
		jobs:      jobs,
		indexOf:   make(map[*job.Job]int, len(jobs)),
		available: make(map[int]struct{}, len(jobs)),
		running:   make(map[int]struct{}),
		completed: make(map[int]struct{}),
		Status:    status.Initialized,
		Submitted: submitted,
		JobsBlob:  blob,
	}
	for i, j := range jobs {
		j.Attempt = 1
		j.State = status.Waiting
		j.Info = nil
		w.indexOf[j] = i
		w.available[i] = struct{}{}
	}
	return w
}

// Jobs returns the workflow's ordered job tuple. Callers must not mutate
// the slice; job state must only change through Next/UpdateStatus/Cancel/Stop.
func (w *Workflow) Jobs() []*job.Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.jobs
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// checkPartitionInvariant panics if the sizes of the three partitions no
// longer sum to the number of jobs; it compares counts only and does not
// inspect which indices each partition holds. This only guards against a
// programming error in this package, it never fires in normal operation.
func (w *Workflow) checkPartitionInvariant() {
	total := len(w.available) + len(w.running) + len(w.completed)
	if total != len(w.jobs) {
		panic("workflow: partitions no longer partition the job tuple")
	}
}

func (w *Workflow) moveAvailableToRunning(idx int) {
	delete(w.available, idx)
	w.running[idx] = struct{}{}
}

func (w *Workflow) moveAvailableToCompleted(idx int) {
	delete(w.available, idx)
	w.completed[idx] = struct{}{}
}

func (w *Workflow) moveRunningToCompleted(idx int) {
	delete(w.running, idx)
	w.completed[idx] = struct{}{}
}

// Next computes the batch of jobs now dispatchable, moving them from
// available to running. It also resolves jobs whose outputs already
// exist (skipped) and, when nothing remains selectable or running while
// jobs remain, fails the workflow outright.
func (w *Workflow) Next() []*job.Job {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return nil
	}

	var selected []*job.Job
	for _, idx := range sortedKeys(w.available) {
		j := w.jobs[idx]

		if j.Completed() {
			j.State = status.JobSkip
			w.moveAvailableToCompleted(idx)
			w.appendLog(j, "Skipped")
			continue
		}

		if j.Ready() && (j.State == status.Waiting || j.State == status.JobSched) {
			j.State = status.JobRun
			w.moveAvailableToRunning(idx)
			selected = append(selected, j)
		}
	}

	switch {
	case len(selected) > 0 || len(w.running) > 0:
		w.Status = status.Running
	case len(w.available) == 0:
		w.Status = status.Completed
		w.stampCompleted()
	default:
		w.Status = status.Failed
		for _, idx := range sortedKeys(w.available) {
			j := w.jobs[idx]
			j.State = status.JobFailed
			w.moveAvailableToCompleted(idx)
			w.appendLog(j, "was not run")
		}
	}

	w.checkPartitionInvariant()
	return selected
}

// UpdateStatus ingests a task completion for j, retrying it when its
// return status or outputs don't qualify as success and attempts remain,
// otherwise resolving it to completed or failed and recomputing the
// workflow's aggregate status.
func (w *Workflow) UpdateStatus(j *job.Job, info *job.Info) status.Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx, ok := w.indexOf[j]
	if !ok {
		return w.Status
	}
	delete(w.running, idx)
	j.RecordInfo(info)

	succeeded := j.Options.Accepts(info.Returned) && j.ReportsCompleted()
	if !succeeded {
		if !j.ExhaustedRetries() {
			j.Restart()
			w.available[idx] = struct{}{}
			w.Status = status.Running
			w.checkPartitionInvariant()
			return w.Status
		}
		j.State = status.JobFailed
		w.completed[idx] = struct{}{}
		w.Status = status.Failed
		w.appendLog(j, "failed")
		w.checkPartitionInvariant()
		return w.Status
	}

	j.State = status.JobDone
	w.completed[idx] = struct{}{}
	w.appendLog(j, "completed")

	switch {
	case len(w.available) == 0 && len(w.running) == 0:
		w.Status = status.Completed
		w.stampCompleted()
	case w.progressPossible():
		w.Status = status.Running
	default:
		w.Status = status.Failed
		for _, rem := range sortedKeys(w.available) {
			rj := w.jobs[rem]
			rj.State = status.JobFailed
			w.moveAvailableToCompleted(rem)
			w.appendLog(rj, "was not run")
		}
	}

	w.checkPartitionInvariant()
	return w.Status
}

// progressPossible reports whether the workflow can still advance: a
// running job may still complete, or an available job is ready now.
func (w *Workflow) progressPossible() bool {
	if len(w.running) > 0 {
		return true
	}
	for idx := range w.available {
		if w.jobs[idx].Ready() {
			return true
		}
	}
	return false
}

func (w *Workflow) stampCompleted() {
	now := time.Now()
	w.CompletedAt = &now
}

// Cancel moves every non-terminal job to cancelled and freezes the
// workflow so further Next calls return nothing.
func (w *Workflow) Cancel() status.Workflow {
	return w.terminate(status.JobCancel, status.Cancelled)
}

// Stop moves every non-terminal job to stopped and freezes the workflow,
// used on daemon restart for rows left Running.
func (w *Workflow) Stop() status.Workflow {
	return w.terminate(status.JobStop, status.Stopped)
}

func (w *Workflow) terminate(jobState status.Job, workflowStatus status.Workflow) status.Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return w.Status
	}

	for _, idx := range sortedKeys(w.available) {
		w.jobs[idx].State = jobState
		w.moveAvailableToCompleted(idx)
	}
	for _, idx := range sortedKeys(w.running) {
		w.jobs[idx].State = jobState
		w.moveRunningToCompleted(idx)
	}

	w.Status = workflowStatus
	w.frozen = true
	w.stampCompleted()
	w.checkPartitionInvariant()
	return w.Status
}

// JobState is one entry of a State() snapshot.
type JobState struct {
	Status      status.Job `json:"status"`
	Description string     `json:"description"`
	Errors      []string   `json:"errors,omitempty"`
	Info        *job.Info  `json:"info,omitempty"`
}

// State returns a snapshot of every job's status, description, errors,
// and info fields, in job order.
func (w *Workflow) State() []JobState {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]JobState, len(w.jobs))
	for i, j := range w.jobs {
		out[i] = JobState{
			Status:      j.State,
			Description: j.Description,
			Errors:      j.Errors,
			Info:        j.Info,
		}
	}
	return out
}
