// Package job implements a single command invocation: its declared
// inputs/outputs, options, retry accounting, and the filesystem-backed
// readiness/completion predicates the Workflow model drives next() from.
package job

import (
	"os"
	"time"

	"github.com/lngonzalezg/yerba/internal/status"
)

const maxCapturedOutput = 64 * 1024 // 64 KiB

// Info is filled in on task completion and records what actually
// happened when the job ran.
type Info struct {
	SubmittedAt    time.Time `json:"submitted_at"`
	EndedAt        time.Time `json:"ended_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	TaskID         string    `json:"task_id"`
	Returned       int       `json:"returned"`
	Command        string    `json:"command"`
	Output         string    `json:"output"`
}

// Job is one command invocation within a Workflow.
type Job struct {
	// Identity, immutable after construction.
	Command     string   `json:"cmd"`
	Script      string   `json:"script,omitempty"`
	Args        []Arg    `json:"args,omitempty"`
	Description string   `json:"description,omitempty"`
	Inputs      []FileRef `json:"inputs"`
	Outputs     []FileRef `json:"outputs"`
	Options     Options  `json:"options"`
	Overwrite   bool     `json:"-"`

	// Mutable state.
	Attempt int         `json:"attempt"`
	State   status.Job  `json:"status"`
	Info    *Info       `json:"info,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// New constructs a Job in its initial waiting state with default options
// applied where the caller left them zero-valued.
func New(command string) *Job {
	return &Job{
		Command: command,
		Options: DefaultOptions(),
		Attempt: 1,
		State:   status.Waiting,
	}
}

// Validate reports the reason this job would be rejected from a
// submitted specification, or "" if it is acceptable.
func (j *Job) Validate() string {
	if j.Command == "" && j.Script == "" {
		return "missing command string"
	}
	for _, in := range j.Inputs {
		if in.Path == "" {
			return "null entry in inputs"
		}
	}
	for _, out := range j.Outputs {
		if out.Path == "" {
			return "null entry in outputs"
		}
	}
	return ""
}

// Ready reports whether every declared input is present under the
// allow-zero-length policy. Directory entries require the directory to
// exist; an empty directory is ready.
func (j *Job) Ready() bool {
	for _, in := range j.Inputs {
		if !pathSatisfies(in, j.Options.AllowZeroLength) {
			return false
		}
	}
	return true
}

// Completed reports whether this job's declared outputs are already
// present, independent of whether it has ever run. With no declared
// outputs, completeness instead depends on a reported return status,
// which Completed alone cannot determine, so it returns false there;
// CompletedByReturn and ReportsCompleted cover that branch.
func (j *Job) Completed() bool {
	if len(j.Outputs) == 0 {
		return false
	}
	for _, out := range j.Outputs {
		if !pathSatisfies(out, j.Options.AllowZeroLength) {
			return false
		}
	}
	return true
}

// CompletedByReturn reports whether a task's reported return code, in the
// absence of declared outputs, counts as completion.
func (j *Job) CompletedByReturn(returned int) bool {
	if len(j.Outputs) != 0 {
		return j.Completed()
	}
	return j.Options.Accepts(returned)
}

// ReportsCompleted reports whether the declared outputs are present; a
// job with no declared outputs trivially reports completed, deferring
// entirely to the task's return status.
func (j *Job) ReportsCompleted() bool {
	if len(j.Outputs) == 0 {
		return true
	}
	return j.Completed()
}

// ClearOutputs removes every declared output path, ignoring errors (a
// missing path is not a failure). Called for Overwrite jobs before the
// first readiness pass, so a resubmission actually re-runs instead of
// being classified as already-completed.
func (j *Job) ClearOutputs() {
	for _, out := range j.Outputs {
		os.Remove(out.Path)
	}
}

func pathSatisfies(ref FileRef, allowZeroLength bool) bool {
	info, err := os.Stat(ref.Path)
	if err != nil {
		return false
	}
	if ref.IsDir {
		return info.IsDir()
	}
	if info.IsDir() {
		return false
	}
	if !allowZeroLength && info.Size() == 0 {
		return false
	}
	return true
}

// ExhaustedRetries reports whether no further attempt is allowed: the
// attempt counter is compared monotonically against options.Retries+1.
func (j *Job) ExhaustedRetries() bool {
	return j.Attempt >= j.Options.Retries+1
}

// Restart increments the attempt counter and resets state for another
// scheduling pass.
func (j *Job) Restart() {
	j.Attempt++
	j.State = status.Waiting
	j.Info = nil
}

// RecordInfo attaches a completion record and clears captured output past
// the 64 KiB cap.
func (j *Job) RecordInfo(info *Info) {
	if len(info.Output) > maxCapturedOutput {
		info.Output = info.Output[:maxCapturedOutput]
	}
	j.Info = info
}

// DeepCopy returns an independent copy, so a Workflow snapshot never
// shares mutable state with the live job.
func (j *Job) DeepCopy() *Job {
	cp := *j
	cp.Inputs = append([]FileRef(nil), j.Inputs...)
	cp.Outputs = append([]FileRef(nil), j.Outputs...)
	cp.Args = append([]Arg(nil), j.Args...)
	cp.Errors = append([]string(nil), j.Errors...)
	codes := make(map[int]struct{}, len(j.Options.AcceptedReturnCodes))
	for c := range j.Options.AcceptedReturnCodes {
		codes[c] = struct{}{}
	}
	cp.Options.AcceptedReturnCodes = codes
	if j.Info != nil {
		info := *j.Info
		cp.Info = &info
	}
	return &cp
}
