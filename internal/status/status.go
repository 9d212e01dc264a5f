// Package status defines the fixed vocabulary of workflow- and job-level
// states and their human-readable names.
package status

// Workflow is the status of a Workflow as a whole.
type Workflow string

const (
	Initialized Workflow = "Initialized"
	Scheduled   Workflow = "Scheduled"
	Running     Workflow = "Running"
	Completed   Workflow = "Completed"
	Cancelled   Workflow = "Cancelled"
	Stopped     Workflow = "Stopped"
	Failed      Workflow = "Failed"
	NotFound    Workflow = "NotFound"
	Error       Workflow = "Error"
)

// String satisfies fmt.Stringer; the enumeration values are already the
// names the wire protocol expects, so this is just a type assertion.
func (w Workflow) String() string { return string(w) }

// workflowMessages mirrors the original status_message lookup table,
// replacing the dynamic-attribute trick with a plain map literal.
var workflowMessages = map[Workflow]string{
	Initialized: "workflow created, not yet scheduled",
	Scheduled:   "workflow scheduled, waiting for jobs to start",
	Running:     "workflow has jobs in progress",
	Completed:   "all jobs completed successfully",
	Cancelled:   "workflow cancelled by request",
	Stopped:     "workflow stopped (daemon restart)",
	Failed:      "one or more jobs failed with no further progress possible",
	NotFound:    "no workflow with that id",
	Error:       "request could not be processed",
}

// Message returns the human-readable description for w, or an empty
// string for an unrecognized value.
func (w Workflow) Message() string { return workflowMessages[w] }

// Job is the status of a single Job within a Workflow.
type Job string

const (
	Waiting   Job = "waiting"
	JobSched  Job = "scheduled"
	JobRun    Job = "running"
	JobDone   Job = "completed"
	JobFailed Job = "failed"
	JobCancel Job = "cancelled"
	JobStop   Job = "stopped"
	JobSkip   Job = "skipped"
)

func (j Job) String() string { return string(j) }

// Terminal reports whether j is one of the job lifecycle's terminal states.
func (j Job) Terminal() bool {
	switch j {
	case JobDone, JobFailed, JobCancel, JobStop, JobSkip:
		return true
	default:
		return false
	}
}
