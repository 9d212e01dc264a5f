package workflow

import (
	"fmt"
	"os"
	"time"

	"github.com/lngonzalezg/yerba/internal/job"
)

// appendLog appends one block to the workflow's operator log file
// recording j's outcome, the way a human operator would read a tail -f
// of it. A no-op when no LogFile is configured. Called once per job per
// terminal outcome (skipped, was-not-run, completed, failed); callers
// are responsible for not calling it twice for the same job state.
func (w *Workflow) appendLog(j *job.Job, outcome string) {
	if w.LogFile == "" {
		return
	}

	f, err := os.OpenFile(w.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] %s\n", time.Now().Format(time.RFC3339), j.RenderCommand())
	switch outcome {
	case "Skipped":
		fmt.Fprintln(f, "  outputs already present, skipped")
	case "was not run":
		fmt.Fprintln(f, "  was not run")
	case "completed":
		writeInfoBlock(f, j.Info)
	case "failed":
		writeInfoBlock(f, j.Info)
	}
	fmt.Fprintln(f)
}

func writeInfoBlock(f *os.File, info *job.Info) {
	if info == nil {
		return
	}
	fmt.Fprintf(f, "  submitted: %s\n", info.SubmittedAt.Format(time.RFC3339))
	fmt.Fprintf(f, "  ended: %s\n", info.EndedAt.Format(time.RFC3339))
	fmt.Fprintf(f, "  elapsed: %.3fs\n", info.ElapsedSeconds)
	fmt.Fprintf(f, "  return status: %d\n", info.Returned)
	if info.Output != "" {
		fmt.Fprintf(f, "  output:\n%s\n", info.Output)
	}
}
