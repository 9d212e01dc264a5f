package workflow

import "github.com/lngonzalezg/yerba/internal/job"

// Spec is the wire shape of a submitted workflow specification, the body
// of a "schedule" request.
type Spec struct {
	Name     string     `json:"name,omitempty"`
	Priority int        `json:"priority,omitempty"`
	LogFile  string      `json:"logfile,omitempty"`
	ID       *int64     `json:"id,omitempty"`
	Jobs     []job.Spec `json:"jobs"`
}

// defaultName is applied when a submission omits "name".
const defaultName = "unnamed"
