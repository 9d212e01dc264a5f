package job

import (
	"github.com/lngonzalezg/yerba/internal/status"
)

// Spec is the wire shape of one job entry within a submitted workflow
// specification.
type Spec struct {
	Command     string    `json:"cmd"`
	Script      string    `json:"script,omitempty"`
	Args        []Arg     `json:"args,omitempty"`
	Inputs      []FileRef `json:"inputs,omitempty"`
	Outputs     []FileRef `json:"outputs,omitempty"`
	Description string    `json:"description,omitempty"`
	Overwrite   int       `json:"overwrite,omitempty"`
	Options     *Options  `json:"options,omitempty"`
}

// ToJob builds a Job from this spec. The reason string is non-empty when
// the spec is invalid and no Job should be used.
func (s Spec) ToJob() (*Job, string) {
	j := &Job{
		Command:     s.Command,
		Script:      s.Script,
		Args:        s.Args,
		Inputs:      s.Inputs,
		Outputs:     s.Outputs,
		Description: s.Description,
		Overwrite:   s.Overwrite == 1,
		Attempt:     1,
		State:       status.Waiting,
	}
	if s.Options != nil {
		j.Options = *s.Options
	} else {
		j.Options = DefaultOptions()
	}
	if reason := j.Validate(); reason != "" {
		return nil, reason
	}
	if j.Overwrite {
		j.ClearOutputs()
	}
	return j, ""
}
