package job

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Arg is one positional flag/value pair in a job's rendered command line,
// mirroring the original [<flag>, <value>, <shorten:int>] wire shape.
type Arg struct {
	Flag    string
	Value   string
	Shorten bool
}

// UnmarshalJSON accepts the [flag, value, shorten] triple; shorten is
// optional and defaults to false.
func (a *Arg) UnmarshalJSON(data []byte) error {
	var triple []json.RawMessage
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("job: arg entry must be an array: %w", err)
	}
	if len(triple) < 2 || len(triple) > 3 {
		return fmt.Errorf("job: arg entry must have 2 or 3 elements, got %d", len(triple))
	}
	if err := json.Unmarshal(triple[0], &a.Flag); err != nil {
		return fmt.Errorf("job: arg flag must be a string: %w", err)
	}
	if err := json.Unmarshal(triple[1], &a.Value); err != nil {
		return fmt.Errorf("job: arg value must be a string: %w", err)
	}
	if len(triple) == 3 {
		var shorten int
		if err := json.Unmarshal(triple[2], &shorten); err != nil {
			return fmt.Errorf("job: arg shorten must be an int: %w", err)
		}
		a.Shorten = shorten == 1
	}
	return nil
}

func (a Arg) MarshalJSON() ([]byte, error) {
	shorten := 0
	if a.Shorten {
		shorten = 1
	}
	return json.Marshal([3]interface{}{a.Flag, a.Value, shorten})
}

// RenderCommand concatenates the command (or script, if set) with each
// arg's " <flag> <value>", shortening an absolute path value to its
// basename when the arg requests it.
func (j *Job) RenderCommand() string {
	var b strings.Builder
	if j.Script != "" {
		b.WriteString(j.Script)
	} else {
		b.WriteString(j.Command)
	}
	for _, a := range j.Args {
		value := a.Value
		if a.Shorten && filepath.IsAbs(value) {
			value = filepath.Base(value)
		}
		fmt.Fprintf(&b, " %s %s", a.Flag, value)
	}
	return b.String()
}
