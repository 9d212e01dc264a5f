package job

import (
	"encoding/json"
	"fmt"
)

// FileRef names a single declared input or output path. The wire format
// accepts either a bare string (a file) or a [path, is_dir] pair.
type FileRef struct {
	Path  string
	IsDir bool
}

// UnmarshalJSON accepts both shapes the workflow specification allows for
// an input/output entry.
func (f *FileRef) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		f.Path = asString
		f.IsDir = false
		return nil
	}

	var asPair []json.RawMessage
	if err := json.Unmarshal(data, &asPair); err != nil {
		return fmt.Errorf("job: input/output entry must be a string or [path, is_dir] pair: %w", err)
	}
	if len(asPair) != 2 {
		return fmt.Errorf("job: [path, is_dir] pair must have exactly two elements, got %d", len(asPair))
	}
	if err := json.Unmarshal(asPair[0], &f.Path); err != nil {
		return fmt.Errorf("job: entry path must be a string: %w", err)
	}
	if err := json.Unmarshal(asPair[1], &f.IsDir); err != nil {
		return fmt.Errorf("job: entry is_dir must be a bool: %w", err)
	}
	return nil
}

// MarshalJSON round-trips as a [path, is_dir] pair so the canonical JSON
// used for the store's deduplication key is stable regardless of how the
// client originally wrote it.
func (f FileRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{f.Path, f.IsDir})
}
