package job

import (
	"encoding/json"
	"sort"
)

// Options holds the tunables a submitted job may override; every field has
// a defined default so an absent "options" object is equivalent to all
// defaults.
type Options struct {
	AcceptedReturnCodes map[int]struct{}
	AllowZeroLength     bool
	Retries             int
}

// DefaultOptions returns the options a job has when none are specified.
func DefaultOptions() Options {
	return Options{
		AcceptedReturnCodes: map[int]struct{}{0: {}},
		AllowZeroLength:     true,
		Retries:             0,
	}
}

// Accepts reports whether code is one of the accepted return codes.
func (o Options) Accepts(code int) bool {
	_, ok := o.AcceptedReturnCodes[code]
	return ok
}

type optionsWire struct {
	AcceptedReturnCodes []int `json:"accepted-return-codes"`
	AllowZeroLength     *bool `json:"allow-zero-length"`
	Retries             *int  `json:"retries"`
}

// UnmarshalJSON merges the supplied fields over DefaultOptions, the
// ChainMap-style defaulting the original options parsing used.
func (o *Options) UnmarshalJSON(data []byte) error {
	*o = DefaultOptions()

	var wire optionsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.AcceptedReturnCodes != nil {
		codes := make(map[int]struct{}, len(wire.AcceptedReturnCodes))
		for _, c := range wire.AcceptedReturnCodes {
			codes[c] = struct{}{}
		}
		o.AcceptedReturnCodes = codes
	}
	if wire.AllowZeroLength != nil {
		o.AllowZeroLength = *wire.AllowZeroLength
	}
	if wire.Retries != nil {
		o.Retries = *wire.Retries
	}
	return nil
}

// MarshalJSON emits the canonical explicit form so two jobs-blobs with
// identical effective options compare equal byte-for-byte.
func (o Options) MarshalJSON() ([]byte, error) {
	codes := make([]int, 0, len(o.AcceptedReturnCodes))
	for c := range o.AcceptedReturnCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return json.Marshal(optionsWire{
		AcceptedReturnCodes: codes,
		AllowZeroLength:     &o.AllowZeroLength,
		Retries:             &o.Retries,
	})
}
