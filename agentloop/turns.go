package agentloop

import (
	"fmt"
	"time"
)

// IterationRecord is appended once per failed compile.
type IterationRecord struct {
	Iteration  int  `json:"iteration"`
	ErrorCount int  `json:"error_count"`
	Known      bool `json:"known"` // false when the diagnostics had no parsable count
}

// String renders the record the way the summary logs it.
func (r IterationRecord) String() string {
	if !r.Known {
		return fmt.Sprintf("Iteration %d: unknown errors", r.Iteration)
	}
	return fmt.Sprintf("Iteration %d: %d errors", r.Iteration, r.ErrorCount)
}

// Attempt is one generate/write/compile cycle.
type Attempt struct {
	Iteration  int           `json:"iteration"`
	Correction bool          `json:"correction"`
	SourcePath string        `json:"source_path"`
	Source     string        `json:"-"`
	ExitCode   int           `json:"exit_code"`
	TimedOut   bool          `json:"timed_out"`
	Duration   time.Duration `json:"duration"`
}

// Summary describes a finished run.
type Summary struct {
	RunID      string            `json:"run_id"`
	State      State             `json:"state"`
	Iterations int               `json:"iterations"`
	Records    []IterationRecord `json:"records"`
	Attempts   []Attempt         `json:"attempts"`
	SourcePath string            `json:"source_path,omitempty"`
	Source     string            `json:"-"`
	Duration   time.Duration     `json:"duration"`
}

// Lines returns one summary line per failed iteration.
func (s *Summary) Lines() []string {
	lines := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		lines = append(lines, r.String())
	}
	return lines
}
