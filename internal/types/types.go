package types

import "time"

// Status is the outcome of one element in a run.
type Status string

const (
	StatusFiltered   Status = "filtered"   // not in the allow-list
	StatusInline     Status = "inline"     // one-line body, nothing to splice into
	StatusDocumented Status = "documented" // already had a docstring, left alone
	StatusInserted   Status = "inserted"
	StatusReplaced   Status = "replaced"
	StatusTODO       Status = "todo"
	StatusCancelled  Status = "cancelled" // run stopped before reaching it
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusInserted, StatusReplaced, StatusTODO, StatusDocumented,
	StatusInline, StatusFiltered, StatusCancelled,
}

// ElementReport is the outcome for one function or class.
type ElementReport struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	Status    Status `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Docstring string `json:"docstring,omitempty"`
}

// FileReport is the outcome for one source file.
type FileReport struct {
	Path         string          `json:"path"`
	RelativePath string          `json:"relative_path"`
	Module       string          `json:"module,omitempty"`
	Encoding     string          `json:"encoding,omitempty"`
	Elements     []ElementReport `json:"elements,omitempty"`
	Changed      bool            `json:"changed"`
	Cancelled    bool            `json:"cancelled,omitempty"`
	Error        string          `json:"error,omitempty"`
	Diff         string          `json:"diff,omitempty"`
	Duration     time.Duration   `json:"duration_ns"`
}

// Count returns how many elements of the file have status s.
func (f *FileReport) Count(s Status) int {
	n := 0
	for _, e := range f.Elements {
		if e.Status == s {
			n++
		}
	}
	return n
}

// RunReport is the outcome of a whole run.
type RunReport struct {
	Root        string        `json:"root"`
	Backend     string        `json:"backend"`
	Model       string        `json:"model,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty"`
	Files       []FileReport  `json:"files"`
	Written     []string      `json:"written,omitempty"`
	Skipped     []string      `json:"skipped,omitempty"`
	Cancelled   bool          `json:"cancelled,omitempty"`
	CacheHits   int64         `json:"cache_hits,omitempty"`
	CacheMisses int64         `json:"cache_misses,omitempty"`
	Started     time.Time     `json:"started"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Counts totals element statuses over all files.
func (r *RunReport) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, f := range r.Files {
		for _, e := range f.Elements {
			counts[e.Status]++
		}
	}
	return counts
}

// Failed returns the files that could not be processed.
func (r *RunReport) Failed() []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if f.Error != "" {
			out = append(out, f)
		}
	}
	return out
}
