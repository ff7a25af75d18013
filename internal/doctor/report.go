package doctor

import (
	"fmt"
	"io"

	"github.com/seoultechpse/fenicsx-setup/internal/model"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusMiss Status = "MISS"
	StatusFail Status = "FAIL"
)

// Result is one line of the report.
type Result struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`

	// Code is the exit code the bootstrap would fail with. Only set for
	// MISS and FAIL results.
	Code model.ExitCode `json:"code,omitempty"`
}

// Failed reports whether the result blocks the bootstrap.
func (r Result) Failed() bool {
	return r.Status == StatusMiss || r.Status == StatusFail
}

// Report is the ordered list of check results.
type Report struct {
	Results []Result `json:"results"`
}

func (r *Report) add(name string, status Status, code model.ExitCode, format string, args ...any) {
	res := Result{Name: name, Status: status, Detail: fmt.Sprintf(format, args...)}
	if res.Failed() {
		res.Code = code
	}
	r.Results = append(r.Results, res)
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return false
		}
	}
	return true
}

// Err returns nil for a healthy report. Otherwise it returns a CLIError
// carrying the exit code of the first failed check.
func (r Report) Err() error {
	var first *Result
	failed := 0
	for i := range r.Results {
		if r.Results[i].Failed() {
			if first == nil {
				first = &r.Results[i]
			}
			failed++
		}
	}
	if first == nil {
		return nil
	}
	return model.NewCLIError(first.Code,
		fmt.Sprintf("%d check(s) failed, first: %s", failed, first.Name))
}

// Write prints the report, one "[STAT] name: detail" line per check.
func (r Report) Write(w io.Writer) {
	for _, res := range r.Results {
		fmt.Fprintf(w, "  [%-4s] %s", pad(res.Status), res.Name)
		if res.Detail != "" {
			fmt.Fprintf(w, ": %s", res.Detail)
		}
		fmt.Fprintln(w)
	}
}

// pad centres two-letter statuses so the brackets line up.
func pad(s Status) string {
	if len(s) == 2 {
		return " " + string(s) + " "
	}
	return string(s)
}
