package command

import "strings"

// Result is the observable outcome of one remote command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports a zero exit status.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Diagnostic returns the text used for failure classification: stderr, else stdout.
func (r Result) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}
