package process

import (
	"fmt"
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Process records one finished external command.
type Process struct {
	CommandID  string
	Command    string
	Dir        string
	Status     string
	Output     string
	Error      string
	ReturnCode int
	StartTime  time.Time
	EndTime    time.Time
}

func (p *Process) Duration() time.Duration {
	return p.EndTime.Sub(p.StartTime)
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command    string
	ReturnCode int
	Stderr     string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ReturnCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ReturnCode)
}
