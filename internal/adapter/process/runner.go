package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Executor runs external commands. Engines depend on this so tests can
// replace the real binaries.
type Executor interface {
	Run(ctx context.Context, command []string, opts Options) (*Process, error)
}

type Options struct {
	// Dir is the working directory of the command.
	Dir string
	// Env is appended to the current environment.
	Env []string
}

type Runner struct {
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewRunner creates a runner. A zero timeout means commands may run for as
// long as the context allows.
func NewRunner(log logrus.FieldLogger, timeout time.Duration) *Runner {
	return &Runner{log: log, timeout: timeout}
}

func (r *Runner) Run(ctx context.Context, command []string, opts Options) (*Process, error) {
	if len(command) == 0 {
		return nil, errors.New("empty command")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	process := &Process{
		CommandID: uuid.New().String(),
		Command:   strings.Join(command, " "),
		Dir:       opts.Dir,
	}
	log := r.log.WithFields(logrus.Fields{
		"command_id": process.CommandID,
		"command":    process.Command,
	})

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("starting command")
	process.StartTime = time.Now()
	err := cmd.Run()
	process.EndTime = time.Now()

	process.Output = strings.TrimSpace(stdout.String())
	process.Error = strings.TrimSpace(stderr.String())
	process.ReturnCode = cmd.ProcessState.ExitCode()

	if err != nil {
		process.Status = StatusFailed
		log.WithFields(logrus.Fields{
			"return_code": process.ReturnCode,
			"duration":    process.Duration(),
		}).Debug("command failed")

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return process, &ExitError{Command: command[0], ReturnCode: process.ReturnCode, Stderr: process.Error}
		}
		return process, fmt.Errorf("failed to run %s: %w", command[0], err)
	}

	process.Status = StatusSuccess
	log.WithField("duration", process.Duration()).Debug("command finished")
	return process, nil
}
