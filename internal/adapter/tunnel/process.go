package tunnel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"tunneltap/internal/domain"
)

// Runner launches the tunnel CLI as a child process with both output
// streams captured as pipes so the supervisor can classify lines.
type Runner struct {
	log domain.Logger
}

// NewRunner creates a process runner.
func NewRunner(log domain.Logger) *Runner {
	return &Runner{log: log}
}

// Start launches binPath with args. Stdin is not shared: the tunnel CLI
// must never compete with the supervisor for the terminal.
func (r *Runner) Start(binPath string, args []string) (domain.TunnelProcess, error) {
	cmd := exec.Command(binPath, args...)
	cmd.Stdin = nil
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tunnel: %w", err)
	}
	r.log.Info("tunnel process started", "pid", cmd.Process.Pid, "bin", binPath)

	return &process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *process) Output() io.Reader { return p.stdout }
func (p *process) Errors() io.Reader { return p.stderr }

// Wait blocks until the child exits. Callers must have drained both pipes
// first; cmd.Wait closes them. Non-zero exits are reported through the
// code, not the error.
func (p *process) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Kill sends a hard kill to the child. The exit itself surfaces via Wait.
func (p *process) Kill() domain.KillResult {
	err := p.cmd.Process.Kill()
	switch {
	case err == nil:
		return domain.KillResult{Outcome: domain.KillSignaled}
	case errors.Is(err, os.ErrProcessDone):
		return domain.KillResult{Outcome: domain.KillAlreadyExited}
	default:
		return domain.KillResult{Outcome: domain.KillFailed, Err: err}
	}
}
