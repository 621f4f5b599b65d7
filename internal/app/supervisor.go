package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"tunneltap/internal/domain"
)

// Fixed launch contract of the tunnel CLI.
const (
	tunnelSubcommand = "tunnel"
	licenseFlag      = "--accept-server-license-terms"
	verboseFlag      = "--verbose"
	dataDirFlag      = "--cli-data-dir"
	nameFlag         = "--name"
)

// connState tracks the two-phase timeout machine. At most one of the
// connection and session timers is live at a time; the state value decides
// which.
type connState int

const (
	awaitingConnection connState = iota
	connected
)

// SuperviseConfig bounds one tunnel session.
type SuperviseConfig struct {
	DataDir    string
	TunnelName string
	Verbose    bool

	// Watch enables the connection/session state machine. When disabled,
	// KeepAlive alone bounds total runtime and the tunnel is shut down
	// cleanly when it elapses.
	Watch          bool
	ConnectTimeout time.Duration
	SessionTimeout time.Duration
	KeepAlive      time.Duration
}

// TunnelArgs returns the argument vector the tunnel binary is launched with.
func TunnelArgs(cfg SuperviseConfig) []string {
	args := []string{tunnelSubcommand, licenseFlag}
	if cfg.Verbose {
		args = append(args, verboseFlag)
	}
	args = append(args, dataDirFlag, cfg.DataDir)
	if cfg.TunnelName != "" {
		args = append(args, nameFlag, cfg.TunnelName)
	}
	return args
}

// Supervisor owns the tunnel child process for its whole lifetime: spawn,
// output classification, timeout enforcement, and exit translation.
type Supervisor struct {
	runner domain.TunnelRunner
	log    domain.Logger
}

// NewSupervisor creates a Supervisor.
func NewSupervisor(runner domain.TunnelRunner, log domain.Logger) *Supervisor {
	return &Supervisor{runner: runner, log: log}
}

// streamLine is one complete line from the child, tagged by origin stream.
type streamLine struct {
	text   string
	stderr bool
}

type exitResult struct {
	code int
	err  error
}

// Supervise launches the binary and runs the session to completion.
//
// All timer and state mutation happens on this goroutine's select loop, so
// a single line can never both trigger a timeout kill and count as a
// connection detection. A fired timeout kills the child best-effort and
// keeps looping; the child's actual death always arrives through the same
// exit path, which cancels whichever timers are still live before the exit
// code is inspected.
func (s *Supervisor) Supervise(binPath string, cfg SuperviseConfig) error {
	proc, err := s.runner.Start(binPath, TunnelArgs(cfg))
	if err != nil {
		return fmt.Errorf("spawn tunnel: %w", err)
	}

	lines := make(chan streamLine, 64)
	outDone := make(chan struct{})
	errDone := make(chan struct{})
	go readLines(proc.Output(), false, lines, outDone)
	go readLines(proc.Errors(), true, lines, errDone)

	exited := make(chan exitResult, 1)
	go func() {
		// Both pipes must be drained before Wait; Wait tears them down.
		<-outDone
		<-errDone
		code, werr := proc.Wait()
		exited <- exitResult{code: code, err: werr}
	}()

	var connTimer, sessTimer, keepTimer *time.Timer
	var connC, sessC, keepC <-chan time.Time
	if cfg.Watch {
		connTimer = time.NewTimer(cfg.ConnectTimeout)
		connC = connTimer.C
		s.log.Info("awaiting client connection", "timeout", cfg.ConnectTimeout.String())
	} else {
		keepTimer = time.NewTimer(cfg.KeepAlive)
		keepC = keepTimer.C
		s.log.Info("keep-alive session", "duration", cfg.KeepAlive.String())
	}
	stopTimers := func() {
		for _, t := range []*time.Timer{connTimer, sessTimer, keepTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}

	state := awaitingConnection
	var timeoutErr error
	keepAliveDone := false

	for {
		select {
		case ln := <-lines:
			if ln.stderr {
				s.log.Error(ln.text)
				continue
			}
			switch classifyLine(ln.text) {
			case classUserVisible:
				s.log.Info(ln.text)
			case classConnected:
				s.log.Debug(ln.text)
				if cfg.Watch && state == awaitingConnection {
					state = connected
					connTimer.Stop()
					connC = nil
					sessTimer = time.NewTimer(cfg.SessionTimeout)
					sessC = sessTimer.C
					s.log.Info("client connected", "session_timeout", cfg.SessionTimeout.String())
				}
			default:
				s.log.Debug(ln.text)
			}

		case <-connC:
			connC = nil
			timeoutErr = fmt.Errorf("Connection timeout: no client connected within %s", cfg.ConnectTimeout)
			s.kill(proc, "connection timeout")

		case <-sessC:
			sessC = nil
			timeoutErr = fmt.Errorf("Session timeout: tunnel exceeded maximum duration of %s", cfg.SessionTimeout)
			s.kill(proc, "session timeout")

		case <-keepC:
			keepC = nil
			keepAliveDone = true
			s.log.Info("keep-alive elapsed, shutting tunnel down", "duration", cfg.KeepAlive.String())
			s.kill(proc, "keep-alive elapsed")

		case res := <-exited:
			stopTimers()
			s.flush(lines)
			switch {
			case timeoutErr != nil:
				return timeoutErr
			case res.err != nil:
				return fmt.Errorf("await tunnel: %w", res.err)
			case keepAliveDone:
				s.log.Info("tunnel shut down after keep-alive")
				return nil
			case res.code != 0:
				return fmt.Errorf("tunnel exited with code %d", res.code)
			default:
				s.log.Info("tunnel exited cleanly")
				return nil
			}
		}
	}
}

// kill requests best-effort termination. Failures are logged, never raised:
// the timeout verdict stands regardless, and the exit path reports the rest.
func (s *Supervisor) kill(proc domain.TunnelProcess, reason string) {
	res := proc.Kill()
	switch res.Outcome {
	case domain.KillSignaled:
		s.log.Debug("kill signaled", "reason", reason)
	case domain.KillAlreadyExited:
		s.log.Debug("tunnel already exited", "reason", reason)
	default:
		s.log.Warn("kill failed", "reason", reason, "err", res.Err)
	}
}

// flush logs any lines still buffered after exit, without state transitions.
func (s *Supervisor) flush(lines <-chan streamLine) {
	for {
		select {
		case ln := <-lines:
			if ln.stderr {
				s.log.Error(ln.text)
			} else if classifyLine(ln.text) == classUserVisible {
				s.log.Info(ln.text)
			} else {
				s.log.Debug(ln.text)
			}
		default:
			return
		}
	}
}

// readLines pumps one stream into the line channel and closes done at EOF.
func readLines(r io.Reader, stderr bool, lines chan<- streamLine, done chan<- struct{}) {
	defer close(done)
	var rem string
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			var out []string
			out, rem = splitLines(rem, buf[:n])
			for _, text := range out {
				lines <- streamLine{text: text, stderr: stderr}
			}
		}
		if err != nil {
			if trailing := strings.TrimSuffix(rem, "\r"); trailing != "" {
				lines <- streamLine{text: trailing, stderr: stderr}
			}
			return
		}
	}
}
