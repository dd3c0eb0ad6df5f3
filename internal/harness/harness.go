package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/dustin/go-humanize"
)

// Outcome classifies how a supervised run ended.
type Outcome string

const (
	// OutcomeCompleted means the worker exited on its own.
	OutcomeCompleted Outcome = "completed"
	// OutcomeTerminated means the supervisor killed the tree over memory.
	OutcomeTerminated Outcome = "terminated"
	// OutcomeTimedOut means the supervisor killed the tree over wall-clock time.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeInterrupted means the caller's context ended the run.
	OutcomeInterrupted Outcome = "interrupted"
)

type state int

const (
	stateIdle state = iota
	stateLaunching
	stateMonitoring
)

// Limits are the ceilings enforced on the supervised tree.
type Limits struct {
	// MemoryFraction of total system memory used as the ceiling when no
	// absolute limit is set.
	MemoryFraction float64
	// MemoryLimitBytes is an absolute ceiling overriding MemoryFraction.
	MemoryLimitBytes uint64
	// Timeout is the wall-clock ceiling for the whole run.
	Timeout time.Duration
	// PollInterval is the spacing between resource inspections.
	PollInterval time.Duration
}

// Result reports one supervised run.
type Result struct {
	Outcome    Outcome
	Reason     string
	ExitCode   int
	PeakMemory uint64
	Elapsed    time.Duration
}

// Supervisor runs a worker as the leader of its own process group and
// enforces memory and time ceilings over the worker plus every live
// descendant. The worker is opaque: the supervisor only ever inspects its
// tree from outside.
type Supervisor struct {
	lockDir string
	limits  Limits
	tree    ProcessTree
	logger  *slog.Logger
	state   state
}

// New builds a supervisor writing its lock file under lockDir.
func New(lockDir string, limits Limits, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if limits.PollInterval <= 0 {
		limits.PollInterval = 10 * time.Second
	}
	if limits.MemoryFraction <= 0 || limits.MemoryFraction > 1 {
		limits.MemoryFraction = 0.75
	}
	return &Supervisor{
		lockDir: lockDir,
		limits:  limits,
		tree:    newProcessTree(),
		logger:  logger,
		state:   stateIdle,
	}
}

// memoryCeiling resolves the ceiling in bytes for this machine.
func (s *Supervisor) memoryCeiling() (uint64, error) {
	if s.limits.MemoryLimitBytes > 0 {
		return s.limits.MemoryLimitBytes, nil
	}
	total, err := s.tree.TotalMemory()
	if err != nil {
		return 0, fmt.Errorf("determine total memory: %w", err)
	}
	return uint64(float64(total) * s.limits.MemoryFraction), nil
}

// Run launches name with args and supervises it to completion. The
// worker's stdout and stderr pass through untouched so progress streams
// reach the caller. Run returns an error only when the worker could not be
// launched or supervised; a killed worker is a Result, not an error.
func (s *Supervisor) Run(ctx context.Context, name string, args ...string) (Result, error) {
	ceiling, err := s.memoryCeiling()
	if err != nil {
		return Result{}, err
	}

	s.state = stateLaunching
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		s.state = stateIdle
		return Result{}, fmt.Errorf("launch worker: %w", err)
	}
	pid := cmd.Process.Pid
	pgid := processGroup(pid)

	if err := writeLock(s.lockDir, lockInfo{PGID: pgid, PID: pid, StartedAt: start.UTC()}); err != nil {
		s.logger.Warn("could not write supervision lock", "error", err)
	}
	defer removeLock(s.lockDir)

	s.logger.Info("supervising worker",
		"pid", pid,
		"pgid", pgid,
		"memory_limit", humanize.IBytes(ceiling),
		"timeout", s.limits.Timeout)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	s.state = stateMonitoring
	defer func() { s.state = stateIdle }()

	ticker := time.NewTicker(s.limits.PollInterval)
	defer ticker.Stop()

	var peak uint64
	for {
		select {
		case waitErr := <-done:
			return s.finish(OutcomeCompleted, "worker exited", waitErr, peak, time.Since(start)), nil

		case <-ctx.Done():
			s.killTree(pgid, pid)
			<-done
			result := s.finish(OutcomeInterrupted, "supervision interrupted", nil, peak, time.Since(start))
			result.ExitCode = -1
			return result, ctx.Err()

		case <-ticker.C:
			pids := s.tree.Tree(pid)
			if len(pids) == 0 {
				// Tree gone between polls; let Wait deliver the verdict.
				continue
			}
			mem := s.tree.ResidentBytes(pids)
			if mem > peak {
				peak = mem
			}
			elapsed := time.Since(start)
			s.logger.Info("worker resource usage",
				"memory", humanize.IBytes(mem),
				"processes", len(pids),
				"elapsed", elapsed.Round(time.Second))

			if mem > ceiling {
				reason := fmt.Sprintf("memory ceiling exceeded (%s > %s)", humanize.IBytes(mem), humanize.IBytes(ceiling))
				s.logger.Warn("killing worker tree", "reason", reason)
				s.killTree(pgid, pid)
				<-done
				result := s.finish(OutcomeTerminated, reason, nil, peak, time.Since(start))
				result.ExitCode = -1
				return result, nil
			}
			if s.limits.Timeout > 0 && elapsed > s.limits.Timeout {
				reason := fmt.Sprintf("timeout exceeded (%s > %s)", elapsed.Round(time.Second), s.limits.Timeout)
				s.logger.Warn("killing worker tree", "reason", reason)
				s.killTree(pgid, pid)
				<-done
				result := s.finish(OutcomeTimedOut, reason, nil, peak, time.Since(start))
				result.ExitCode = -1
				return result, nil
			}
		}
	}
}

func (s *Supervisor) finish(outcome Outcome, reason string, waitErr error, peak uint64, elapsed time.Duration) Result {
	result := Result{
		Outcome:    outcome,
		Reason:     reason,
		PeakMemory: peak,
		Elapsed:    elapsed,
	}
	if outcome == OutcomeCompleted {
		result.ExitCode = exitCode(waitErr)
		if result.ExitCode != 0 {
			result.Reason = fmt.Sprintf("worker exited with status %d", result.ExitCode)
		}
	}
	s.logger.Info("supervision finished",
		"outcome", string(result.Outcome),
		"reason", result.Reason,
		"peak_memory", humanize.IBytes(result.PeakMemory),
		"elapsed", result.Elapsed.Round(time.Second))
	return result
}

// killTree force-kills every process in the supervised tree. The process
// group is signalled first; any survivors (a descendant that changed its
// group) are enumerated and killed individually.
func (s *Supervisor) killTree(pgid, root int) {
	killed := s.tree.KillTree(pgid, root)
	s.logger.Info("killed worker tree", "processes", killed)
}

func exitCode(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
