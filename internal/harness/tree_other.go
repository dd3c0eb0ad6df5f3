//go:build !linux

package harness

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func newProcessTree() ProcessTree {
	return fallbackTree{}
}

func setProcessGroup(*exec.Cmd) {}

func processGroup(int) int { return 0 }

// fallbackTree supervises only the direct child. Descendant enumeration
// and memory accounting need /proc; without them the timeout ceiling
// still applies.
type fallbackTree struct{}

func (fallbackTree) Alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func (t fallbackTree) Tree(root int) []int {
	if !t.Alive(root) {
		return nil
	}
	return []int{root}
}

func (fallbackTree) ResidentBytes([]int) uint64 { return 0 }

func (fallbackTree) TotalMemory() (uint64, error) {
	return 0, errors.New("total memory unavailable on this platform")
}

func (fallbackTree) KillTree(_, root int) int {
	proc, err := os.FindProcess(root)
	if err != nil {
		return 0
	}
	if proc.Kill() == nil {
		return 1
	}
	return 0
}
