//go:build linux

package harness

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func newProcessTree() ProcessTree {
	return linuxTree{}
}

// setProcessGroup makes the child the leader of a fresh process group so
// the whole tree shares one addressable id.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func processGroup(pid int) int {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return 0
	}
	return pgid
}

// linuxTree inspects processes through /proc.
type linuxTree struct{}

func (linuxTree) Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// Tree walks /proc once to build a parent map, then collects root's
// descendants breadth-first. A worker that double-forks out of the group
// still shows up here through its original parentage chain only while its
// parent lives; the group signal in KillTree covers the common case.
func (t linuxTree) Tree(root int) []int {
	if !t.Alive(root) {
		return nil
	}
	children := make(map[int][]int)
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return []int{root}
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		ppid, ok := statPPID(pid)
		if !ok {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}

	tree := []int{root}
	for i := 0; i < len(tree); i++ {
		tree = append(tree, children[tree[i]]...)
	}
	return tree
}

func (linuxTree) ResidentBytes(pids []int) uint64 {
	pageSize := uint64(os.Getpagesize())
	var total uint64
	for _, pid := range pids {
		data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/statm")
		if err != nil {
			continue
		}
		fields := strings.Fields(string(data))
		if len(fields) < 2 {
			continue
		}
		resident, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		total += resident * pageSize
	}
	return total
}

func (linuxTree) TotalMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

func (t linuxTree) KillTree(pgid, root int) int {
	killed := 0
	if pgid > 0 {
		if unix.Kill(-pgid, unix.SIGKILL) == nil {
			killed++
		}
	}
	// Descendants that left the group survive the group signal.
	for _, pid := range t.Tree(root) {
		if unix.Kill(pid, unix.SIGKILL) == nil {
			killed++
		}
	}
	return killed
}

// statPPID reads the parent pid from /proc/<pid>/stat, skipping past the
// parenthesised command name which may itself contain spaces.
func statPPID(pid int) (int, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, false
	}
	text := string(data)
	end := strings.LastIndexByte(text, ')')
	if end < 0 || end+2 >= len(text) {
		return 0, false
	}
	fields := strings.Fields(text[end+2:])
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}
