package harness

// ProcessTree abstracts tree inspection and termination so the monitoring
// loop never branches on platform.
type ProcessTree interface {
	// Alive reports whether pid refers to a live process.
	Alive(pid int) bool
	// Tree returns root plus every live descendant, or nil when root is
	// already gone.
	Tree(root int) []int
	// ResidentBytes sums resident memory across pids. Processes that
	// disappear mid-sum contribute zero.
	ResidentBytes(pids []int) uint64
	// TotalMemory returns total system memory in bytes.
	TotalMemory() (uint64, error)
	// KillTree force-kills the process group pgid and any surviving
	// members of root's tree, returning the number of processes signalled.
	KillTree(pgid, root int) int
}
