// Package harness supervises a worker process tree under memory and time
// ceilings.
//
// The worker is launched as the leader of its own process group and its
// whole tree is polled for aggregate resident memory. Crossing the memory
// ceiling or the wall-clock timeout kills every process in the tree. A
// lock file records the supervised tree so a separate invocation can kill
// it externally, even after the supervisor itself has died.
package harness
