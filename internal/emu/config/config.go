// Package config describes the immutable configuration record the emulator
// core is started with. Loading it from a file, flags, or a UI form is the
// caller's job; this package only validates the shape.
package config

import (
	orizonerr "github.com/orizon-lang/orizon-emu/internal/errors"
)

// SchedulerKind selects the dispatch policy.
type SchedulerKind int

const (
	FCFS SchedulerKind = iota
	RoundRobin
)

func (k SchedulerKind) String() string {
	switch k {
	case FCFS:
		return "fcfs"
	case RoundRobin:
		return "rr"
	default:
		return "unknown"
	}
}

// Config is the validated, immutable-after-init configuration record
// described in spec.md §3.
type Config struct {
	NumCPU           int
	SchedulerKind    SchedulerKind
	QuantumCycles    int
	BatchProcessFreq int
	MinIns           int
	MaxIns           int
	DelaysPerExec    int
	MaxOverallMem    uint32
	MemPerFrame      uint32
	MinMemPerProc    uint32
	MaxMemPerProc    uint32
}

// Default returns a small but fully valid configuration, suitable for demos
// and as a base the CLI can override with flags.
func Default() Config {
	return Config{
		NumCPU:           4,
		SchedulerKind:    RoundRobin,
		QuantumCycles:    5,
		BatchProcessFreq: 1,
		MinIns:           1000,
		MaxIns:           2000,
		DelaysPerExec:    0,
		MaxOverallMem:    16384,
		MemPerFrame:      256,
		MinMemPerProc:    64,
		MaxMemPerProc:    4096,
	}
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// Validate rejects the configuration on the first violated invariant from
// spec.md §3/§6. It never mutates c.
func (c Config) Validate() *orizonerr.StandardError {
	if c.NumCPU < 1 || c.NumCPU > 128 {
		return orizonerr.ConfigInvalid("num_cpu", "must be in [1, 128]")
	}
	if c.QuantumCycles < 1 {
		return orizonerr.ConfigInvalid("quantum_cycles", "must be >= 1")
	}
	if c.BatchProcessFreq < 1 {
		return orizonerr.ConfigInvalid("batch_process_freq", "must be >= 1")
	}
	if c.DelaysPerExec < 0 {
		return orizonerr.ConfigInvalid("delays_per_exec", "must be >= 0")
	}
	if c.MinIns > c.MaxIns {
		return orizonerr.ConfigInvalid("min_ins", "must be <= max_ins")
	}
	for _, f := range []struct {
		name string
		val  uint32
	}{
		{"max_overall_mem", c.MaxOverallMem},
		{"mem_per_frame", c.MemPerFrame},
		{"min_mem_per_proc", c.MinMemPerProc},
		{"max_mem_per_proc", c.MaxMemPerProc},
	} {
		if f.val < 64 || f.val > 65536 || !isPowerOfTwo(f.val) {
			return orizonerr.ConfigInvalid(f.name, "must be a power of two in [64, 65536]")
		}
	}
	if c.MaxOverallMem%c.MemPerFrame != 0 {
		return orizonerr.ConfigInvalid("max_overall_mem", "must be a multiple of mem_per_frame")
	}
	if c.MinMemPerProc > c.MaxMemPerProc {
		return orizonerr.ConfigInvalid("min_mem_per_proc", "must be <= max_mem_per_proc")
	}
	return nil
}

// FrameCount is the number of physical frames the memory manager sizes its
// frame table to.
func (c Config) FrameCount() int {
	return int(c.MaxOverallMem / c.MemPerFrame)
}
