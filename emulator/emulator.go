// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"log"
	"slices"

	"github.com/ezrec/simplevm/cpu"
	"github.com/ezrec/simplevm/profile"
)

// Emulator state. CPU + loaded program + profiler.
type Emulator struct {
	Verbose  bool              // If set, enables verbose logging.
	*cpu.Cpu                   // Reference to the CPU simulation.
	Program  *cpu.Program      // Reference to the currently loaded program listing.
	Profiler *profile.Profiler // Fetch counts for the loaded program.

	MaxTicks int // If positive, the run fails after this many instructions.
	DumpBase int // Lowest address reported in the memory dump.
}

// Result is the machine state after a run.
type Result struct {
	Reason    cpu.HaltReason   // Why the machine halted.
	Ticks     int              // Instructions executed.
	Registers []int            // Final register file.
	Memory    []cpu.Cell       // Non-zero memory at or above DumpBase.
	Profile   []profile.Record // Fetch frequency per instruction.
}

// NewEmulator creates a new emulator. Non-positive sizes select the defaults.
func NewEmulator(registers, memory int) (emu *Emulator) {
	emu = &Emulator{
		Cpu: cpu.NewCpu(registers, memory),
	}

	return
}

// Load installs a program: the image is copied into a reset CPU,
// and the profiler is sized to the program.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	if prog == nil {
		err = ErrNoProgram
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Load(prog.Image())
	if err != nil {
		return
	}

	emu.Program = prog
	emu.Profiler = profile.NewProfiler(prog.Len())
	emu.Cpu.Profiler = emu.Profiler

	if emu.Verbose {
		log.Printf("emulator: loaded %d instructions", prog.Len())
	}

	return
}

// Reset reloads the current program and zeros the profiler.
func (emu *Emulator) Reset() (err error) {
	if emu.Program == nil {
		err = ErrNoProgram
		return
	}

	return emu.Load(emu.Program)
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}
	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	if emu.Cpu.Halted {
		done = true
		return
	}

	if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
		err = ErrTickLimit
		return
	}

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run executes the loaded program until it halts, and returns the final state.
func (emu *Emulator) Run() (result *Result, err error) {
	if emu.Program == nil {
		err = ErrNoProgram
		return
	}

	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	result = emu.Result()

	if emu.Verbose {
		log.Printf("emulator: halted (%v) after %d ticks", result.Reason, result.Ticks)
		for _, cell := range result.Memory {
			log.Printf("emulator: [%04d] = %d", cell.Addr, cell.Value)
		}
	}

	return
}

// Result snapshots the current machine state.
func (emu *Emulator) Result() (result *Result) {
	result = &Result{
		Reason:    emu.Cpu.Reason,
		Ticks:     emu.Cpu.Ticks,
		Registers: slices.Clone(emu.Cpu.Register),
		Memory:    emu.Cpu.Dump(emu.DumpBase),
	}
	if emu.Profiler != nil {
		result.Profile = emu.Profiler.Report()
	}

	return
}

// IsFault returns true if err is an execution fault rather than an
// emulator level failure.
func IsFault(err error) bool {
	var fault *cpu.ErrFault
	return errors.As(err, &fault)
}
