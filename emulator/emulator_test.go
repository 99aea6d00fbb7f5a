package emulator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/simplevm/cpu"
	"github.com/ezrec/simplevm/profile"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(0, 0)

	assert.False(emu.Verbose)
	assert.Equal(cpu.REGISTER_COUNT, emu.RegisterSize())
	assert.Equal(cpu.MEMORY_SIZE, emu.MemorySize())
	assert.Equal(0, emu.LineNo())

	_, err := emu.Run()
	assert.ErrorIs(err, ErrNoProgram)
	assert.ErrorIs(emu.Reset(), ErrNoProgram)
	assert.ErrorIs(emu.Load(nil), ErrNoProgram)
	assert.Nil(emu.Program)
}

func doRun(t *testing.T, emu *Emulator, program []string) (result *Result, err error) {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	err = emu.Load(prog)
	if err != nil {
		t.Fatal(err)
	}

	return emu.Run()
}

func TestEmulatorStack(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"LOAD #5",
		"PUSH R0",
		"LOAD #3",
		"PUSH R0",
		"POP R1",
		"POP R0",
		"ADD R0, R1",
		"POP R2",
	}

	emu := NewEmulator(0, 0)
	result, err := doRun(t, emu, program)
	assert.NoError(err)

	assert.Equal(8, result.Registers[0])
	assert.Equal(3, result.Registers[1])
	assert.Equal(cpu.HALT_POP, result.Reason)
	assert.Equal(8, result.Ticks)
	assert.Equal(8, len(result.Profile))
	for _, rec := range result.Profile {
		assert.Equal(1, rec.Count)
		assert.InDelta(12.5, rec.Percent, 1e-9)
	}
}

func TestEmulatorJump(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"JMP #2",
		"LOAD #99",
		"LOAD #7",
	}

	// Falls off the end of the program into zeroed memory (NOP) until
	// the program counter leaves memory, so use a small memory.
	emu := NewEmulator(0, 3)
	_, err := doRun(t, emu, program)
	assert.ErrorIs(err, cpu.ErrIpRange)
	assert.Equal(7, emu.Cpu.Register[0])

	assert.Equal(3, emu.Program.Len())
	assert.Equal([]int{1, 0, 1}, emu.Profiler.Counts)

	// Terminated with a RTS on an empty call stack.
	emu = NewEmulator(0, 0)
	result, err := doRun(t, emu, append(program, "RTS"))
	assert.NoError(err)
	assert.Equal(7, result.Registers[0])
	assert.Equal(cpu.HALT_RTS, result.Reason)
	assert.Equal([]int{1, 0, 1, 1}, emu.Profiler.Counts)
	assert.Equal([]profile.Record{
		{Ip: 0, LineNo: 1, Count: 1, Percent: 100.0 / 3},
		{Ip: 2, LineNo: 3, Count: 1, Percent: 100.0 / 3},
		{Ip: 3, LineNo: 4, Count: 1, Percent: 100.0 / 3},
	}, result.Profile)
}

func TestEmulatorFibonacci(t *testing.T) {
	assert := assert.New(t)

	// Stores the first 10 Fibonacci numbers at 1000 and up.
	program := []string{
		"LOAD #1000", // 0
		"MOV R10, R0",
		"LOAD #1",
		"MOV R11, R0", // R11 = 1
		"MOV R1, R0",  // a = 1
		"MOV R2, R0",  // b = 1
		"LOAD #10",
		"MOV R3, R0", // count = 10
		"MOV (R10), R1",
		"ADD R10, R11", // 9
		"MOV R4, R1",
		"ADD R4, R2", // t = a + b
		"MOV R1, R2", // a = b
		"MOV R2, R4", // b = t
		"SUB R3, R11",
		"MOV R0, R3",
		"JIH #8", // 16
		"RTS",
	}

	emu := NewEmulator(0, 0)
	emu.DumpBase = 1000
	result, err := doRun(t, emu, program)
	assert.NoError(err)

	expected := []cpu.Cell{
		{Addr: 1000, Value: 1}, {Addr: 1001, Value: 1}, {Addr: 1002, Value: 2}, {Addr: 1003, Value: 3}, {Addr: 1004, Value: 5},
		{Addr: 1005, Value: 8}, {Addr: 1006, Value: 13}, {Addr: 1007, Value: 21}, {Addr: 1008, Value: 34}, {Addr: 1009, Value: 55},
	}
	assert.Equal(expected, result.Memory)

	// The loop body ran ten times.
	assert.Equal(10, emu.Profiler.Counts[8])
	assert.Equal(1, emu.Profiler.Counts[0])
}

func TestEmulatorFault(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"LOAD #4",
		"",
		"MOV R1, R0",
		"DIV R1, R2",
		"RTS",
	}

	emu := NewEmulator(0, 0)
	result, err := doRun(t, emu, program)
	assert.Nil(result)
	assert.ErrorIs(err, cpu.ErrDivideByZero)
	assert.True(IsFault(err))

	var rt *ErrRuntime
	if assert.ErrorAs(err, &rt) {
		assert.Equal(4, rt.LineNo)
	}

	rt = &ErrRuntime{LineNo: 1000, Err: cpu.ErrDivideByZero}
	assert.True(strings.Contains(rt.Error(), "1000"))
	assert.False(strings.Contains(rt.Error(), "1,000"))

	// Halting is not a fault.
	assert.False(IsFault(errors.New("other")))
	assert.False(IsFault(ErrTickLimit))
}

func TestEmulatorTickLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(0, 0)
	emu.MaxTicks = 100
	_, err := doRun(t, emu, []string{"NOP", "JMP #0"})
	assert.ErrorIs(err, ErrTickLimit)
	assert.False(IsFault(err))
	assert.Equal(100, emu.Cpu.Ticks)
	assert.Equal(100, emu.Profiler.Total())
}

func TestEmulatorReset(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(0, 0)
	result, err := doRun(t, emu, []string{"LOAD #9", "MOV R5, R0", "RTS"})
	assert.NoError(err)
	assert.Equal(9, result.Registers[5])

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)

	err = emu.Reset()
	assert.NoError(err)
	assert.Equal(0, emu.Cpu.Register[5])
	assert.Equal(0, emu.Profiler.Total())
	assert.Equal(1, emu.LineNo())

	done, err = emu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(9, emu.Cpu.Register[0])

	result, err = emu.Run()
	assert.NoError(err)
	assert.Equal(9, result.Registers[5])
	assert.Equal(3, result.Ticks)
}

func TestEmulatorTooLarge(t *testing.T) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	prog, err := asm.Assemble([]string{"NOP", "NOP", "NOP"})
	assert.NoError(err)

	emu := NewEmulator(0, 2)
	err = emu.Load(prog)
	assert.ErrorIs(err, cpu.ErrProgramTooLarge)
	assert.Nil(emu.Program)
}

func TestEmulatorIsolation(t *testing.T) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	prog, err := asm.Assemble([]string{"LOAD #1", "MOV R1, R0", "MOV (R1), R1", "RTS"})
	assert.NoError(err)

	a := NewEmulator(0, 0)
	b := NewEmulator(0, 0)
	assert.NoError(a.Load(prog))
	assert.NoError(b.Load(prog))

	_, err = a.Run()
	assert.NoError(err)

	// Self modification in one machine is not seen by the program or the other machine.
	assert.Equal(1, a.Cpu.Memory[1])
	assert.Equal(int(cpu.MakeCodeMov(1, 0, false, false)), b.Cpu.Memory[1])
	assert.Equal(cpu.MakeCodeMov(1, 0, false, false), prog.Opcodes[1].Code)
}
