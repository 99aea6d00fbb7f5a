package cpu

import (
	"fmt"
	"log"
	"strings"
)

// Default machine dimensions, used when a non-positive size is requested.
const (
	REGISTER_COUNT = 16   // Default register file size.
	MEMORY_SIZE    = 4096 // Default memory size, in words.
)

// HaltReason records why a Cpu stopped.
type HaltReason int

const (
	HALT_NONE   = HaltReason(0) // running
	HALT_POP    = HaltReason(1) // pop
	HALT_RTS    = HaltReason(2) // rts
	HALT_OPCODE = HaltReason(3) // opcode
)

var haltName = [...]string{"running", "pop", "rts", "opcode"}

func (hr HaltReason) String() string {
	if hr < 0 || int(hr) >= len(haltName) {
		return fmt.Sprintf("HaltReason(%d)", int(hr))
	}
	return haltName[hr]
}

// Profiler observes every instruction fetch.
type Profiler interface {
	Fetch(ip int)
}

// Cell is a single memory location and its content.
type Cell struct {
	Addr  int
	Value int
}

// Cpu is the simulation context for the register machine.
type Cpu struct {
	Verbose  bool     // Set to enable verbose logging.
	Profiler Profiler // If set, notified of every instruction fetch.

	Pc       int   // Address of the next instruction to fetch.
	Register []int // Register bank.
	Memory   []int // Program and data memory.
	Stack    Stack // Operand stack, for PUSH and POP.
	Calls    Stack // Call stack of return addresses, for JSR and RTS.

	Halted bool       // Set once the machine reaches a halt condition.
	Reason HaltReason // Why the machine halted.

	Ticks int // Executed instruction counter.
}

// NewCpu creates a new CPU with the given register and memory sizes.
// Non-positive sizes select the defaults.
func NewCpu(registers, memory int) (cpu *Cpu) {
	if registers <= 0 {
		registers = REGISTER_COUNT
	}
	if memory <= 0 {
		memory = MEMORY_SIZE
	}

	cpu = &Cpu{
		Register: make([]int, registers),
		Memory:   make([]int, memory),
	}

	return
}

// RegisterSize returns the number of registers.
func (cpu *Cpu) RegisterSize() int {
	return len(cpu.Register)
}

// MemorySize returns the number of memory words.
func (cpu *Cpu) MemorySize() int {
	return len(cpu.Memory)
}

// Reset the CPU state.
// - Clears the registers, memory and both stacks.
// - Zeros the program counter and tick counter.
// - Leaves the halted state.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register)
	clear(cpu.Memory)
	cpu.Stack.Reset()
	cpu.Calls.Reset()
	cpu.Pc = 0
	cpu.Ticks = 0
	cpu.Halted = false
	cpu.Reason = HALT_NONE
}

// Load resets the CPU and copies an image into the low memory addresses.
func (cpu *Cpu) Load(image []Code) (err error) {
	if len(image) > len(cpu.Memory) {
		err = ErrProgramTooLarge
		return
	}

	cpu.Reset()

	for ip, code := range image {
		cpu.Memory[ip] = int(code)
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%5s: %04d\n", "pc", cpu.Pc)
	fmt.Fprintf(&sb, "%5s: %v\n", "halt", cpu.Reason)
	for _, st := range []struct {
		name  string
		stack *Stack
	}{{"stack", &cpu.Stack}, {"calls", &cpu.Calls}} {
		top, ok := st.stack.Peek()
		if ok {
			fmt.Fprintf(&sb, "%5s: %d (depth %d)\n", st.name, top, st.stack.Len())
		} else {
			fmt.Fprintf(&sb, "%5s: ----\n", st.name)
		}
	}

	half := (len(cpu.Register) + 1) / 2
	for n := range half {
		fmt.Fprintf(&sb, "%5s: %-12d", fmt.Sprintf("R%d", n), cpu.Register[n])
		if m := n + half; m < len(cpu.Register) {
			fmt.Fprintf(&sb, "%5s: %d", fmt.Sprintf("R%d", m), cpu.Register[m])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Dump returns all non-zero memory cells at or above base, in address order.
func (cpu *Cpu) Dump(base int) (cells []Cell) {
	for addr := max(base, 0); addr < len(cpu.Memory); addr++ {
		if value := cpu.Memory[addr]; value != 0 {
			cells = append(cells, Cell{Addr: addr, Value: value})
		}
	}
	return
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if cpu.Pc < 0 || cpu.Pc >= len(cpu.Memory) {
		err = &ErrFault{Ip: cpu.Pc, Err: ErrIpRange}
		return
	}

	if cpu.Profiler != nil {
		cpu.Profiler.Fetch(cpu.Pc)
	}

	// Only the low 16 bits of a memory word are an instruction.
	code = Code(uint16(cpu.Memory[cpu.Pc]))

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	cpu.Ticks += 1

	err = cpu.Execute(code)

	return
}

// Run executes instructions until the CPU halts or faults.
func (cpu *Cpu) Run() (err error) {
	for !cpu.Halted {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// halt stops the machine without advancing the program counter.
func (cpu *Cpu) halt(reason HaltReason) {
	if cpu.Verbose {
		log.Printf("cpu: halt at %04d (%v)", cpu.Pc, reason)
	}
	cpu.Halted = true
	cpu.Reason = reason
}

func (cpu *Cpu) getRegister(reg int) (value int, err error) {
	if reg < 0 || reg >= len(cpu.Register) {
		err = ErrRegisterRange
		return
	}
	value = cpu.Register[reg]
	return
}

func (cpu *Cpu) setRegister(reg int, value int) (err error) {
	if reg < 0 || reg >= len(cpu.Register) {
		err = ErrRegisterRange
		return
	}
	cpu.Register[reg] = value
	return
}

func (cpu *Cpu) getMemory(addr int) (value int, err error) {
	if addr < 0 || addr >= len(cpu.Memory) {
		err = ErrMemoryRange
		return
	}
	value = cpu.Memory[addr]
	return
}

func (cpu *Cpu) setMemory(addr int, value int) (err error) {
	if addr < 0 || addr >= len(cpu.Memory) {
		err = ErrMemoryRange
		return
	}
	cpu.Memory[addr] = value
	return
}

// Execute executes a single decoded instruction at the program counter.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = &ErrFault{Ip: cpu.Pc, Code: code, Err: err}
		}
	}()

	if cpu.Verbose {
		log.Printf("cpu: %04d: %v", cpu.Pc, code)
	}

	next_pc := cpu.Pc + 1

	switch op := code.Op(); op {
	case OP_NOP:
		// pass
	case OP_LOAD:
		err = cpu.setRegister(0, code.Imm())
	case OP_MOV:
		var value int
		var addr int
		if code.FromMem() {
			addr, err = cpu.getRegister(code.Ry())
			if err != nil {
				return
			}
			value, err = cpu.getMemory(addr)
		} else {
			value, err = cpu.getRegister(code.Ry())
		}
		if err != nil {
			return
		}
		if code.ToMem() {
			addr, err = cpu.getRegister(code.Rx())
			if err != nil {
				return
			}
			err = cpu.setMemory(addr, value)
		} else {
			err = cpu.setRegister(code.Rx(), value)
		}
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV:
		var a, b int
		a, err = cpu.getRegister(code.Rx())
		if err != nil {
			return
		}
		b, err = cpu.getRegister(code.Ry())
		if err != nil {
			return
		}
		var output int
		output, err = cpu.doAlu(op, a, b)
		if err != nil {
			return
		}
		err = cpu.setRegister(code.Rx(), output)
	case OP_PUSH:
		var value int
		value, err = cpu.getRegister(code.Rx())
		if err != nil {
			return
		}
		if !cpu.Stack.Push(value) {
			err = ErrStackFull
		}
	case OP_POP:
		// Check the target before consuming the stack.
		_, err = cpu.getRegister(code.Rx())
		if err != nil {
			return
		}
		value, ok := cpu.Stack.Pop()
		if !ok {
			cpu.halt(HALT_POP)
			return
		}
		err = cpu.setRegister(code.Rx(), value)
	case OP_JMP:
		next_pc = code.Imm()
	case OP_JIZ, OP_JIH:
		var acc int
		acc, err = cpu.getRegister(0)
		if err != nil {
			return
		}
		if (op == OP_JIZ && acc == 0) || (op == OP_JIH && acc > 0) {
			next_pc = code.Imm()
		}
	case OP_JSR:
		if !cpu.Calls.Push(cpu.Pc + 1) {
			err = ErrStackFull
			return
		}
		next_pc = code.Imm()
	case OP_RTS:
		ret, ok := cpu.Calls.Pop()
		if !ok {
			cpu.halt(HALT_RTS)
			return
		}
		next_pc = ret
	default:
		cpu.halt(HALT_OPCODE)
		return
	}

	if err != nil {
		return
	}

	cpu.Pc = next_pc

	return
}

// doAlu performs the requested arithmetic, and returns the output value.
func (cpu *Cpu) doAlu(op CodeOp, a, b int) (output int, err error) {
	switch op {
	case OP_ADD:
		output = a + b
	case OP_SUB:
		output = a - b
	case OP_MUL:
		output = a * b
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		output = a / b
	}

	return
}
