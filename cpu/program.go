package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and generated instruction.
type Opcode struct {
	LineNo int
	Ip     int
	Words  []string
	Code   Code
}

// Program is the immutable result of an assembly.
type Program struct {
	Opcodes []Opcode
}

// Len returns the number of instructions in the program.
func (prog *Program) Len() int {
	return len(prog.Opcodes)
}

// Image returns a fresh copy of the program's memory image, indexed by address.
func (prog *Program) Image() (image []Code) {
	image = make([]Code, len(prog.Opcodes))
	for ip, code := range prog.Codes() {
		image[ip] = code
	}
	return
}

// Codes iterates over the instruction words by address.
func (prog *Program) Codes() iter.Seq2[int, Code] {
	return func(yield func(ip int, code Code) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Ip, op.Code) {
				return
			}
		}
	}
}

// Debug returns the source record for an address, or nil if the
// address is outside of the program.
func (prog *Program) Debug(ip int) *Opcode {
	if ip < 0 || ip >= len(prog.Opcodes) {
		return nil
	}
	op := &prog.Opcodes[ip]
	if op.Ip != ip {
		return nil
	}
	return op
}

// LineNo returns the source line of an address, or 0 if unknown.
func (prog *Program) LineNo(ip int) int {
	op := prog.Debug(ip)
	if op == nil {
		return 0
	}
	return op.LineNo
}

// Listing returns the assembled words side by side with their source.
func (prog *Program) Listing() (lines []string) {
	for _, op := range prog.Opcodes {
		lines = append(lines, fmt.Sprintf("%04d: %04x  %-20v ; line %d", op.Ip, uint16(op.Code), strings.Join(op.Words, " "), op.LineNo))
	}
	return
}
