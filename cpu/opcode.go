package cpu

import (
	"fmt"
)

// CodeOp is the 4-bit operation selector in the low bits of a Code.
type CodeOp int

const (
	OP_NOP  = CodeOp(0)  // NOP
	OP_LOAD = CodeOp(1)  // LOAD
	OP_MOV  = CodeOp(2)  // MOV
	OP_ADD  = CodeOp(3)  // ADD
	OP_SUB  = CodeOp(4)  // SUB
	OP_MUL  = CodeOp(5)  // MUL
	OP_DIV  = CodeOp(6)  // DIV
	OP_PUSH = CodeOp(7)  // PUSH
	OP_POP  = CodeOp(8)  // POP
	OP_JMP  = CodeOp(9)  // JMP
	OP_JIZ  = CodeOp(10) // JIZ
	OP_JIH  = CodeOp(11) // JIH
	OP_JSR  = CodeOp(12) // JSR
	OP_RTS  = CodeOp(13) // RTS
)

// OP_COUNT is the number of defined opcodes. Anything at or above it is invalid.
const OP_COUNT = 14

var opName = [OP_COUNT]string{
	"NOP", "LOAD", "MOV", "ADD", "SUB", "MUL", "DIV",
	"PUSH", "POP", "JMP", "JIZ", "JIH", "JSR", "RTS",
}

func (op CodeOp) String() string {
	if !op.Valid() {
		return fmt.Sprintf("CodeOp(%d)", int(op))
	}
	return opName[op]
}

// Valid returns true if the opcode is one of the defined operations.
func (op CodeOp) Valid() bool {
	return op >= 0 && op < OP_COUNT
}

// CodeForm is the textual operand form taken by an opcode.
type CodeForm int

const (
	FORM_NONE = CodeForm(0) // NOP, RTS
	FORM_IMM  = CodeForm(1) // #imm
	FORM_MOV  = CodeForm(2) // dst, src with optional (Rn)
	FORM_REG2 = CodeForm(3) // Rx, Ry
	FORM_REG1 = CodeForm(4) // Rx
)

var opForm = [OP_COUNT]CodeForm{
	OP_NOP:  FORM_NONE,
	OP_LOAD: FORM_IMM,
	OP_MOV:  FORM_MOV,
	OP_ADD:  FORM_REG2,
	OP_SUB:  FORM_REG2,
	OP_MUL:  FORM_REG2,
	OP_DIV:  FORM_REG2,
	OP_PUSH: FORM_REG1,
	OP_POP:  FORM_REG1,
	OP_JMP:  FORM_IMM,
	OP_JIZ:  FORM_IMM,
	OP_JIH:  FORM_IMM,
	OP_JSR:  FORM_IMM,
	OP_RTS:  FORM_NONE,
}

// Form returns the operand form of the opcode.
func (op CodeOp) Form() CodeForm {
	if !op.Valid() {
		return FORM_NONE
	}
	return opForm[op]
}

// opMap maps mnemonics to opcodes.
var opMap = func() map[string]CodeOp {
	m := make(map[string]CodeOp, OP_COUNT)
	for n, name := range opName {
		m[name] = CodeOp(n)
	}
	return m
}()

// LookupOp returns the opcode for a mnemonic.
func LookupOp(mnemonic string) (op CodeOp, ok bool) {
	op, ok = opMap[mnemonic]
	return
}

// Payload field layout.
const (
	CODE_OP_MASK = 0xf

	CODE_IMM_SHIFT = 4
	CODE_IMM_MASK  = 0xfff // 12-bit literal or address

	CODE_RX_SHIFT = 4
	CODE_RY_SHIFT = 8
	CODE_REG_MASK = 0xf // 4-bit register index

	CODE_FROM_MEM_BIT = 12
	CODE_TO_MEM_BIT   = 13
)

// IMM_MAX is the largest literal encodable in an immediate payload.
const IMM_MAX = CODE_IMM_MASK

// REG_MAX is the largest register index encodable in a register payload.
const REG_MAX = CODE_REG_MASK

// Code is a single 16-bit instruction word.
type Code uint16

// MakeCodeNop creates a NOP instruction.
func MakeCodeNop() Code {
	return Code(OP_NOP)
}

// MakeCodeRts creates a RTS instruction.
func MakeCodeRts() Code {
	return Code(OP_RTS)
}

// MakeCodeImm creates an instruction with a 12-bit immediate payload (LOAD, JMP, JIZ, JIH, JSR).
func MakeCodeImm(op CodeOp, imm int) Code {
	return Code(uint16(op)&CODE_OP_MASK | (uint16(imm)&CODE_IMM_MASK)<<CODE_IMM_SHIFT)
}

// MakeCodeLoad creates a LOAD #imm instruction.
func MakeCodeLoad(imm int) Code {
	return MakeCodeImm(OP_LOAD, imm)
}

// MakeCodeReg creates a single register instruction (PUSH, POP).
func MakeCodeReg(op CodeOp, rx int) Code {
	return Code(uint16(op)&CODE_OP_MASK | (uint16(rx)&CODE_REG_MASK)<<CODE_RX_SHIFT)
}

// MakeCodeAlu creates a two register arithmetic instruction (ADD, SUB, MUL, DIV).
func MakeCodeAlu(op CodeOp, rx, ry int) Code {
	return MakeCodeReg(op, rx) | Code((uint16(ry)&CODE_REG_MASK)<<CODE_RY_SHIFT)
}

// MakeCodeMov creates a MOV instruction. toMem selects (Rx) as the
// destination, fromMem selects (Ry) as the source.
func MakeCodeMov(rx, ry int, toMem, fromMem bool) Code {
	code := MakeCodeAlu(OP_MOV, rx, ry)
	if fromMem {
		code |= 1 << CODE_FROM_MEM_BIT
	}
	if toMem {
		code |= 1 << CODE_TO_MEM_BIT
	}
	return code
}

// Op returns the opcode field.
func (code Code) Op() CodeOp {
	return CodeOp(uint16(code) & CODE_OP_MASK)
}

// Imm returns the 12-bit immediate or address payload.
func (code Code) Imm() int {
	return int((uint16(code) >> CODE_IMM_SHIFT) & CODE_IMM_MASK)
}

// Rx returns the first register field.
func (code Code) Rx() int {
	return int((uint16(code) >> CODE_RX_SHIFT) & CODE_REG_MASK)
}

// Ry returns the second register field.
func (code Code) Ry() int {
	return int((uint16(code) >> CODE_RY_SHIFT) & CODE_REG_MASK)
}

// FromMem returns true if the MOV source is register-indirect.
func (code Code) FromMem() bool {
	return (uint16(code)>>CODE_FROM_MEM_BIT)&1 == 1
}

// ToMem returns true if the MOV destination is register-indirect.
func (code Code) ToMem() bool {
	return (uint16(code)>>CODE_TO_MEM_BIT)&1 == 1
}

func regString(reg int, indirect bool) string {
	if indirect {
		return fmt.Sprintf("(R%d)", reg)
	}
	return fmt.Sprintf("R%d", reg)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() string {
	op := code.Op()
	if !op.Valid() {
		return fmt.Sprintf(".word 0x%04x", uint16(code))
	}

	switch op.Form() {
	case FORM_IMM:
		return fmt.Sprintf("%v #%d", op, code.Imm())
	case FORM_MOV:
		return fmt.Sprintf("%v %v, %v", op, regString(code.Rx(), code.ToMem()), regString(code.Ry(), code.FromMem()))
	case FORM_REG2:
		return fmt.Sprintf("%v R%d, R%d", op, code.Rx(), code.Ry())
	case FORM_REG1:
		return fmt.Sprintf("%v R%d", op, code.Rx())
	}

	return op.String()
}

// Disassemble returns the listing of an image, one line per word.
func Disassemble(image []Code) (lines []string) {
	for ip, code := range image {
		lines = append(lines, fmt.Sprintf("%04d: %04x  %v", ip, uint16(code), code))
	}
	return
}
