// Package cpu implements the register machine and assembler for the simplevm system.
//
// The machine has a program counter, a register file (16 registers by
// default), a word-addressed memory (4096 words by default), an operand
// stack used by PUSH/POP, and a call stack used by JSR/RTS. Register 0
// is the accumulator: it is the only target of LOAD and the only register
// tested by the conditional jumps.
//
// Every instruction is a single 16-bit word. The low four bits hold the
// opcode and the upper twelve bits the opcode-dependent payload. The same
// Code type is used by the assembler to encode and by the machine to
// decode, so the two can never disagree on the layout.
//
// The assembler reads one instruction per line and assigns addresses in
// source order, starting at zero.
package cpu
