package cpu

import (
	"errors"
	"strconv"

	"github.com/ezrec/simplevm/translate"
)

var f = translate.From

var (
	// Cpu faults
	ErrRegisterRange = errors.New(f("register out of range"))
	ErrMemoryRange   = errors.New(f("memory address out of range"))
	ErrDivideByZero  = errors.New(f("division by zero"))
	ErrIpRange       = errors.New(f("program counter out of range"))
	ErrStackFull     = errors.New(f("stack full"))
	ErrHalted        = errors.New(f("cpu halted"))

	// Assembler errors
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrIndirectInvalid    = errors.New(f("indirect register not permitted"))
	ErrProgramTooLarge    = errors.New(f("program too large"))
)

// ErrFault is an execution fault, tagged with the instruction that caused it.
type ErrFault struct {
	Ip   int
	Code Code
	Err  error
}

func (err *ErrFault) Error() string {
	return f("fault at %v '%v' %v", strconv.Itoa(err.Ip), err.Code, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

// ErrSyntax is an assembler error on a source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %v '%v' %v", strconv.Itoa(err.LineNo), err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseImmediate string

func (err ErrParseImmediate) Error() string {
	return f("'%v' is not an immediate", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
