// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/simplevm/internal"
)

// Predefined system equates, visible to $(...) expressions.
var sysEquate = map[string]string{
	"LINENO":  "0",
	"IMM_MAX": fmt.Sprintf("%d", IMM_MAX),
	"REG_MAX": fmt.Sprintf("%d", REG_MAX),
}

// Assembler is a single pass, one word per line, assembler for the simplevm system.
//
// Lines are split into whitespace separated words, with ',' always a word
// of its own. Lines whose first word is not a known mnemonic are skipped,
// unless Strict is set.
type Assembler struct {
	Verbose     bool     // If set, verbosely logs the assembler actions.
	Strict      bool     // If set, unknown mnemonics are an error.
	Expressions bool     // If set, $(...) is evaluated at assembly time.
	Opcode      []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Equate    map[string]string // Map of equates visible to expressions.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	return asm.assemble(internal.Lines(input))
}

// Assemble assembles a sequence of source lines into a Program.
func (asm *Assembler) Assemble(lines []string) (prog *Program, err error) {
	return asm.assemble(func(yield func(string, error) bool) {
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	})
}

// assemble consumes lines until the first error.
func (asm *Assembler) assemble(lines iter.Seq2[string, error]) (prog *Program, err error) {
	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	for text, read_err := range lines {
		if read_err != nil {
			err = read_err
			return
		}

		line = text
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v", lineno, line)
		}

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		var code Code
		var ok bool
		code, ok, err = asm.parseWords(words)
		if err != nil {
			return
		}
		if !ok {
			continue
		}

		asm.Opcode = append(asm.Opcode, Opcode{
			LineNo: lineno,
			Ip:     len(asm.Opcode),
			Words:  words,
			Code:   code,
		})
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

var (
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine splits a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	if asm.Expressions {
		asm.Equate["LINENO"] = fmt.Sprintf("%d", lineno)

		line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("%d", value)
		})
		if err != nil {
			return
		}
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " , "))

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, perr := strconv.ParseInt(str, 0, 64)
		if perr != nil {
			// Ignore non-integer equates.
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// immediate parses a '#' prefixed literal.
func (asm *Assembler) immediate(word string) (value int, err error) {
	digits, ok := strings.CutPrefix(word, "#")
	if !ok {
		err = ErrParseImmediate(word)
		return
	}
	value, err = strconv.Atoi(digits)
	if err != nil {
		err = ErrParseNumber(digits)
		return
	}
	if value < 0 || value > IMM_MAX {
		err = ErrImmediateRange
		return
	}
	return
}

// register parses an 'R' prefixed register, optionally wrapped as '(Rn)'
// when indirect addressing is permitted.
func (asm *Assembler) register(word string, allow_indirect bool) (reg int, indirect bool, err error) {
	if strings.HasPrefix(word, "(") {
		if !allow_indirect {
			err = ErrIndirectInvalid
			return
		}
		var ok bool
		word, ok = strings.CutSuffix(word[1:], ")")
		if !ok {
			err = ErrParseRegister(word)
			return
		}
		indirect = true
	}
	digits, ok := strings.CutPrefix(word, "R")
	if !ok {
		err = ErrParseRegister(word)
		return
	}
	reg, err = strconv.Atoi(digits)
	if err != nil {
		err = ErrParseNumber(digits)
		return
	}
	if reg < 0 || reg > REG_MAX {
		err = ErrRegisterRange
		return
	}
	return
}

// argCount checks that exactly n argument words are present.
func argCount(args []string, n int) error {
	if len(args) < n {
		return ErrOpcodeValueMissing
	}
	if len(args) > n {
		return ErrOpcodeExtraArgs
	}
	return nil
}

// parseWords evaluates the words of a line. ok is false if the line
// does not generate an instruction.
func (asm *Assembler) parseWords(words []string) (code Code, ok bool, err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	op, known := LookupOp(words[0])
	if !known {
		if asm.Strict {
			err = ErrInstructionInvalid
			return
		}
		if asm.Verbose {
			log.Printf("asm: skipping '%v'", words[0])
		}
		return
	}

	args := words[1:]

	switch op.Form() {
	case FORM_NONE:
		err = argCount(args, 0)
		if err != nil {
			return
		}
		code = Code(op)
	case FORM_IMM:
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var imm int
		imm, err = asm.immediate(args[0])
		if err != nil {
			return
		}
		code = MakeCodeImm(op, imm)
	case FORM_REG1:
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var rx int
		rx, _, err = asm.register(args[0], false)
		if err != nil {
			return
		}
		code = MakeCodeReg(op, rx)
	case FORM_REG2, FORM_MOV:
		// Rx , Ry - the separator is consumed, but not inspected.
		err = argCount(args, 3)
		if err != nil {
			return
		}
		indirect := op.Form() == FORM_MOV
		var rx, ry int
		var to_mem, from_mem bool
		rx, to_mem, err = asm.register(args[0], indirect)
		if err != nil {
			return
		}
		ry, from_mem, err = asm.register(args[2], indirect)
		if err != nil {
			return
		}
		if indirect {
			code = MakeCodeMov(rx, ry, to_mem, from_mem)
		} else {
			code = MakeCodeAlu(op, rx, ry)
		}
	}

	ok = true

	return
}
