package emulator

import (
	"errors"
	"strconv"

	"github.com/ezrec/simplevm/translate"
)

var f = translate.From

var (
	ErrTickLimit = errors.New(f("tick limit exceeded"))
	ErrNoProgram = errors.New(f("no program loaded"))
)

// ErrRuntime indicates the source location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %v %v", strconv.Itoa(err.LineNo), err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
