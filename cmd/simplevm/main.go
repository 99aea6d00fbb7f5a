// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ezrec/simplevm/cpu"
	"github.com/ezrec/simplevm/emulator"
	"github.com/ezrec/simplevm/translate"
)

type options struct {
	verbose     bool
	strict      bool
	expressions bool
	defines     []string

	registers int
	memory    int
	maxTicks  int
	dumpBase  int
	profile   string
	chart     string
}

func main() {
	var opt options

	rootCmd := &cobra.Command{
		Use:   "simplevm",
		Short: "Assembler and register machine for the simplevm instruction set",
		Long: `simplevm assembles a text program, one instruction per line, into
16-bit instruction words and executes them on a register machine,
counting how often every instruction is fetched.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&opt.verbose, "verbose", "v", false, "Verbose mode")
	pf.BoolVar(&opt.strict, "strict", false, "Reject unknown mnemonics instead of skipping them")
	pf.BoolVar(&opt.expressions, "expr", false, "Evaluate $(...) expressions in the source")
	pf.StringArrayVarP(&opt.defines, "define", "D", nil, "Predefine NAME=VALUE for expressions")

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Assemble and execute a program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(cmd.OutOrStdout(), &opt, args)
		},
	}
	rf := runCmd.Flags()
	rf.IntVar(&opt.registers, "registers", cpu.REGISTER_COUNT, "Number of registers")
	rf.IntVar(&opt.memory, "memory", cpu.MEMORY_SIZE, "Memory size, in words")
	rf.IntVar(&opt.maxTicks, "max-ticks", 0, "Abort after this many instructions (0 is unlimited)")
	rf.IntVar(&opt.dumpBase, "dump-base", 0, "Lowest address shown in the memory dump")
	rf.StringVarP(&opt.profile, "profile", "p", "", "Write the profiler report to this file ('-' for stdout)")
	rf.StringVar(&opt.chart, "chart", "", "Write the profiler chart as HTML to this file")

	asmCmd := &cobra.Command{
		Use:   "asm [file]",
		Short: "Assemble a program and print the listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := assemble(&opt, args)
			if err != nil {
				return err
			}
			for _, line := range prog.Listing() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	disasmCmd := &cobra.Command{
		Use:   "disasm [file]",
		Short: "Assemble a program and print the disassembled image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := assemble(&opt, args)
			if err != nil {
				return err
			}
			for _, line := range cpu.Disassemble(prog.Image()) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, asmCmd, disasmCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openSource opens the named program, prompting for a name if none was given.
func openSource(args []string) (input io.ReadCloser, name string, err error) {
	if len(args) > 0 {
		name = args[0]
	} else {
		var rl *readline.Instance
		rl, err = readline.NewEx(&readline.Config{
			Prompt: translate.From("program file> "),
		})
		if err != nil {
			return
		}
		defer rl.Close()

		var line string
		line, err = rl.Readline()
		if err != nil {
			return
		}
		name = strings.TrimSpace(line)
	}

	if name == "-" {
		input = io.NopCloser(os.Stdin)
		return
	}

	input, err = os.Open(name)
	return
}

func assemble(opt *options, args []string) (prog *cpu.Program, name string, err error) {
	input, name, err := openSource(args)
	if err != nil {
		return
	}
	defer input.Close()

	asm := &cpu.Assembler{
		Verbose:     opt.verbose,
		Strict:      opt.strict,
		Expressions: opt.expressions,
	}
	for _, define := range opt.defines {
		key, value, ok := strings.Cut(define, "=")
		if !ok {
			value = "1"
		}
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(input)
	if err != nil {
		err = fmt.Errorf("%v: %w", name, err)
	}
	return
}

func doRun(out io.Writer, opt *options, args []string) (err error) {
	prog, name, err := assemble(opt, args)
	if err != nil {
		return
	}

	emu := emulator.NewEmulator(opt.registers, opt.memory)
	emu.Verbose = opt.verbose
	emu.MaxTicks = opt.maxTicks
	emu.DumpBase = opt.dumpBase

	fmt.Fprintln(out, translate.From("%v registers | %v memory words", strconv.Itoa(emu.RegisterSize()), strconv.Itoa(emu.MemorySize())))

	err = emu.Load(prog)
	if err != nil {
		return
	}

	result, err := emu.Run()
	if err != nil {
		if opt.verbose {
			log.Print(emu.Cpu.String())
		}
		return
	}

	fmt.Fprint(out, emu.Cpu.String())
	for _, cell := range result.Memory {
		fmt.Fprintf(out, "[%04d] = %d\n", cell.Addr, cell.Value)
	}

	if len(opt.profile) != 0 {
		err = writeFile(opt.profile, out, func(w io.Writer) error {
			_, err := emu.Profiler.WriteTo(w)
			return err
		})
		if err != nil {
			return
		}
	}

	if len(opt.chart) != 0 {
		err = writeFile(opt.chart, out, func(w io.Writer) error {
			return emu.Profiler.Chart(w, name)
		})
		if err != nil {
			return
		}
	}

	return
}

// writeFile creates path, or uses stdout for '-', and fills it with emit.
func writeFile(path string, stdout io.Writer, emit func(w io.Writer) error) (err error) {
	if path == "-" {
		return emit(stdout)
	}

	ouf, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		cerr := ouf.Close()
		if err == nil {
			err = cerr
		}
	}()

	err = emit(ouf)
	return
}
