package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/fizz-lang/fizz/internal/config"
	"github.com/fizz-lang/fizz/internal/hotreload"
	"github.com/fizz-lang/fizz/internal/vm"
	fizz "github.com/fizz-lang/fizz/pkg/embed"

	_ "github.com/tliron/commonlog/simple"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %[1]s <command> [arguments]

Commands:
  run <file>       execute a script (%[2]s) or compiled bundle (%[3]s)
  build <file>     compile a script to a %[3]s bundle
  watch <file>     run a script and re-run it on every change
  disasm <file>    print the compiled bytecode

Running %[1]s with no arguments starts a REPL, or executes a script
piped on stdin.
`, filepath.Base(os.Args[0]), config.SourceExt, config.BundleExt)
}

func newVM() *fizz.VM {
	v := fizz.New()
	// Baseline host bindings available to every script.
	v.Bind("print", func(val interface{}) {
		fmt.Println(formatValue(val))
	})
	return v
}

func formatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "()"
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func handleRun() bool {
	if len(os.Args) < 3 || os.Args[1] != "run" {
		return false
	}

	path := os.Args[2]
	result, err := newVM().LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if result != nil {
		fmt.Println(formatValue(result))
	}
	return true
}

func handleBuild() bool {
	if len(os.Args) < 3 || os.Args[1] != "build" {
		return false
	}

	sourcePath := os.Args[2]
	outputPath := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + config.BundleExt
	if len(os.Args) >= 5 && os.Args[3] == "-o" {
		outputPath = os.Args[4]
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source file: %s\n", err)
		os.Exit(1)
	}

	chunk, err := newVM().Compile(string(source), sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed:\n%s\n", err)
		os.Exit(1)
	}

	data, err := vm.EncodeBundle(chunk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encoding error: %s\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing bundle: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Compiled %s -> %s (%d bytes)\n", sourcePath, outputPath, len(data))
	return true
}

func handleDisasm() bool {
	if len(os.Args) < 3 || os.Args[1] != "disasm" {
		return false
	}

	path := os.Args[2]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}

	var chunk *vm.Chunk
	if strings.HasSuffix(path, config.BundleExt) {
		chunk, err = vm.DecodeBundle(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Decoding error: %s\n", err)
			os.Exit(1)
		}
	} else {
		chunk, err = newVM().Compile(string(data), path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Compilation failed:\n%s\n", err)
			os.Exit(1)
		}
	}

	fmt.Print(vm.Disassemble(chunk, filepath.Base(path)))
	return true
}

func handleWatch() bool {
	if len(os.Args) < 3 || os.Args[1] != "watch" {
		return false
	}

	path := os.Args[2]
	machine := newVM()

	engine, err := hotreload.New(path, func(source string) (*vm.Chunk, error) {
		return machine.Compile(source, path)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	defer engine.Stop()

	var history []hotreload.ReloadStats
	runCurrent := func(stats hotreload.ReloadStats) {
		history = append(history, stats)
		if !stats.Success {
			fmt.Fprintf(os.Stderr, "reload failed: %s\n", stats.ErrorMessage)
			return
		}
		result, err := machine.Execute(engine.CurrentChunk())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Runtime error: %s\n", err)
			return
		}
		if result != nil {
			fmt.Println(formatValue(result))
		}
	}

	runCurrent(engine.Reload())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "watching %s\n", engine.Path())
	for {
		select {
		case <-interrupt:
			engine.Stop()
			dumpHistory(history)
			return true
		default:
		}
		if engine.WaitForChange(500 * time.Millisecond) {
			engine.DrainChanges()
			runCurrent(engine.Reload())
		}
	}
}

func dumpHistory(history []hotreload.ReloadStats) {
	if len(history) == 0 {
		return
	}
	out, err := yaml.Marshal(history)
	if err != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "\nreload history:\n%s", out)
}

func repl() {
	machine := newVM()
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("fizz repl, :quit to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			return
		}

		result, err := machine.Eval(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			continue
		}
		fmt.Println(formatValue(result))
	}
}

func runStdin() {
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
		os.Exit(1)
	}
	if len(source) == 0 {
		return
	}

	result, err := newVM().Eval(string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if result != nil {
		fmt.Println(formatValue(result))
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if os.Getenv("FIZZ_VERBOSE") == "1" {
		commonlog.Configure(1, nil)
	}

	if handleRun() {
		return
	}
	if handleBuild() {
		return
	}
	if handleWatch() {
		return
	}
	if handleDisasm() {
		return
	}

	if len(os.Args) == 1 {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			repl()
		} else {
			runStdin()
		}
		return
	}

	// Bare file argument is shorthand for run.
	if len(os.Args) == 2 && !strings.HasPrefix(os.Args[1], "-") {
		result, err := newVM().LoadFile(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		if result != nil {
			fmt.Println(formatValue(result))
		}
		return
	}

	usage()
	os.Exit(1)
}
