// Command lox is the CLI entry point for the treelox interpreter.
//
// Usage:
//
//	lox run <file>                 Run a script
//	lox repl                       Start interactive REPL
//	lox tokens <file> [--json]     Print tokens
//	lox parse <file> [--sexpr]     Print AST as JSON or s-expressions
//	lox resolve <file>             Print resolver diagnostics and distances
//	lox <file>                     Same as run
//	lox                            Same as repl
//
// Every command accepts --config <path>; without it ~/.loxrc.{yaml,yml,toml}
// is used when present.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"treelox/internal/ast"
	"treelox/internal/config"
	"treelox/internal/diag"
	"treelox/internal/lexer"
	"treelox/internal/lox"
	"treelox/internal/parser"
	"treelox/internal/resolver"

	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the streams and settings shared by every command.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
	logger *slog.Logger
	flags  map[string]bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	positional, flags, configPath, err := splitArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		usage(stderr)
		return lox.ExitUsage
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.Is(err, fs.ErrNotExist) {
			return lox.ExitIO
		}
		return lox.ExitUsage
	}
	level, _ := cfg.SlogLevel()

	c := &cli{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		flags:  flags,
	}
	if configPath != "" {
		c.logger.Debug("loaded config", "path", configPath)
	}

	if len(positional) == 0 {
		return c.cmdRepl()
	}

	command := positional[0]
	switch command {
	case "repl":
		return c.cmdRepl()
	case "run", "tokens", "parse", "resolve":
		if len(positional) < 2 {
			fmt.Fprintln(stderr, "error: missing file argument")
			return lox.ExitUsage
		}
		filename := positional[1]
		source, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(stderr, "error: cannot read file %s: %v\n", filename, err)
			return lox.ExitIO
		}
		switch command {
		case "run":
			return c.cmdRun(string(source), filename)
		case "tokens":
			return c.cmdTokens(string(source), filename)
		case "parse":
			return c.cmdParse(string(source), filename)
		default:
			return c.cmdResolve(string(source), filename)
		}
	case "help", "-h", "--help":
		usage(stdout)
		return lox.ExitOK
	default:
		if len(positional) > 1 {
			fmt.Fprintf(stderr, "error: unknown command '%s'\n", command)
			usage(stderr)
			return lox.ExitUsage
		}
		source, err := os.ReadFile(command)
		if err != nil {
			fmt.Fprintf(stderr, "error: cannot read file %s: %v\n", command, err)
			return lox.ExitIO
		}
		return c.cmdRun(string(source), command)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lox run <file>               Run a script")
	fmt.Fprintln(w, "  lox repl                     Start interactive REPL")
	fmt.Fprintln(w, "  lox tokens <file> [--json]   Tokenize and print tokens")
	fmt.Fprintln(w, "  lox parse <file> [--sexpr]   Parse and print AST")
	fmt.Fprintln(w, "  lox resolve <file>           Print resolved variable depths")
	fmt.Fprintln(w, "  lox <file>                   Same as run")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --config <path>              YAML or TOML settings file")
}

// splitArgs separates positional arguments from --flags and pulls out the
// value of --config.
func splitArgs(args []string) (positional []string, flags map[string]bool, configPath string, err error) {
	flags = make(map[string]bool)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return nil, nil, "", errors.New("--config needs a path")
			}
			i++
			configPath = args[i]
		case arg == "--json" || arg == "--sexpr":
			flags[arg] = true
		case len(arg) > 2 && arg[:2] == "--" && arg != "--help":
			return nil, nil, "", fmt.Errorf("unknown flag '%s'", arg)
		default:
			positional = append(positional, arg)
		}
	}
	return positional, flags, configPath, nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.Discover()
	return cfg, err
}

// colorOn reports whether diagnostics written to w should be coloured.
func (c *cli) colorOn(w io.Writer) bool {
	switch c.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *cli) options() []lox.Option {
	return []lox.Option{
		lox.WithMaxDepth(c.cfg.MaxCallDepth),
		lox.WithLogger(c.logger),
	}
}

// ---- run command ----

func (c *cli) cmdRun(source, filename string) int {
	err := lox.Run(source, filename, c.stdout, c.options()...)
	if err != nil {
		printFailure(c.stderr, err, palette{on: c.colorOn(c.stderr)})
	}
	return lox.ExitCode(err)
}

// ---- tokens command ----

func (c *cli) cmdTokens(source, filename string) int {
	tokens, diags := lexer.New(source, filename).Tokenize()

	if c.flags["--json"] {
		if err := printTokensJSON(c.stdout, tokens, diags); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return lox.ExitIO
		}
	} else {
		printTokensText(c.stdout, tokens)
		printDiagsText(c.stderr, diags, palette{on: c.colorOn(c.stderr)})
	}

	if diag.List(diags).HasErrors() {
		return lox.ExitCompile
	}
	return lox.ExitOK
}

// ---- parse command ----

func (c *cli) cmdParse(source, filename string) int {
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	prog, parseDiags := parser.New(tokens).ParseProgram()
	allDiags := append(diag.List(lexDiags), parseDiags...)

	if c.flags["--sexpr"] {
		fmt.Fprintln(c.stdout, ast.Sprint(prog))
		printDiagsText(c.stderr, allDiags, palette{on: c.colorOn(c.stderr)})
	} else {
		output := map[string]interface{}{
			"ast":         ast.NodeToMap(prog),
			"diagnostics": diagsToSlice(allDiags),
		}
		if err := printJSON(c.stdout, output); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return lox.ExitIO
		}
	}

	if allDiags.HasErrors() {
		return lox.ExitCompile
	}
	return lox.ExitOK
}

// ---- resolve command ----

func (c *cli) cmdResolve(source, filename string) int {
	prog, err := lox.Compile(source, filename)
	if err != nil {
		printFailure(c.stderr, err, palette{on: c.colorOn(c.stderr)})
		return lox.ExitCode(err)
	}

	locals, diags := resolver.New(c.logger).Resolve(prog)
	printResolved(c.stdout, locals)
	printDiagsText(c.stderr, diags, palette{on: c.colorOn(c.stderr)})
	if diag.List(diags).HasErrors() {
		return lox.ExitCompile
	}
	return lox.ExitOK
}
