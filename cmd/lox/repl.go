package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"treelox/internal/lexer"
	"treelox/internal/lox"
	"treelox/internal/token"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

const continuationPrompt = "...   "

// lineReader is the part of *readline.Instance the REPL loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// plainReader reads lines from a non-terminal stdin without prompting.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(r)}
}

func (p *plainReader) Readline() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *plainReader) SetPrompt(string) {}

func (p *plainReader) Close() error { return nil }

// ---- repl command ----

func (c *cli) cmdRepl() int {
	stdinFile, isFile := c.stdin.(*os.File)
	if !isFile || !term.IsTerminal(int(stdinFile.Fd())) {
		c.logger.Debug("stdin is not a terminal, using plain line input")
		c.replLoop(newPlainReader(c.stdin), c.stdout, c.stderr, palette{on: c.colorOn(c.stderr)}, false)
		return lox.ExitOK
	}

	colors := palette{on: c.colorOn(c.stdout)}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            colors.wrap(colorGreen, c.cfg.Prompt),
		HistoryFile:       c.cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "readline init failed: %v\n", err)
		return lox.ExitIO
	}

	fmt.Fprintf(rl.Stdout(), "%s %s\n\n",
		colors.wrap(colorBold+colorCyan, "treelox REPL"),
		colors.wrap(colorGray, "(type 'exit' or Ctrl+D to quit)"))

	c.replLoop(rl, rl.Stdout(), rl.Stderr(), colors, true)
	return lox.ExitOK
}

// replLoop reads chunks until EOF or "exit". A chunk ends on a line where
// every '{' token has been closed, so blocks can span lines.
func (c *cli) replLoop(rl lineReader, stdout, stderr io.Writer, colors palette, interactive bool) {
	defer rl.Close()

	opts := append(c.options(), lox.WithEcho())
	session := lox.NewSession(stdout, opts...)
	var accumulated strings.Builder
	braceDepth := 0

	for {
		if braceDepth > 0 {
			rl.SetPrompt(colors.wrap(colorGray, continuationPrompt))
		} else {
			rl.SetPrompt(colors.wrap(colorGreen, c.cfg.Prompt))
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if braceDepth > 0 {
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				fmt.Fprintf(stdout, "\n%s\n", colors.wrap(colorGray, "(use 'exit' or Ctrl+D to quit)"))
				continue
			}
			if errors.Is(err, io.EOF) && interactive {
				fmt.Fprintln(stdout)
			} else if !errors.Is(err, io.EOF) {
				fmt.Fprintf(stderr, "error: %v\n", err)
			}
			// an unfinished block still runs so its errors are reported
			if pending := accumulated.String(); strings.TrimSpace(pending) != "" {
				if err := session.Eval(pending, "<repl>"); err != nil {
					printFailure(stderr, err, colors)
				}
			}
			return
		}

		if braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			return
		}

		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		braceDepth = openBraces(accumulated.String())
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		if err := session.Eval(source, "<repl>"); err != nil {
			printFailure(stderr, err, colors)
		}
	}
}

// openBraces counts unclosed '{' tokens in src. Braces inside strings and
// comments are not tokens and do not count.
func openBraces(src string) int {
	tokens, _ := lexer.New(src, "<repl>").Tokenize()
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		}
	}
	return depth
}
