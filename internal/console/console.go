// Package console renders exchange state for humans and reads prompted input.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Console writes rendered output and reads prompt answers line by line
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
}

// New creates a console. Colors are used only when out is a terminal.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:    bufio.NewReader(in),
		out:   out,
		color: IsTerminal(out),
	}
}

// IsTerminal reports whether v is a file attached to a terminal
func IsTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writer is the output stream
func (c *Console) Writer() io.Writer {
	return c.out
}

// Printf writes formatted output
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line
func (c *Console) Println(args ...interface{}) {
	fmt.Fprintln(c.out, args...)
}

func (c *Console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + ansiReset
}

// Prompt asks for a line of input. An empty answer yields def.
func (c *Console) Prompt(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		c.Printf("%s [%s]: ", label, def)
	} else {
		c.Printf("%s: ", label)
	}

	line, err := c.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm asks a yes/no question
func (c *Console) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		c.Printf("%s [%s]: ", label, hint)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.Println("Please answer y or n.")
	}
}

// readLine returns the next trimmed line. A final line without a newline is
// returned as is; io.EOF is reported only when nothing was read.
func (c *Console) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := c.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		c.Println()
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}
