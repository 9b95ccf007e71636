// Package console turns lines typed on an input stream into outbound text.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// DefaultExitCommand ends the console loop when typed on its own line.
const DefaultExitCommand = "exit"

// Console reads lines from an input stream and hands each non-empty one to a send function.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
	exit    string
}

// Option configures a Console.
type Option func(*Console)

// WithPrompt writes prompt to out before every line is read.
func WithPrompt(out io.Writer, prompt string) Option {
	return func(c *Console) {
		c.out = out
		c.prompt = prompt
	}
}

// WithExitCommand sets the sentinel line. Matching ignores case and surrounding spaces.
func WithExitCommand(cmd string) Option {
	return func(c *Console) {
		c.exit = cmd
	}
}

// New returns a Console reading from in.
func New(in io.Reader, opts ...Option) *Console {
	c := &Console{
		scanner: bufio.NewScanner(in),
		exit:    DefaultExitCommand,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run reads lines until the exit command, end of input, ctx cancellation, or a send error.
// It returns nil for the exit command and end of input.
//
// A read in progress cannot be interrupted; after cancellation the reading goroutine
// exits once the pending line or EOF arrives.
func (c *Console) Run(ctx context.Context, send func(text string) error) error {
	type result struct {
		line string
		ok   bool
		err  error
	}

	next := make(chan struct{})
	results := make(chan result, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			select {
			case <-next:
			case <-stop:
				return
			}
			ok := c.scanner.Scan()
			results <- result{line: c.scanner.Text(), ok: ok, err: c.scanner.Err()}
		}
	}()

	for {
		c.showPrompt()

		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		var r result
		select {
		case r = <-results:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !r.ok {
			return r.err
		}

		line := strings.TrimRight(r.line, "\r")
		if c.isExit(line) {
			return nil
		}
		if line == "" {
			continue
		}
		if err := send(line); err != nil {
			return err
		}
	}
}

func (c *Console) isExit(line string) bool {
	return c.exit != "" && strings.EqualFold(strings.TrimSpace(line), c.exit)
}

func (c *Console) showPrompt() {
	if c.out != nil && c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
}
