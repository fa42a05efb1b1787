package resolver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompt is shown before each query.
const Prompt = "Enter drug name (or 'exit' to quit): "

// ExitCommand ends the loop, in any case.
const ExitCommand = "exit"

// Run reads one query per line from in and writes each outcome to out until
// the exit command or end of input. A resolve error ends the loop.
func (r *Resolver) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n"+Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(query, ExitCommand) {
			return nil
		}
		if query == "" {
			continue
		}
		outcome, err := r.Resolve(ctx, query)
		if err != nil {
			return err
		}
		if msg := outcome.Message(); msg != "" {
			fmt.Fprintln(out, msg)
		}
	}
}
