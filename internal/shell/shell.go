package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joescharf/prstats/internal/output"
)

// StatsFunc runs one stats invocation for the given bounds.
type StatsFunc func(ctx context.Context, from, to string) error

// Shell reads commands until exit, EOF, or context cancellation.
type Shell struct {
	in     io.Reader
	ui     *output.UI
	stats  StatsFunc
	prompt string
}

// New creates a Shell reading from in.
func New(in io.Reader, ui *output.UI, stats StatsFunc) *Shell {
	return &Shell{in: in, ui: ui, stats: stats, prompt: "> "}
}

const helpText = `Available commands:
  get_stats()                      - Get all PR statistics
  get_stats(from_date)             - From date to now
  get_stats(from_date, to_date)    - Date range filter
  help                             - Show this help
  exit | quit | q                  - Leave the shell

Date format: YYYY-MM-DD (e.g., 2024-01-01) or an ISO-8601 datetime`

// Run starts the read loop. A failed command is reported and the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.ui.Out, "GitHub PR Statistics - Interactive Mode")
	fmt.Fprintln(s.ui.Out)
	fmt.Fprintln(s.ui.Out, helpText)

	scanner := bufio.NewScanner(s.in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprintf(s.ui.Out, "\n%s", s.prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.ui.Out)
			return scanner.Err()
		}

		cmd, err := Parse(scanner.Text())
		if err != nil {
			s.ui.Error("%v", err)
			if errors.Is(err, ErrUnknownCommand) {
				fmt.Fprintln(s.ui.Out, helpText)
			}
			continue
		}

		switch cmd.Kind {
		case KindNone:
		case KindHelp:
			fmt.Fprintln(s.ui.Out, helpText)
		case KindExit:
			s.ui.Info("Goodbye")
			return nil
		case KindGetStats:
			if err := s.stats(ctx, cmd.From, cmd.To); err != nil {
				s.ui.Error("%v", err)
			}
		}
	}
}
