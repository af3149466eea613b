// Package shell implements the interactive get_stats(...) prompt.
package shell

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a shell command.
type Kind int

const (
	KindNone Kind = iota
	KindGetStats
	KindHelp
	KindExit
)

// Command is a parsed shell line.
type Command struct {
	Kind Kind
	From string
	To   string
}

var (
	ErrInvalidFormat  = errors.New("invalid command format, use: method(arg1, arg2, ...)")
	ErrUnknownCommand = errors.New("unknown method")
)

// Parse turns one input line into a Command. Blank lines parse to KindNone.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return Command{Kind: KindNone}, nil
	case "exit", "quit", "q", "exit()", "quit()":
		return Command{Kind: KindExit}, nil
	case "help", "help()", "?":
		return Command{Kind: KindHelp}, nil
	}

	open := strings.Index(line, "(")
	closing := strings.LastIndex(line, ")")
	if open < 0 || closing < open {
		return Command{}, ErrInvalidFormat
	}

	name := strings.TrimSpace(line[:open])
	args := splitArgs(line[open+1 : closing])

	switch name {
	case "get_stats":
		if len(args) > 2 {
			return Command{}, fmt.Errorf("get_stats accepts 0, 1, or 2 arguments, got %d", len(args))
		}
		cmd := Command{Kind: KindGetStats}
		if len(args) > 0 {
			cmd.From = args[0]
		}
		if len(args) > 1 {
			cmd.To = args[1]
		}
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
}

// splitArgs splits on commas outside quotes and strips surrounding quotes.
// Empty arguments keep their position, so ("", to) leaves from open.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	var cur strings.Builder
	var quote rune

	flush := func() {
		arg := strings.TrimSpace(cur.String())
		arg = strings.TrimSpace(strings.Trim(arg, `"'`))
		args = append(args, arg)
		cur.Reset()
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}
