package shell

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prstats/internal/output"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{Kind: KindNone}},
		{"   ", Command{Kind: KindNone}},
		{"exit", Command{Kind: KindExit}},
		{"QUIT", Command{Kind: KindExit}},
		{"q", Command{Kind: KindExit}},
		{"help", Command{Kind: KindHelp}},
		{"get_stats()", Command{Kind: KindGetStats}},
		{"get_stats( )", Command{Kind: KindGetStats}},
		{`get_stats("2024-01-01")`, Command{Kind: KindGetStats, From: "2024-01-01"}},
		{"get_stats(2024-01-01)", Command{Kind: KindGetStats, From: "2024-01-01"}},
		{`get_stats('2024-01-01', "2024-02-01")`, Command{Kind: KindGetStats, From: "2024-01-01", To: "2024-02-01"}},
		{` get_stats ( 2024-01-01 ,2024-02-01 ) `, Command{Kind: KindGetStats, From: "2024-01-01", To: "2024-02-01"}},
		{`get_stats("", "2024-03-01")`, Command{Kind: KindGetStats, To: "2024-03-01"}},
		{`get_stats(, 2024-03-01)`, Command{Kind: KindGetStats, To: "2024-03-01"}},
		{`get_stats("2024-01-01", "")`, Command{Kind: KindGetStats, From: "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_QuotedComma(t *testing.T) {
	got, err := Parse(`get_stats("2024-01-01T00:00:00,5", "2024-02-01")`)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00,5", got.From)
	assert.Equal(t, "2024-02-01", got.To)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("get_stats")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Parse("get_stats)(")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = Parse("drop_tables()")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = Parse("get_stats(a, b, c)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 3")
}

type call struct{ from, to string }

func runShell(t *testing.T, input string, stats StatsFunc) string {
	t.Helper()
	out := &bytes.Buffer{}
	ui := &output.UI{Out: out, ErrOut: out}
	require.NoError(t, New(strings.NewReader(input), ui, stats).Run(context.Background()))
	return out.String()
}

func TestShell_DispatchesUntilExit(t *testing.T) {
	var calls []call
	stats := func(_ context.Context, from, to string) error {
		calls = append(calls, call{from, to})
		return nil
	}

	out := runShell(t, "get_stats()\nget_stats(2024-01-01)\nexit\nget_stats()\n", stats)

	assert.Equal(t, []call{{"", ""}, {"2024-01-01", ""}}, calls)
	assert.Contains(t, out, "Goodbye")
}

func TestShell_ErrorsKeepShellAlive(t *testing.T) {
	n := 0
	stats := func(_ context.Context, from, to string) error {
		n++
		if n == 1 {
			return errors.New("remote request failed")
		}
		return nil
	}

	out := runShell(t, "get_stats()\nbogus\nnope()\nget_stats()\n", stats)

	assert.Equal(t, 2, n)
	assert.Contains(t, out, "remote request failed")
	assert.Contains(t, out, "invalid command format")
	assert.Contains(t, out, `unknown method "nope"`)
}

func TestShell_EOFEnds(t *testing.T) {
	out := runShell(t, "help\n", func(context.Context, string, string) error { return nil })
	assert.Contains(t, out, "Available commands")
}
