package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/treeos-project/treeos-control/internal/progress"
)

// newFeed prints progress lines to the command output. Close it before returning so
// every line is flushed.
func newFeed(cmd *cobra.Command) *progress.Feed {
	out := cmd.OutOrStdout()

	return progress.NewFeed(func(line progress.Line) {
		printLine(out, line.String())
	})
}

func printLine(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s)
}
