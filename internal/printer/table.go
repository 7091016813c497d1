package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/execgate/internal/model"
)

// TablePrinter prints execgate information in a human readable format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintInstances prints instance records in a table format.
func (t *TablePrinter) PrintInstances(records []model.InstanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "POOL\tINSTANCE\tLAST REQUEST")

	// Print rows.
	for _, r := range records {
		last := "never"
		if r.LastRequestAt != nil {
			last = TimeAgo(*r.LastRequestAt)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Pool, r.ID, last)
	}

	return nil
}

// PrintRunResult prints the result of a command run.
func (t *TablePrinter) PrintRunResult(resp model.GatewayResponse) error {
	if !resp.Success {
		fmt.Fprintf(t.writer, "Rejected:   %s\n", deref(resp.Error))
		fmt.Fprintf(t.writer, "Time:       %s\n", FormatTimestamp(model.FromEpochSeconds(resp.Timestamp)))
		return nil
	}

	output := deref(resp.Output)
	exitCode := -1
	if resp.ExitCode != nil {
		exitCode = *resp.ExitCode
	}

	fmt.Fprintf(t.writer, "Command:    %s\n", deref(resp.Command))
	fmt.Fprintf(t.writer, "Exit code:  %d\n", exitCode)
	fmt.Fprintf(t.writer, "Time:       %s\n", FormatTimestamp(model.FromEpochSeconds(resp.Timestamp)))
	fmt.Fprintf(t.writer, "Output:     %s\n", FormatBytes(int64(len(output))))

	if output != "" {
		fmt.Fprintf(t.writer, "\n%s", output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Fprintln(t.writer)
		}
	}

	if stderr := deref(resp.Error); stderr != "" {
		fmt.Fprintf(t.writer, "\nStderr:\n%s", stderr)
		if !strings.HasSuffix(stderr, "\n") {
			fmt.Fprintln(t.writer)
		}
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
