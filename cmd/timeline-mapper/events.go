package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func eventsCmd(opts *appOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Build the timeline once and print its events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd.Context(), opts, format, os.Stdout, os.Stderr)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")
	return cmd
}

func runEvents(ctx context.Context, opts *appOptions, format string, out, logOutput io.Writer) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format: %s", format)
	}

	a, err := openApp(ctx, opts, logOutput)
	if err != nil {
		return err
	}
	defer a.close()

	events, err := a.builder.BuildEvents(ctx, a.source, a.cfg.Timeline)
	if err != nil {
		return err
	}

	if format == formatJSON {
		return writeEventsJSON(out, events)
	}

	fmt.Fprintf(out, "%s (%d events)\n\n", a.cfg.App.Title, len(events))
	return writeEventsTable(out, events)
}
