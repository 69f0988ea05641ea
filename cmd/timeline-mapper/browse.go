package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const browseHelp = `commands:
  n           next event
  p           previous event
  g <number>  go to event number
  o <id>      go to the event with this object id
  f           toggle filter mode (show events up to the current one)
  l           list the visible events
  r           reload from the source
  q           quit`

func browseCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Step through the timeline interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			return runBrowse(cmd.Context(), a, os.Stdin, os.Stdout)
		},
	}
}

// runBrowse reads one command per line until q or end of input.
func runBrowse(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	loader := timeline.NewLoader(a.builder, timeline.NewNavigator())
	navigator := loader.Navigator()

	unsubscribe := navigator.Subscribe(func(state timeline.State) {
		if !state.Loading {
			writeEventDetail(out, state)
		}
	})
	defer unsubscribe()

	if _, err := loader.Reload(ctx, a.source, a.cfg.Timeline); err != nil {
		return err
	}

	fmt.Fprintln(out, a.cfg.App.Title)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		command, argument, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		argument = strings.TrimSpace(argument)

		switch command {
		case "":
			continue
		case "q", "quit":
			return nil
		case "n", "next":
			before := navigator.Cursor()
			navigator.Next()
			if navigator.Cursor() == before {
				fmt.Fprintln(out, "already at the last event")
			}
		case "p", "prev", "previous":
			before := navigator.Cursor()
			navigator.Previous()
			if navigator.Cursor() == before {
				fmt.Fprintln(out, "already at the first event")
			}
		case "g", "goto":
			number, err := strconv.Atoi(argument)
			if err != nil {
				fmt.Fprintf(out, "not an event number: %q\n", argument)
				continue
			}
			if err := navigator.Goto(number - 1); err != nil {
				fmt.Fprintf(out, "no event %d (1-%d)\n", number, len(navigator.Events()))
			}
		case "o", "object":
			if err := navigator.GotoObjectID(argument); errors.Is(err, timeline.ErrEventNotFound) {
				fmt.Fprintf(out, "no event with object id %s\n", argument)
			}
		case "f", "filter":
			navigator.ToggleFilterMode()
		case "l", "list":
			if err := writeEventsTable(out, navigator.VisibleEvents()); err != nil {
				return err
			}
		case "r", "reload":
			if _, err := loader.Reload(ctx, a.source, a.cfg.Timeline); err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
			}
		case "h", "help", "?":
			fmt.Fprintln(out, browseHelp)
		default:
			fmt.Fprintf(out, "unknown command %q, h for help\n", command)
		}
	}
}
