package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/Bolton-and-Menk-GIS/configurable-maps-workshop-2023/timeline"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func writeEventsJSON(w io.Writer, events []timeline.Event) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(events)
}

func writeEventsTable(w io.Writer, events []timeline.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tDATE\tTITLE\tSUBTITLE\tLOCATION\tOBJECT ID")
	for i, event := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%v\n",
			i+1,
			event.FormattedDate,
			event.Title,
			deref(event.Subtitle),
			formatLocation(event),
			event.ObjectID,
		)
	}

	return tw.Flush()
}

// writeEventDetail renders the event under the cursor for the browse view.
func writeEventDetail(w io.Writer, state timeline.State) {
	event, ok := state.CurrentEvent()
	if !ok {
		fmt.Fprintln(w, "No events.")
		return
	}

	mode := ""
	if state.FilterMode {
		mode = fmt.Sprintf("  [filter: %d shown]", len(state.VisibleEvents()))
	}

	fmt.Fprintf(w, "[%d/%d] %s  %s%s\n", state.Cursor+1, len(state.Events), event.FormattedDate, event.Title, mode)

	if event.Subtitle != nil {
		fmt.Fprintf(w, "  %s\n", *event.Subtitle)
	}

	if event.Description != nil {
		for _, line := range strings.Split(*event.Description, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	fmt.Fprintf(w, "  location: %s\n", formatLocation(event))
}

func formatLocation(event timeline.Event) string {
	if !event.HasLocation() {
		return "-"
	}

	return fmt.Sprintf("%.5f, %.5f", event.LonLat.Lon(), event.LonLat.Lat())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
