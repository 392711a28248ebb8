package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/eventdesk/internal/model"
	"github.com/alfredjeanlab/eventdesk/internal/ui"
)

const maxNamesWidth = 50

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderID(id string) string {
	return ui.RenderAccent(id)
}

func printEventList(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("No events found."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tATTRS\tNAMES")
	for _, e := range events {
		names := strings.Join(e.Attributes.Names(), ", ")
		if len(names) > maxNamesWidth {
			names = names[:maxNamesWidth-3] + "..."
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.ID, len(e.Attributes), names)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d events\n", len(events))
}

func printEvent(w io.Writer, e *model.Event) {
	fmt.Fprintf(w, "ID: %s\n\n", renderID(e.ID))
	if len(e.Attributes) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("This event has no attributes."))
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tPROMPT")
	for _, name := range e.Attributes.Names() {
		fmt.Fprintf(tw, "%s\t%s\n", name, e.Attributes[name])
	}
	tw.Flush()
}
