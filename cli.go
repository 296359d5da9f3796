package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hdonnay/Pass/internal/launcher"
)

// PrintItems writes one line per item: id, text, subtext and the action IDs.
// Launchers that drive scripts (rofi, dmenu) can feed the first column back
// through doAction.
func printItems(ctx context.Context, w io.Writer, h *launcher.Handler, query string) error {
	items, err := h.Items(ctx, launcher.StripTrigger(query))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 4, 4, 1, '\t', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Text, it.Subtext, actionIDs(it))
	}
	return tw.Flush()
}

func doAction(ctx context.Context, h *launcher.Handler, query, id, action string) error {
	query = launcher.StripTrigger(query)
	if id == "" {
		id = strings.TrimSpace(query)
	}
	return h.Do(ctx, query, id, action)
}

func actionIDs(it launcher.Item) string {
	ids := make([]string, len(it.Actions))
	for i, a := range it.Actions {
		ids[i] = a.ID
	}
	return strings.Join(ids, " ")
}
