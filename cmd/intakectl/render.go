package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/types"
)

// renderView prints a turn for the terminal: the preface, a table of the
// blocks and then the live state of each block.
func renderView(w io.Writer, v session.View) {
	if v.Preface != "" {
		fmt.Fprintf(w, "\nassistant: %s\n", v.Preface)
	}
	blocks := make([]types.Block, 0, len(v.Blocks))
	for _, b := range v.Blocks {
		blocks = append(blocks, b.Block)
	}
	if len(blocks) > 0 {
		fmt.Fprintf(w, "\n%s\n", types.FormatBlocks(blocks))
	}
	for i, b := range v.Blocks {
		fmt.Fprintf(w, "[%d] %s (%s)\n", i+1, b.ID, b.Phase)
		ids := make([]string, 0, len(b.Answers))
		for id := range b.Answers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "    %s = %s\n", id, b.Answers[id])
		}
		for _, x := range b.Expansions {
			if x.State.Expanded || x.State.Text != "" {
				fmt.Fprintf(w, "    note %s: %q%s\n", x.Key.OptionID, x.State.Text, openMark(x.State.Expanded))
			}
		}
		for _, r := range b.Recording {
			fmt.Fprintf(w, "    recording %s\n", r.Key.OptionID)
		}
		if len(b.Chosen) > 0 {
			fmt.Fprintf(w, "    chosen: %s\n", strings.Join(b.Chosen, ", "))
		}
		if len(b.Missing) > 0 && types.ModeOf(b.Block) == types.ModeBatchSubmit {
			fmt.Fprint(w, indent(types.FormatMissing(b.Missing), "    "))
		}
	}
	for _, msg := range v.Errors {
		fmt.Fprintf(w, "! %s\n", msg)
	}
}

func openMark(open bool) string {
	if open {
		return ""
	}
	return " (closed)"
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
