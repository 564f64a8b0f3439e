package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatBlocks renders a markdown overview of the blocks, one row per
// question (or per option for NextSteps).
func FormatBlocks(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Block", "Kind", "Question", "Type", "Required", "Options")
	for _, b := range blocks {
		switch v := b.(type) {
		case *NextSteps:
			for _, o := range v.Options {
				_ = table.Append(v.ID, string(v.Kind()), "", "action", "no", optionLabel(o))
			}
			if len(v.Options) == 0 {
				_ = table.Append(v.ID, string(v.Kind()), "", "action", "no", "")
			}
		case *DeepIntakeRound, *CollectInfo, *QuestionBundle, *GenericChoice:
			for _, q := range QuestionsOf(v) {
				_ = table.Append(b.BlockID(), string(b.Kind()), questionLabel(q), string(q.Type), yesNo(q.Required), formatOptions(q.Options))
			}
		}
	}
	_ = table.Render()
	return buf.String()
}

// FormatMissing renders the required questions that still lack answers.
func FormatMissing(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Missing required answers:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Question", "Key", "Description")
	for _, field := range fields {
		_ = table.Append(field.DisplayName, field.Key.String(), field.Description)
	}
	_ = table.Render()
	return buf.String()
}

// FormatSubmission renders a batch submission for a prompt.
func FormatSubmission(sub BatchSubmission) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("# Answers for block %s:\n", sub.BlockID))
	if len(sub.Answers) == 0 {
		buf.WriteString("none\n")
		return buf.String()
	}
	keys := make([]string, 0, len(sub.Answers))
	for k := range sub.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Question", "Answer")
	for _, k := range keys {
		_ = table.Append(k, sub.Answers[k].String())
	}
	_ = table.Render()
	return buf.String()
}

// FormatSelection renders an option selection for a prompt.
func FormatSelection(sel OptionSelection) string {
	s := fmt.Sprintf("# Selected next step:\n%s", sel.OptionID)
	if sel.HasElaboration() {
		s += fmt.Sprintf("\n> details: %s", sel.Elaboration)
	}
	return s
}

func questionLabel(q Question) string {
	if q.Label != "" {
		return q.Label
	}
	return q.ID
}

func optionLabel(o Option) string {
	if o.Label == o.ID || o.ID == "" {
		return o.Label
	}
	return fmt.Sprintf("%s (%s)", o.Label, o.ID)
}

func formatOptions(opts []Option) string {
	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, optionLabel(o))
	}
	return strings.Join(labels, " / ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
