// Package profile keeps the answers a user has committed across turns as a
// JSON document updated with RFC 6902 patches.
package profile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tbxark/intakeform/types"
)

type Selection struct {
	BlockID     string `json:"blockId"`
	OptionID    string `json:"optionId"`
	Elaboration string `json:"elaboration,omitempty"`
}

// Profile is the accepted-answer document. Answers are keyed by block id,
// then question id.
type Profile struct {
	Answers    map[string]map[string]types.Answer `json:"answers"`
	Selections []Selection                        `json:"selections"`
}

func New() Profile {
	return Profile{Answers: map[string]map[string]types.Answer{}, Selections: []Selection{}}
}

// Answer looks up a committed answer.
func (p Profile) Answer(blockID, questionID string) (types.Answer, bool) {
	a, ok := p.Answers[blockID][questionID]
	return a, ok
}

func (p Profile) Empty() bool {
	return len(p.Answers) == 0 && len(p.Selections) == 0
}

// Summary renders the profile as short markdown, blocks and questions in
// lexical order.
func (p Profile) Summary() string {
	if p.Empty() {
		return "Nothing recorded yet."
	}
	var sb strings.Builder
	blocks := make([]string, 0, len(p.Answers))
	for id := range p.Answers {
		blocks = append(blocks, id)
	}
	sort.Strings(blocks)
	for _, id := range blocks {
		answers := p.Answers[id]
		questions := make([]string, 0, len(answers))
		for q := range answers {
			questions = append(questions, q)
		}
		sort.Strings(questions)
		for _, q := range questions {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", q, answers[q].String()))
		}
	}
	for _, s := range p.Selections {
		sb.WriteString(fmt.Sprintf("- chose %s", s.OptionID))
		if s.Elaboration != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", s.Elaboration))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Accept commits a batch submission.
func (p Profile) Accept(sub types.BatchSubmission) (Profile, error) {
	return Apply(p, AcceptOps(p, sub))
}

// Choose records an immediate selection.
func (p Profile) Choose(sel types.OptionSelection) (Profile, error) {
	return Apply(p, ChooseOps(sel))
}
