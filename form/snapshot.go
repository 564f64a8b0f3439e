package form

import (
	"sort"

	"github.com/tbxark/intakeform/types"
)

type AnswerEntry struct {
	Key   types.AnswerKey `json:"key"`
	Value types.Answer    `json:"value"`
}

type ExpansionEntry struct {
	Key   types.OptionKey `json:"key"`
	State types.Expansion `json:"state"`
}

// Snapshot is the serializable state of an engine. Active recordings are
// not part of it: captures do not survive the process that started them.
type Snapshot struct {
	Answers    []AnswerEntry       `json:"answers"`
	Expansions []ExpansionEntry    `json:"expansions"`
	Submitted  []string            `json:"submitted,omitempty"`
	Chosen     map[string][]string `json:"chosen,omitempty"`
}

// Snapshot copies the engine state in a stable order.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Answers:    make([]AnswerEntry, 0, len(e.answers)),
		Expansions: make([]ExpansionEntry, 0, len(e.expansions)),
	}
	for k, v := range e.answers {
		s.Answers = append(s.Answers, AnswerEntry{Key: k, Value: v})
	}
	sort.Slice(s.Answers, func(i, j int) bool {
		return s.Answers[i].Key.String() < s.Answers[j].Key.String()
	})
	for k, v := range e.expansions {
		s.Expansions = append(s.Expansions, ExpansionEntry{Key: k, State: v})
	}
	sort.Slice(s.Expansions, func(i, j int) bool {
		return s.Expansions[i].Key.String() < s.Expansions[j].Key.String()
	})
	for id := range e.submitted {
		s.Submitted = append(s.Submitted, id)
	}
	sort.Strings(s.Submitted)
	if len(e.chosen) > 0 {
		s.Chosen = make(map[string][]string, len(e.chosen))
		for id, opts := range e.chosen {
			s.Chosen[id] = append([]string(nil), opts...)
		}
	}
	return s
}

// Restore replaces the engine state with s and cancels active captures.
func (e *Engine) Restore(s Snapshot) {
	e.StopAll()
	e.answers = make(map[types.AnswerKey]types.Answer, len(s.Answers))
	for _, a := range s.Answers {
		e.answers[a.Key] = a.Value
	}
	e.expansions = make(map[types.OptionKey]types.Expansion, len(s.Expansions))
	for _, x := range s.Expansions {
		e.expansions[x.Key] = x.State
	}
	e.submitted = make(map[string]bool, len(s.Submitted))
	for _, id := range s.Submitted {
		e.submitted[id] = true
	}
	e.chosen = make(map[string][]string, len(s.Chosen))
	for id, opts := range s.Chosen {
		e.chosen[id] = append([]string(nil), opts...)
	}
}
