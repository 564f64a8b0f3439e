package session

import (
	"sort"

	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/types"
)

// View is the render state of a session's current turn.
type View struct {
	ThreadID string      `json:"threadId"`
	TurnID   string      `json:"turnId"`
	Preface  string      `json:"preface"`
	Blocks   []BlockView `json:"blocks"`
	Errors   []string    `json:"errors,omitempty"`
}

type BlockView struct {
	ID         string                  `json:"id"`
	Kind       types.Kind              `json:"kind"`
	Mode       types.Mode              `json:"mode"`
	Phase      types.Phase             `json:"phase"`
	Complete   bool                    `json:"complete"`
	Missing    []types.FieldInfo       `json:"missing,omitempty"`
	Block      types.Block             `json:"block"`
	Answers    map[string]types.Answer `json:"answers,omitempty"`
	Expansions []form.ExpansionEntry   `json:"expansions,omitempty"`
	Recording  []Recording             `json:"recording,omitempty"`
	Chosen     []string                `json:"chosen,omitempty"`
}

// Recording is an active capture; clients that recognize speech themselves
// hand the token back with the transcript.
type Recording struct {
	Key   types.OptionKey `json:"key"`
	Token string          `json:"token"`
}

// Block looks up a block view by id.
func (v View) Block(id string) (BlockView, bool) {
	for _, b := range v.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return BlockView{}, false
}

func (s *Session) view() View {
	v := View{
		ThreadID: s.id,
		TurnID:   s.turnID,
		Preface:  s.result.Preface,
		Blocks:   []BlockView{},
		Errors:   s.reports,
	}
	s.reports = nil
	if s.engine == nil {
		return v
	}
	snap := s.engine.Snapshot()
	recording := s.engine.RecordingKeys()
	sort.Slice(recording, func(i, j int) bool {
		return recording[i].String() < recording[j].String()
	})
	for _, b := range s.engine.Blocks() {
		id := b.BlockID()
		bv := BlockView{
			ID:       id,
			Kind:     b.Kind(),
			Mode:     types.ModeOf(b),
			Phase:    s.engine.Phase(id),
			Complete: s.engine.IsBlockComplete(b),
			Missing:  s.engine.MissingRequired(b),
			Block:    b,
			Chosen:   s.engine.Chosen(id),
		}
		if answers := s.engine.BuildSubmission(b); len(answers) > 0 {
			bv.Answers = answers
		}
		for _, x := range snap.Expansions {
			if x.Key.BlockID == id {
				bv.Expansions = append(bv.Expansions, x)
			}
		}
		for _, k := range recording {
			if k.BlockID != id {
				continue
			}
			token, _ := s.engine.RecordingToken(k)
			bv.Recording = append(bv.Recording, Recording{Key: k, Token: token})
		}
		v.Blocks = append(v.Blocks, bv)
	}
	return v
}
