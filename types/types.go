package types

// Phase is the dispatch state of a single block within a turn.
//
// Batch-submit blocks move Editing -> Ready -> Submitted; immediate-select
// blocks move Idle -> Selected.
type Phase string

const (
	PhaseEditing   Phase = "editing"
	PhaseReady     Phase = "ready"
	PhaseSubmitted Phase = "submitted"
	PhaseIdle      Phase = "idle"
	PhaseSelected  Phase = "selected"
)

// Terminal reports whether no further local mutation is meaningful.
func (p Phase) Terminal() bool {
	return p == PhaseSubmitted
}

// Mode is the dispatch protocol a block participates in.
type Mode string

const (
	ModeBatchSubmit     Mode = "batch_submit"
	ModeImmediateSelect Mode = "immediate_select"
)

// FieldInfo describes one required question that still lacks an answer.
type FieldInfo struct {
	Key         AnswerKey `json:"key"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}
