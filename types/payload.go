package types

// BatchSubmission is forwarded to the dialogue engine when a batch-submit
// block is continued. Answers are keyed by question id.
type BatchSubmission struct {
	BlockID string            `json:"blockId"`
	Answers map[string]Answer `json:"answers"`
}

// OptionSelection is forwarded when a NextSteps option is clicked.
// Elaboration is omitted unless the option's panel was open with text.
type OptionSelection struct {
	BlockID     string `json:"-"`
	OptionID    string `json:"optionId"`
	Elaboration string `json:"elaboration,omitempty"`
}

func (s OptionSelection) HasElaboration() bool {
	return s.Elaboration != ""
}
