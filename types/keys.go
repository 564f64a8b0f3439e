package types

// AnswerKey addresses one question of one block.
type AnswerKey struct {
	BlockID    string `json:"block_id"`
	QuestionID string `json:"question_id"`
}

// OptionKey addresses one option of one question. NextSteps options leave
// QuestionID empty.
type OptionKey struct {
	BlockID    string `json:"block_id"`
	QuestionID string `json:"question_id,omitempty"`
	OptionID   string `json:"option_id"`
}

func NewAnswerKey(blockID, questionID string) AnswerKey {
	return AnswerKey{BlockID: blockID, QuestionID: questionID}
}

func NewOptionKey(blockID, questionID, optionID string) OptionKey {
	return OptionKey{BlockID: blockID, QuestionID: questionID, OptionID: optionID}
}

func (k AnswerKey) Option(optionID string) OptionKey {
	return OptionKey{BlockID: k.BlockID, QuestionID: k.QuestionID, OptionID: optionID}
}

func (k AnswerKey) String() string {
	return k.BlockID + ":" + k.QuestionID
}

func (k OptionKey) Answer() AnswerKey {
	return AnswerKey{BlockID: k.BlockID, QuestionID: k.QuestionID}
}

func (k OptionKey) String() string {
	if k.QuestionID == "" {
		return k.BlockID + ":" + k.OptionID
	}
	return k.BlockID + ":" + k.QuestionID + ":" + k.OptionID
}
