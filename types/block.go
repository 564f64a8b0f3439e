package types

// Kind identifies a Block variant.
type Kind string

const (
	KindDeepIntakeRound Kind = "deep_intake_round"
	KindCollectInfo     Kind = "collect_info"
	KindNextSteps       Kind = "next_steps"
	KindQuestionBundle  Kind = "question_bundle"
	KindGenericChoice   Kind = "generic_choice"
)

// QuestionType is the input control a question is answered with.
type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	Text           QuestionType = "text"
)

// ChoiceMode is the selection mode of a GenericChoice block.
type ChoiceMode string

const (
	ChoiceSingle   ChoiceMode = "single"
	ChoiceMultiple ChoiceMode = "multiple"
)

// Block is one self-contained unit of structured conversational UI. The set
// of implementations is closed; switch over the concrete types with
// QuestionsOf as the reference for exhaustive matching.
type Block interface {
	Kind() Kind
	BlockID() string
	isBlock()
}

type Option struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Required    bool         `json:"required"`
	Type        QuestionType `json:"type"`
	Options     []Option     `json:"options,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type DeepIntakeRound struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	RoundNumber int        `json:"roundNumber,omitempty"`
	TotalRounds int        `json:"totalRounds,omitempty"`
	Questions   []Question `json:"questions"`
}

type CollectInfo struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

type NextSteps struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Options     []Option `json:"options"`
}

// Option returns the option with the given id.
func (n *NextSteps) Option(optionID string) (Option, bool) {
	for _, o := range n.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	return Option{}, false
}

type QuestionBundle struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

type GenericChoice struct {
	ID       string     `json:"id"`
	Question string     `json:"question,omitempty"`
	Options  []string   `json:"options"`
	Mode     ChoiceMode `json:"mode"`
}

func (b *DeepIntakeRound) Kind() Kind { return KindDeepIntakeRound }
func (b *CollectInfo) Kind() Kind     { return KindCollectInfo }
func (b *NextSteps) Kind() Kind       { return KindNextSteps }
func (b *QuestionBundle) Kind() Kind  { return KindQuestionBundle }
func (b *GenericChoice) Kind() Kind   { return KindGenericChoice }

func (b *DeepIntakeRound) BlockID() string { return b.ID }
func (b *CollectInfo) BlockID() string     { return b.ID }
func (b *NextSteps) BlockID() string       { return b.ID }
func (b *QuestionBundle) BlockID() string  { return b.ID }
func (b *GenericChoice) BlockID() string   { return b.ID }

func (*DeepIntakeRound) isBlock() {}
func (*CollectInfo) isBlock()     {}
func (*NextSteps) isBlock()       {}
func (*QuestionBundle) isBlock()  {}
func (*GenericChoice) isBlock()   {}

// QuestionsOf returns the questions a block asks. A GenericChoice is
// projected to a single required question keyed by the block id; NextSteps
// asks nothing.
func QuestionsOf(b Block) []Question {
	switch v := b.(type) {
	case *DeepIntakeRound:
		return v.Questions
	case *CollectInfo:
		return v.Questions
	case *QuestionBundle:
		return v.Questions
	case *NextSteps:
		return nil
	case *GenericChoice:
		return []Question{v.AsQuestion()}
	default:
		return nil
	}
}

// AsQuestion projects the block to the question its answer is stored under.
func (b *GenericChoice) AsQuestion() Question {
	qt := SingleChoice
	if b.Mode == ChoiceMultiple {
		qt = MultipleChoice
	}
	opts := make([]Option, 0, len(b.Options))
	for _, o := range b.Options {
		opts = append(opts, Option{ID: o, Label: o})
	}
	return Question{
		ID:       b.ID,
		Label:    b.Question,
		Required: true,
		Type:     qt,
		Options:  opts,
	}
}

// ModeOf reports the dispatch protocol of a block.
func ModeOf(b Block) Mode {
	switch b.(type) {
	case *NextSteps:
		return ModeImmediateSelect
	case *DeepIntakeRound, *CollectInfo, *QuestionBundle, *GenericChoice:
		return ModeBatchSubmit
	default:
		return ModeBatchSubmit
	}
}

// FindQuestion looks a question up by id.
func FindQuestion(b Block, questionID string) (Question, bool) {
	for _, q := range QuestionsOf(b) {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}
