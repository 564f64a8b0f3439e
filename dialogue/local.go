package dialogue

import (
	"context"
	"fmt"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/logger"
	"github.com/tbxark/intakeform/profile"
	"github.com/tbxark/intakeform/store"
	"github.com/tbxark/intakeform/types"
)

const (
	RestartOption = "restart"
	FinishOption  = "finish"

	summaryBlockID = "summary_next_steps"
)

// LocalState is the per-thread progress of a Local engine.
type LocalState struct {
	Step    int             `json:"step"`
	Done    bool            `json:"done"`
	Profile profile.Profile `json:"profile"`
}

// Local replays a fixed script of turns and keeps the accepted answers in a
// profile. Once the script runs out it summarizes the profile and offers to
// restart or finish.
type Local struct {
	script []string
	state  store.Store[LocalState]
	seed   profile.Profile
	log    *logger.Logger
}

type LocalOption func(*Local)

func WithScript(turns ...string) LocalOption {
	return func(l *Local) { l.script = turns }
}

func WithSeed(p profile.Profile) LocalOption {
	return func(l *Local) { l.seed = p }
}

func WithStateCache(c store.Cache[LocalState]) LocalOption {
	return func(l *Local) { l.state = store.New(c, "dialogue:local") }
}

func WithLocalLogger(log *logger.Logger) LocalOption {
	return func(l *Local) { l.log = logger.OrNop(log) }
}

func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		script: DefaultScript(),
		state:  store.New(store.Cache[LocalState](store.NewMemoryCache[LocalState]()), "dialogue:local"),
		seed:   profile.New(),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Start(ctx context.Context) (string, error) {
	ctx = withThread(ctx)
	seeded, err := profile.Seed(l.seed)
	if err != nil {
		return "", fmt.Errorf("seed profile: %w", err)
	}
	st := LocalState{Profile: seeded}
	if err := l.state.Set(ctx, st); err != nil {
		return "", fmt.Errorf("save local state: %w", err)
	}
	return l.turn(st), nil
}

func (l *Local) SubmitAnswers(ctx context.Context, sub types.BatchSubmission) (string, error) {
	ctx = withThread(ctx)
	st, err := l.load(ctx)
	if err != nil {
		return "", err
	}
	st.Profile, err = st.Profile.Accept(sub)
	if err != nil {
		return "", fmt.Errorf("accept answers: %w", err)
	}
	st.Step++
	if err := l.state.Set(ctx, st); err != nil {
		return "", fmt.Errorf("save local state: %w", err)
	}
	l.log.Debug("local turn advanced", "block", sub.BlockID, "step", st.Step)
	return l.turn(st), nil
}

func (l *Local) SelectOption(ctx context.Context, sel types.OptionSelection) (string, error) {
	ctx = withThread(ctx)
	if sel.OptionID == RestartOption {
		return l.Start(ctx)
	}
	st, err := l.load(ctx)
	if err != nil {
		return "", err
	}
	st.Profile, err = st.Profile.Choose(sel)
	if err != nil {
		return "", fmt.Errorf("record selection: %w", err)
	}
	if sel.OptionID == FinishOption {
		st.Done = true
	} else {
		st.Step++
	}
	if err := l.state.Set(ctx, st); err != nil {
		return "", fmt.Errorf("save local state: %w", err)
	}
	return l.turn(st), nil
}

// Profile returns the accepted answers of the thread in ctx.
func (l *Local) Profile(ctx context.Context) (profile.Profile, error) {
	st, err := l.load(withThread(ctx))
	return st.Profile, err
}

func (l *Local) load(ctx context.Context) (LocalState, error) {
	st, ok, err := l.state.Get(ctx)
	if err != nil {
		return LocalState{}, fmt.Errorf("load local state: %w", err)
	}
	if !ok {
		return LocalState{Profile: profile.New()}, nil
	}
	return st, nil
}

func (l *Local) turn(st LocalState) string {
	if st.Done {
		return "Thank you, your intake is complete.\n\n" + st.Profile.Summary()
	}
	if st.Step < len(l.script) {
		return l.script[st.Step]
	}
	return block.EncodeMessage("Here is what I have so far:\n\n"+st.Profile.Summary(), []types.Block{
		&types.NextSteps{
			ID:    summaryBlockID,
			Title: "What would you like to do next?",
			Options: []types.Option{
				{ID: FinishOption, Label: "Looks right, finish"},
				{ID: RestartOption, Label: "Start over"},
			},
		},
	})
}

// DefaultScript is a short intake: basic details, two deep rounds and a
// preference bundle.
func DefaultScript() []string {
	return []string{
		block.EncodeMessage("Hi! Before we begin, a few basics.", []types.Block{
			&types.CollectInfo{
				ID:    "about_you",
				Title: "About you",
				Questions: []types.Question{
					{ID: "name", Label: "What should I call you?", Required: true, Type: types.Text, Placeholder: "Your name"},
					{ID: "age_range", Label: "Your age range", Required: true, Type: types.SingleChoice, Options: options("18-29", "30-44", "45-59", "60+")},
					{ID: "city", Label: "Where are you based?", Type: types.Text, Placeholder: "City"},
				},
			},
		}),
		block.EncodeMessage("Thanks. Let's understand what brings you here.", []types.Block{
			&types.DeepIntakeRound{
				ID:          "round_1",
				Title:       "What's on your mind",
				RoundNumber: 1,
				TotalRounds: 2,
				Questions: []types.Question{
					{ID: "topics", Label: "Which areas feel hardest right now?", Required: true, Type: types.MultipleChoice, Options: options("Sleep", "Stress", "Relationships", "Work")},
					{ID: "duration", Label: "How long has this been going on?", Required: true, Type: types.SingleChoice, Options: options("A few weeks", "A few months", "Over a year")},
				},
			},
		}),
		block.EncodeMessage("That helps. A little more detail.", []types.Block{
			&types.DeepIntakeRound{
				ID:          "round_2",
				Title:       "Day to day",
				RoundNumber: 2,
				TotalRounds: 2,
				Questions: []types.Question{
					{ID: "impact", Label: "How much does it affect your daily life?", Required: true, Type: types.SingleChoice, Options: options("A little", "Quite a bit", "A lot")},
					{ID: "notes", Label: "Anything else you'd like me to know?", Type: types.Text},
				},
			},
		}),
		block.EncodeMessage("Last step: how you'd like to work together.", []types.Block{
			&types.QuestionBundle{
				ID:    "preferences",
				Title: "Preferences",
				Questions: []types.Question{
					{ID: "length", Label: "Preferred session length", Required: true, Type: types.SingleChoice, Options: options("15 minutes", "30 minutes", "45 minutes")},
					{ID: "time", Label: "Best time of day", Required: true, Type: types.SingleChoice, Options: options("Morning", "Afternoon", "Evening")},
				},
			},
		}),
	}
}

func options(labels ...string) []types.Option {
	out := make([]types.Option, 0, len(labels))
	for _, l := range labels {
		out = append(out, types.Option{ID: l, Label: l})
	}
	return out
}
