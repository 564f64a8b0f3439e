package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbxark/intakeform/types"
)

// Submit dispatches a batch-submit block. An incomplete block is reported
// once and returns ErrIncomplete without dispatching. On success the block
// becomes terminal and the dialogue engine's reply is returned.
func (e *Engine) Submit(ctx context.Context, blockID string) (string, error) {
	b, ok := e.index[blockID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	if types.ModeOf(b) != types.ModeBatchSubmit {
		return "", fmt.Errorf("%w: %s is %s", ErrWrongMode, blockID, types.ModeOf(b))
	}
	if e.submitted[blockID] {
		return "", fmt.Errorf("%w: %s", ErrTerminal, blockID)
	}
	if err := e.check(b); err != nil {
		msg := IncompleteMessage
		if !errors.Is(err, ErrIncomplete) {
			msg = err.Error()
		}
		e.reporter.ReportError(msg)
		e.logger.Debug("submit blocked", "block", blockID, "missing", len(e.MissingRequired(b)))
		return "", fmt.Errorf("%w: %s", ErrIncomplete, msg)
	}
	if e.dispatcher == nil {
		return "", ErrNoDispatcher
	}

	sub := types.BatchSubmission{BlockID: blockID, Answers: e.BuildSubmission(b)}
	reply, err := e.dispatcher.SubmitAnswers(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("failed to submit answers for block %s: %w", blockID, err)
	}
	e.submitted[blockID] = true
	e.stopBlockRecordings(blockID)
	e.logger.Info("block submitted", "block", blockID, "answers", len(sub.Answers))
	return reply, nil
}

// Choose dispatches one NextSteps option. The option's elaboration is sent
// only when its panel is open and holds text.
func (e *Engine) Choose(ctx context.Context, blockID, optionID string) (string, error) {
	b, ok := e.index[blockID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBlock, blockID)
	}
	ns, ok := b.(*types.NextSteps)
	if !ok {
		return "", fmt.Errorf("%w: %s is %s", ErrWrongMode, blockID, types.ModeOf(b))
	}
	if _, ok := ns.Option(optionID); !ok {
		e.logger.Debug("choosing unlisted option", "block", blockID, "option", optionID)
	}
	if e.dispatcher == nil {
		return "", ErrNoDispatcher
	}

	sel := types.OptionSelection{
		BlockID:     blockID,
		OptionID:    optionID,
		Elaboration: e.elaboration(types.NewOptionKey(blockID, "", optionID)),
	}
	reply, err := e.dispatcher.SelectOption(ctx, sel)
	if err != nil {
		return "", fmt.Errorf("failed to select option %s of block %s: %w", optionID, blockID, err)
	}
	e.chosen[blockID] = append(e.chosen[blockID], optionID)
	e.logger.Info("option selected", "block", blockID, "option", optionID, "elaboration", sel.HasElaboration())
	return reply, nil
}
