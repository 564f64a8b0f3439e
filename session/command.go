package session

import (
	"context"
	"fmt"

	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/types"
)

// Blocks returns the blocks of the current turn.
func (s *Session) Blocks(ctx context.Context) ([]types.Block, error) {
	var blocks []types.Block
	err := s.call(ctx, func(ctx context.Context) error {
		if s.engine == nil {
			return ErrNoTurn
		}
		blocks = s.engine.Blocks()
		return nil
	})
	return blocks, err
}

// Execute applies a parsed command. Show, help, quit and none only render.
func (s *Session) Execute(ctx context.Context, cmd command.Command) (View, error) {
	switch cmd.Verb {
	case command.Submit:
		return s.Submit(ctx, cmd.BlockID)
	case command.Choose:
		return s.Choose(ctx, cmd.BlockID, cmd.OptionID)
	case command.Show, command.Help, command.Quit, command.None:
		return s.View(ctx)
	}
	return s.Do(ctx, func(ctx context.Context, e *form.Engine) error {
		switch cmd.Verb {
		case command.Pick:
			e.SelectSingle(cmd.BlockID, cmd.QuestionID, cmd.OptionID)
		case command.Toggle:
			e.ToggleMultiple(cmd.BlockID, cmd.QuestionID, cmd.OptionID)
		case command.Text:
			e.SetText(cmd.BlockID, cmd.QuestionID, cmd.Text)
		case command.Expand:
			e.ToggleExpansion(cmd.OptionKey())
		case command.Note:
			e.SetExpansionText(cmd.OptionKey(), cmd.Text)
		case command.Record:
			_, err := e.ToggleRecording(ctx, cmd.OptionKey())
			return err
		default:
			return fmt.Errorf("%w: %q", command.ErrUnrecognized, cmd.Verb)
		}
		return nil
	})
}
