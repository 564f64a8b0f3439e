package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbxark/intakeform/command"
	"github.com/tbxark/intakeform/form"
	"github.com/tbxark/intakeform/session"
	"github.com/tbxark/intakeform/types"
	"github.com/tbxark/intakeform/voice"
)

var (
	chatThread   string
	chatAudioDir string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold an intake conversation in the terminal",
	Long: `Chat opens a conversation thread and reads commands from stdin.
With voice enabled, "record" transcribes <audio-dir>/<block>.<question>.<option>.wav.

` + command.Usage,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "console", "conversation thread id")
	chatCmd.Flags().StringVar(&chatAudioDir, "audio-dir", ".", "directory of pre-recorded answers used by record")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var capturer func(string) voice.Capturer
	if a.transcriber != nil {
		capturer = func(string) voice.Capturer {
			return voice.NewSpeechCapturer(voice.FileSource{Dir: chatAudioDir}, a.transcriber, a.log)
		}
	}
	sessions := a.sessions(capturer)
	defer sessions.Shutdown()

	s, resumed, err := sessions.Open(ctx, chatThread)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if resumed {
		view, err := s.View(ctx)
		if err != nil {
			return err
		}
		renderView(out, view)
	} else {
		view, err := s.Start(ctx)
		if err != nil {
			return err
		}
		renderView(out, view)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		line, rErr := reader.ReadString('\n')
		if rErr != nil && (!errors.Is(rErr, io.EOF) || strings.TrimSpace(line) == "") {
			fmt.Fprintln(out)
			return nil
		}
		quit, err := chatStep(ctx, a.parser, s, out, line)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

type chatSession interface {
	Blocks(ctx context.Context) ([]types.Block, error)
	Execute(ctx context.Context, cmd command.Command) (session.View, error)
}

// chatStep parses one line against the current blocks and applies it.
func chatStep(ctx context.Context, parser command.Parser, s chatSession, out io.Writer, line string) (bool, error) {
	blocks, err := s.Blocks(ctx)
	if err != nil {
		return false, err
	}
	cmd, err := parser.ParseCommand(ctx, line, blocks)
	if err != nil {
		return false, err
	}
	switch cmd.Verb {
	case command.Quit:
		return true, nil
	case command.Help:
		fmt.Fprintln(out, command.Usage)
		return false, nil
	case command.None:
		return false, nil
	}
	view, err := s.Execute(ctx, cmd)
	if errors.Is(err, form.ErrIncomplete) {
		err = nil
	}
	renderView(out, view)
	return false, err
}
