package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/tbxark/intakeform/block"
	"github.com/tbxark/intakeform/types"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a message and print the blocks it carries",
	Long: `Parse reads a dialogue message from a file, or stdin when no file is
given, and prints its preface and blocks. Malformed blocks show up as empty
generic choices, exactly as a session would render them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print the parsed blocks as protocol payloads")
}

func runParse(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open message: %w", err)
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}

	r := block.Parse(string(raw))
	out := cmd.OutOrStdout()
	if parseJSON {
		payloads := make([]block.Payload, 0, len(r.Blocks))
		for _, b := range r.Blocks {
			payloads = append(payloads, block.ToPayload(b))
		}
		data, err := sonic.ConfigStd.MarshalIndent(map[string]any{
			"preface": r.Preface,
			"blocks":  payloads,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if r.Preface != "" {
		fmt.Fprintln(out, r.Preface)
		fmt.Fprintln(out)
	}
	if len(r.Blocks) == 0 {
		fmt.Fprintln(out, "(no blocks)")
		return nil
	}
	fmt.Fprint(out, types.FormatBlocks(r.Blocks))
	return nil
}
