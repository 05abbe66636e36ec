package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/magda-midigen/internal/midi"
	"github.com/Conceptual-Machines/magda-midigen/internal/tracks"
)

func newEncodeCmd() *cobra.Command {
	var tempo int

	cmd := &cobra.Command{
		Use:   "encode <tracks.json> <out.mid>",
		Short: "Encode a stored LLM response as a MIDI file",
		Long: "Validate and clamp a four-track JSON response (as kept by generate --keep-responses)\n" +
			"and write it as a Standard MIDI File without calling the LLM.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}

			ts, err := tracks.Parse(string(data))
			if err != nil {
				return fmt.Errorf("encode %s: %w", args[0], err)
			}

			if err := midi.WriteFile(args[1], ts, tempo); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d events, %d BPM)\n", args[1], ts.EventCount(), tempo)
			return nil
		},
	}

	cmd.Flags().IntVar(&tempo, "tempo", midi.DefaultTempo, "tempo in BPM")

	return cmd
}
