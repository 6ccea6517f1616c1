// Package recognize provides the recognize command.
package recognize

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamokeah/shamzam/internal/app"
	"github.com/adamokeah/shamzam/internal/codec"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/reconcile"
	"github.com/adamokeah/shamzam/internal/service"
)

// Command creates the recognize command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recognize <fragment-file>",
		Short: "Identify an audio fragment and look it up in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Service.Recognize(cmd.Context(), fragment)
			if err != nil {
				return err
			}

			if output != "" && outcome.Kind == reconcile.RecognizedAndCataloged {
				if err := WritePayload(output, outcome.Payload); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, outcome)
			}
			PrintOutcome(out, outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the cataloged track's audio to this file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

// PrintOutcome writes a one-line description of outcome.
func PrintOutcome(out io.Writer, outcome reconcile.Outcome) {
	switch outcome.Kind {
	case reconcile.RecognizedAndCataloged:
		fmt.Fprintf(out, "Recognized %s - %s (track %d)\n", outcome.Track.Artist, outcome.Track.Title, outcome.Track.ID)
	case reconcile.RecognizedButAbsent:
		fmt.Fprintf(out, "Recognized %s - %s, not in catalog\n", outcome.Recognized.Artist, outcome.Recognized.Title)
	default:
		fmt.Fprintln(out, "No match")
	}
}

// WritePayload decodes the stored payload and writes the audio to path.
func WritePayload(path string, payload codec.EncodedText) error {
	raw, err := codec.Decode(payload)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeJSON(out io.Writer, outcome reconcile.Outcome) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(service.NewOutcomeEvent(outcome, time.Now()))
}
