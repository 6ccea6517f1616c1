// Package track provides catalog management commands.
package track

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/adamokeah/shamzam/internal/app"
	"github.com/adamokeah/shamzam/internal/catalog"
	"github.com/adamokeah/shamzam/internal/conf"
	"github.com/adamokeah/shamzam/internal/service"
)

// Command creates the track command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage the track catalog",
	}
	cmd.AddCommand(
		addCommand(settings),
		listCommand(settings),
		deleteCommand(settings),
		resetCommand(settings),
	)
	return cmd
}

// withService runs fn against a freshly wired service.
func withService(ctx context.Context, settings *conf.Settings, fn func(*service.Service) error) error {
	a, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.Service)
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var title, artist string

	cmd := &cobra.Command{
		Use:   "add <audio-file>",
		Short: "Add an audio file to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return withService(cmd.Context(), settings, func(svc *service.Service) error {
				id, err := svc.AddTrack(cmd.Context(), title, artist, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added track %d: %s - %s\n", id, artist, title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&artist, "artist", "", "Track artist")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("artist")
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), settings, func(svc *service.Service) error {
				tracks, err := svc.ListTracks(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return RenderTracks(out, tracks, resolveFormat(format, out))
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "Output format: auto, table or csv")
	return cmd
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	var (
		id            uint
		title, artist string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a track by id, or every track with a title and artist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.DeleteRequest{ID: id, Title: title, Artist: artist}
			return withService(cmd.Context(), settings, func(svc *service.Service) error {
				removed, err := svc.DeleteTrack(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d track(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().UintVar(&id, "id", 0, "Track id")
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&artist, "artist", "", "Track artist")
	cmd.MarkFlagsMutuallyExclusive("id", "title")
	cmd.MarkFlagsMutuallyExclusive("id", "artist")
	cmd.MarkFlagsRequiredTogether("title", "artist")
	cmd.MarkFlagsOneRequired("id", "title")
	return cmd
}

func resetCommand(settings *conf.Settings) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every track and restart id numbering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset the catalog without --yes")
			}
			return withService(cmd.Context(), settings, func(svc *service.Service) error {
				if err := svc.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog reset")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

// Output formats for RenderTracks.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
)

// resolveFormat picks a table for terminals and CSV for pipes when format is auto.
func resolveFormat(format string, out io.Writer) string {
	if format != "auto" {
		return format
	}
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return FormatTable
	}
	return FormatCSV
}

// RenderTracks writes tracks as a table or CSV.
func RenderTracks(out io.Writer, tracks []catalog.TrackInfo, format string) error {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Title", "Artist"})
	for _, t := range tracks {
		tw.AppendRow(table.Row{strconv.FormatUint(uint64(t.ID), 10), t.Title, t.Artist})
	}

	var rendered string
	switch format {
	case FormatTable:
		tw.SetStyle(table.StyleRounded)
		rendered = tw.Render()
	case FormatCSV:
		rendered = tw.RenderCSV()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	_, err := fmt.Fprintln(out, rendered)
	return err
}
