// Package cmd assembles the shamzam command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adamokeah/shamzam/cmd/config"
	"github.com/adamokeah/shamzam/cmd/recognize"
	"github.com/adamokeah/shamzam/cmd/serve"
	"github.com/adamokeah/shamzam/cmd/track"
	"github.com/adamokeah/shamzam/internal/buildinfo"
	"github.com/adamokeah/shamzam/internal/conf"
)

// RootCommand creates and returns the root command. Settings are loaded
// from v in PersistentPreRunE, after flags are parsed, and are shared with
// every subcommand through settings.
func RootCommand(v *viper.Viper, build *buildinfo.Info) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "shamzam",
		Short:         "Music catalog and fragment recognition service",
		Version:       build.Version(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := conf.Load(v, configFile)
			if err != nil {
				return err
			}
			*settings = *loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: search ., ~/.config/shamzam, /etc/shamzam)")
	if err := setupFlags(rootCmd, v); err != nil {
		// flag names are static; a failure here is a programming error
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		track.Command(settings),
		recognize.Command(settings),
		config.Command(settings),
	)
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface and
// binds them over the configuration keys they override.
func setupFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("db", "", "Path to the SQLite catalog database")
	flags.String("api-token", "", "AudD API token")

	bindings := map[string]string{
		"debug":                "debug",
		"logging.level":        "log-level",
		"database.sqlite.path": "db",
		"recognition.apitoken": "api-token",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
