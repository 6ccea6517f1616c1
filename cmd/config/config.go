// Package config provides the config command, which prints the effective
// settings.
package config

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adamokeah/shamzam/internal/conf"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long:  "Print the configuration after merging the config file, environment and flags. Secrets are redacted unless --show-secrets is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			effective := settings.Redacted()
			if showSecrets {
				effective = settings
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(effective); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secrets in clear text")
	return cmd
}
