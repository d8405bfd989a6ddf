package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "actiond",
	Short: "Declarative action trigger engine",
	Long: `actiond is the action trigger engine of the cflux business suite.
Application events (a user clocked in, an invoice was sent) are raised
against a registry of named actions and fan out to workflows through
priority-ordered, conditional trigger bindings. Dispatch failures are
isolated so they can never abort the business operation that raised
the event.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".actiond.yml", "config file path")
}
