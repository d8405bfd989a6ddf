package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cflux-app/actiond/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create a configuration file",
	Long:  `Walks through the actiond settings and writes them to .actiond.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard()
		if err != nil {
			return err
		}

		fmt.Println("\nNext steps:")
		fmt.Println("  actiond seed     # install the built-in action catalog")
		fmt.Printf("  actiond server   # start the API on port %d\n", cfg.Port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
