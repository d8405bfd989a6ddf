package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/config"
	"github.com/cflux-app/actiond/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the built-in action catalog",
	Long: `Inserts the built-in system actions (user.login, invoice.paid, ...)
into the registry. Actions that already exist are left untouched, so the
command is safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "actiond.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := actions.NewStore(database)
		created, err := store.Seed(cmd.Context())
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}

		if len(created) == 0 {
			fmt.Fprintln(os.Stderr, "All built-in actions already present")
			return nil
		}
		for _, def := range created {
			fmt.Printf("created %s (%s)\n", def.Key, def.Category)
		}
		fmt.Fprintf(os.Stderr, "Seeded %d built-in actions\n", len(created))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
