package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/config"
	"github.com/cflux-app/actiond/internal/db"
	"github.com/cflux-app/actiond/internal/dispatch"
	"github.com/cflux-app/actiond/internal/execlog"
	"github.com/cflux-app/actiond/internal/triggers"
	"github.com/cflux-app/actiond/internal/workflows"
)

var (
	raiseContext string
	raiseTiming  string
)

var raiseCmd = &cobra.Command{
	Use:   "raise <action-key>",
	Short: "Raise an action from the command line",
	Long: `Dispatches a single action against the local registry, exactly as a
service would. Useful for exercising trigger bindings during setup:

  actiond raise invoice.paid --context '{"entityType":"invoice","entityId":"inv-42","amount":120}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		actionCtx := map[string]any{}
		if raiseContext != "" {
			if err := json.Unmarshal([]byte(raiseContext), &actionCtx); err != nil {
				return fmt.Errorf("invalid --context JSON: %w", err)
			}
		}
		timing := triggers.Timing(raiseTiming)
		if !timing.Valid() {
			return fmt.Errorf("invalid --timing %q (want BEFORE, AFTER or INSTEAD)", raiseTiming)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "actiond.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		workflowClient := workflows.NewClient(cfg.WorkflowServiceURL)
		actionStore := actions.NewStore(database)
		triggerStore := triggers.NewStore(database, actionStore, workflowClient)
		logStore := execlog.NewStore(database)

		dispatcher := dispatch.New(actionStore, triggerStore, logStore, workflowClient)
		result := dispatcher.Raise(cmd.Context(), args[0], actionCtx, timing)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Success {
			database.Close()
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	raiseCmd.Flags().StringVar(&raiseContext, "context", "", "action context as a JSON object")
	raiseCmd.Flags().StringVar(&raiseTiming, "timing", "AFTER", "timing phase (BEFORE, AFTER, INSTEAD)")
	rootCmd.AddCommand(raiseCmd)
}
