package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cflux-app/actiond/internal/actions"
	"github.com/cflux-app/actiond/internal/bus"
	"github.com/cflux-app/actiond/internal/config"
	"github.com/cflux-app/actiond/internal/db"
	"github.com/cflux-app/actiond/internal/dispatch"
	"github.com/cflux-app/actiond/internal/execlog"
	"github.com/cflux-app/actiond/internal/server"
	"github.com/cflux-app/actiond/internal/triggers"
	"github.com/cflux-app/actiond/internal/workflows"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the trigger engine management server",
	Long:  `Starts actiond with the registry/dispatch REST API, the live log stream, and optional NATS event fan-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if serverPort != 0 {
			cfg.Port = serverPort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// Open database.
		dbPath := filepath.Join(cfg.DataDir, "actiond.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Stores and collaborators.
		workflowClient := workflows.NewClient(cfg.WorkflowServiceURL)
		actionStore := actions.NewStore(database)
		triggerStore := triggers.NewStore(database, actionStore, workflowClient)
		logStore := execlog.NewStore(database)
		hub := execlog.NewHub()

		dispatcher := dispatch.New(actionStore, triggerStore, logStore, workflowClient)
		dispatcher.Hub = hub

		// Optional NATS event fan-out.
		if cfg.NATSURL != "" {
			events, err := bus.New(cfg.NATSURL)
			if err != nil {
				return fmt.Errorf("connecting to NATS: %w", err)
			}
			defer events.Close()
			dispatcher.Events = events
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Seed built-in actions.
		if cfg.SeedOnStart {
			created, err := actionStore.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seeding built-in actions: %w", err)
			}
			if len(created) > 0 {
				fmt.Fprintf(os.Stderr, "Seeded %d built-in actions\n", len(created))
			}
		}

		// Create server and register feature routes.
		srv := server.New(server.Config{Port: cfg.Port, AllowAll: cfg.CORSAllowAll}, database)
		r := srv.Router()
		actions.RegisterRoutes(r, actionStore)
		triggers.RegisterRoutes(r, triggerStore)
		execlog.RegisterRoutes(r, logStore, hub)
		dispatch.RegisterRoutes(r, dispatcher)

		// Log retention pruner.
		if cfg.LogRetentionDays > 0 {
			go pruneLogs(ctx, logStore, cfg.LogRetentionDays)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "actiond v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Workflow service: %s\n", cfg.WorkflowServiceURL)
		if cfg.NATSURL != "" {
			fmt.Fprintf(os.Stderr, "  Event bus: %s\n", cfg.NATSURL)
		}

		return srv.Start()
	},
}

// pruneLogs deletes execution log entries older than the retention window,
// once at startup and then daily.
func pruneLogs(ctx context.Context, logStore *execlog.Store, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		deleted, err := logStore.DeleteBefore(ctx, cutoff)
		if err != nil {
			log.Printf("server: pruning logs: %v", err)
		} else if deleted > 0 {
			log.Printf("server: pruned %d log entries older than %d days", deleted, retentionDays)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Override the configured port")
	rootCmd.AddCommand(serverCmd)
}
