package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-conditions/internal/config"
	"github.com/oshokin/alarm-conditions/internal/service/server"
	"github.com/oshokin/alarm-conditions/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile overrides the path where retained conditions are persisted.
	stateFile string

	// rootCmd represents the base command for running the condition server.
	rootCmd = &cobra.Command{
		Use:   "condition-server [listen-address]",
		Short: "Run the alarm condition engine and its gRPC server.",
		Long: `Starts the alarm condition engine and the gRPC server operators connect to.

Alarms listed in the configuration file are registered at startup; a definition that
cannot be built is logged and skipped. Every sweep interval each alarm re-reads its
trigger feed and publishes an event on every client-visible change.

Only the port from server_addr is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:50051).
Retained conditions are checkpointed to a JSON state file and restored on restart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the condition-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist retained conditions (overrides state_file)")
}
