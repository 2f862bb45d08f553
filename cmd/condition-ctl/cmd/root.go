package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-conditions/internal/config"
	"github.com/oshokin/alarm-conditions/internal/service/client"
	"github.com/oshokin/alarm-conditions/internal/service/watcher"
	"github.com/oshokin/alarm-conditions/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string
	// serverAddress overrides server_addr from the configuration file.
	serverAddress string

	// rootCmd represents the base command for operator commands.
	rootCmd = &cobra.Command{
		Use:   "condition-ctl",
		Short: "Operate alarm conditions on a condition server.",
		Long: `Sends operator commands to a condition server and follows its event stream.

Commands addressed to an occurrence take the event id printed with every record.
Trigger writes are addressed by alarm identity (source/name).
The hostname and user name of this machine are recorded with every command.`,
		SilenceUsage: true,
	}
)

// Execute runs the condition-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on SIGTERM or SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// run executes one client command built from the parsed flags.
func run(opts *client.Options) error {
	ctx, stop := signalContext()
	defer stop()

	opts.ConfigPath = configPath
	opts.ServerAddress = serverAddress

	return client.Run(ctx, opts)
}

// newEventCommand builds ack, confirm, unshelve and reset, which share the same shape.
func newEventCommand(command client.Command, short string, withComment bool) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   string(command) + " <event-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(&client.Options{
				Command: command,
				EventID: args[0],
				Comment: comment,
			})
		},
	}

	if withComment {
		cmd.Flags().StringVarP(&comment, "comment", "m", "", "operator comment")
	}

	return cmd
}

func newShelveCommand() *cobra.Command {
	var (
		opts   client.Options
		reason string
	)

	cmd := &cobra.Command{
		Use:   "shelve <event-id>",
		Short: "Shelve the alarm that reported an event, timed or one-shot.",
		Long: `Shelves the alarm that reported the event id.

A timed shelve lasts for --duration, clamped to the alarm's max_shelve_time.
A one-shot shelve (--one-shot) lasts until the alarm next clears.
While shelved the alarm keeps tracking its trigger but publishes no events.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			opts.Command = client.CommandShelve
			opts.EventID = args[0]
			opts.Comment = reason

			return run(&opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.Duration, "duration", "t", 0, "timed shelving duration")
	cmd.Flags().BoolVar(&opts.OneShot, "one-shot", false, "shelve until the alarm next clears")
	cmd.Flags().StringVarP(&reason, "reason", "m", "", "shelving reason")
	cmd.MarkFlagsMutuallyExclusive("duration", "one-shot")
	cmd.MarkFlagsOneRequired("duration", "one-shot")

	return cmd
}

func newWriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "write <source/name> <value>",
		Short: "Write a trigger value to a writable alarm feed.",
		Long: `Writes a trigger value to the feed of the named alarm and prints the resulting events.

Values are numbers or true/false. Generated feeds (ramp, square) are read-only.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // Identity and value.
		RunE: func(_ *cobra.Command, args []string) error {
			return run(&client.Options{
				Command:  client.CommandWrite,
				Identity: args[0],
				Value:    args[1],
			})
		},
	}
}

func newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Print every retained condition and branch.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return run(&client.Options{Command: client.CommandRefresh})
		},
	}
}

func newWatchCommand() *cobra.Command {
	var opts watcher.Options

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the event stream, resubscribing when it drops.",
		Long: `Prints a condition refresh followed by every published event.

When the stream drops the subscription is reopened after --interval,
which starts with a fresh condition refresh.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts.ConfigPath = configPath
			opts.ServerAddress = serverAddress

			return watcher.Run(ctx, &opts)
		},
	}

	cmd.Flags().DurationVarP(&opts.ResubscribeInterval, "interval", "i", watcher.DefaultResubscribeInterval,
		"pause before resubscribing")
	cmd.Flags().BoolVarP(&opts.RetainedOnly, "retained", "r", false, "print retained records only")

	return cmd
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "a", "", "condition server address (overrides server_addr)")

	rootCmd.AddCommand(
		newEventCommand(client.CommandAcknowledge, "Acknowledge the occurrence that reported an event.", true),
		newEventCommand(client.CommandConfirm, "Confirm the occurrence that reported an event.", true),
		newShelveCommand(),
		newEventCommand(client.CommandUnshelve, "End shelving of the alarm that reported an event.", false),
		newEventCommand(client.CommandReset, "Release the latch of the alarm that reported an event.", false),
		newWriteCommand(),
		newRefreshCommand(),
		newWatchCommand(),
	)
}
