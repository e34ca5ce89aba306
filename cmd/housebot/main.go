// Command housebot runs the building registry Telegram bot and its
// maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"housebot/internal/config"
	"housebot/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli holds state shared by subcommands after PersistentPreRunE.
type cli struct {
	envFile string
	debug   bool

	cfg   *config.Config
	log   logging.Logger
	flush func()
}

func newRootCmd() *cobra.Command {
	c := &cli{flush: func() {}}
	root := &cobra.Command{
		Use:           "housebot",
		Short:         "Telegram bot keeping a registry of residents and phone numbers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			opts := []config.Option{config.WithEnvFile(c.envFile)}
			if cmd.Name() == "serve" {
				opts = append(opts, config.RequireToken())
			}
			cfg, err := config.Load(opts...)
			if err != nil {
				return err
			}
			c.cfg = cfg
			log, flush, err := logging.New(c.debug || cfg.Debug)
			if err != nil {
				return err
			}
			c.log, c.flush = log, flush
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.flush()
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")
	root.AddCommand(c.serveCmd(), c.renderCmd(), c.backupsCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the housebot version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "housebot", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "housebot:", err)
		os.Exit(1)
	}
}
