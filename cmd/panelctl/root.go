package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/panelctl/internal/console"
	"github.com/pandeptwidyaop/panelctl/internal/version"
)

var (
	flagConfig       string
	flagAllowNonRoot bool
)

var rootCmd = &cobra.Command{
	Use:           "panelctl",
	Short:         "Operator console for a self-hosted panel",
	Long:          "panelctl manages backups, environment settings, maintenance mode, users, services and updates of a self-hosted panel. Without a subcommand it opens the interactive menu.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer stop()

		return a.controller(console.NewTerminalInput(os.Stdout)).Run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show panel, host, backup and service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		return a.controller(nil).Status(cmd.Context())
	},
}

// requireRoot refuses to run as an unprivileged user; the panel tree,
// backups and services all need root.
func requireRoot(cmd *cobra.Command, args []string) error {
	if flagAllowNonRoot || os.Geteuid() == 0 {
		return nil
	}
	return errors.New("panelctl must be run as root (use --allow-non-root to override)")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "/etc/panelctl/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagAllowNonRoot, "allow-non-root", false, "skip the root privilege check")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		return requireRoot(cmd, args)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(envCmd)
}
