// ABOUTME: Entry point for horoscope-desk, the matchmaking office backend
// ABOUTME: Cobra root command wiring serve, init, migrate, seed-user and version

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set via -ldflags "-X main.version=..." at build time.
var version = "dev"

const banner = `
 _                                                 _          _
| |__   ___  _ __ ___  ___  ___ ___  _ __   ___  __| | ___ ___| | __
| '_ \ / _ \| '__/ _ \/ __|/ __/ _ \| '_ \ / _ \/ _' |/ _ / __| |/ /
| | | | (_) | | | (_) \__ \ (_| (_) | |_) |  __/ (_| |  __\__ \   <
|_| |_|\___/|_|  \___/|___/\___\___/| .__/ \___|\__,_|\___|___/_|\_\
                                    |_|
`

// getConfigPath returns the path to the config file.
// Priority: HOROSCOPE_DESK_CONFIG env var > XDG_CONFIG_HOME/horoscope-desk/config.yaml > ~/.config/horoscope-desk/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HOROSCOPE_DESK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "horoscope-desk", "config.yaml")
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "horoscope-desk",
		Short:   "Profile, horoscope share and follow-up desk for a matchmaking office",
		Version: version,
		Long: `horoscope-desk serves the matchmaking office API: client profiles, horoscope
shares, follow-up reminders and WhatsApp sends, backed by MySQL or an embedded
SQLite file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+getConfigPath()+")")

	resolve := func() string {
		if configPath != "" {
			return configPath
		}
		return getConfigPath()
	}

	root.AddCommand(serveCmd(resolve))
	root.AddCommand(initCmd())
	root.AddCommand(migrateCmd(resolve))
	root.AddCommand(seedUserCmd(resolve))
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "horoscope-desk %s\n", version)
		},
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
