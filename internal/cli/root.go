// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckeychain.
//
// go-seckeychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckeychain/pkg/metrics"
)

var (
	// Global configuration
	globalConfig *Config

	// v resolves flags and SECKEYCHAIN_* environment variables
	v = newViper()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "seckeychain",
	Short: "go-seckeychain CLI - secure storage keychain",
	Long: `go-seckeychain CLI stores items and keys in a secure keychain,
encrypts items to hardware backed keypairs guarded by a password,
and rotates those keypairs without losing the items they protect.

Store backends:
  - memory: in-process only
  - file:   items under --data-dir, sealing key alongside
  - macos:  the login keychain`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if !getConfig().Metrics {
			return nil
		}
		return metrics.WriteText(os.Stderr)
	},
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printer := NewPrinter(globalConfig.OutputFormat, os.Stderr)
		_ = printer.PrintError(err) // Error printing to stderr is best-effort
	}
	return err
}

func init() {
	// Initialize global config
	globalConfig = NewConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalConfig.ConfigFile, "config", "",
		"config file (YAML)")
	flags.StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json)")
	flags.BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"debug logging")
	flags.BoolVar(&globalConfig.Metrics, "metrics", false,
		"print operation metrics to stderr after the command")
	flags.String("access-group", "", "access group partitioning every item")
	flags.String("backend", "", "store backend (memory, file, macos)")
	flags.String("data-dir", "", "directory for the file backend")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("password", "", "password guarding private keys (prompted when empty)")

	for _, name := range []string{"access-group", "backend", "data-dir", "log-level", "password"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(changeCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(discardBackupCmd)
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// session loads the configuration and opens the keychain it describes.
func session() (*Session, error) {
	cfg := getConfig()
	settings, err := loadSettings(v, cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		settings.Logging.Level = "debug"
	}
	if cfg.Metrics || settings.Metrics.Enabled {
		cfg.Metrics = true
		metrics.Enable()
	} else {
		metrics.Disable()
	}
	printVerbose("Using %s backend, access group %s", settings.Store.Backend, settings.Keychain.AccessGroup)
	return openSession(settings, os.Stderr)
}

// printer returns a printer for command output
func printer(cmd *cobra.Command) *Printer {
	return NewPrinter(getConfig().OutputFormat, cmd.OutOrStdout())
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if globalConfig.Verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
