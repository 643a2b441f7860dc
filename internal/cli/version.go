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
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-seckeychain/internal/config"
	"github.com/jeremyhahn/go-seckeychain/pkg/securestore"
	"github.com/jeremyhahn/go-seckeychain/pkg/storage/macos"
)

// Version information (injected at build time via -ldflags)
var (
	Version   = "dev"     // Set via -ldflags "-X github.com/jeremyhahn/go-seckeychain/internal/cli.Version=x.y.z"
	GitCommit = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-seckeychain/internal/cli.GitCommit=abc123"
	BuildDate = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-seckeychain/internal/cli.BuildDate=2025-01-15"
)

// availableBackends lists the store backends usable on this platform.
func availableBackends() []string {
	backends := []string{config.BackendMemory, config.BackendFile}
	if macos.Supported {
		backends = append(backends, config.BackendMacOS)
	}
	return backends
}

var algorithms = []string{
	securestore.AlgorithmECIESCofactorX963SHA256AESGCM.String(),
	securestore.AlgorithmECIESHKDFSHA256AESGCM.String(),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and platform support",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if getConfig().OutputFormat == string(OutputFormatJSON) {
			return printer(cmd).printJSON(map[string]interface{}{
				"version":    Version,
				"commit":     GitCommit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
				"backends":   availableBackends(),
				"algorithms": algorithms,
			})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seckeychain %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Backends:   %s\n", strings.Join(availableBackends(), ", "))
		fmt.Fprintf(out, "Algorithms: %s\n", strings.Join(algorithms, ", "))
		return nil
	},
}
