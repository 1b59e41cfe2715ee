// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arc-language/hostpkg/pkg/core"
)

var (
	cfgFile     string
	backendName string
	rootDir     string
	debug       bool
	config      *core.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hostpkg",
	Short: "Host package discovery",
	Long: `hostpkg - host package discovery

Queries the operating system's own package manager about distribution
packages: which versions exist, whether a selected version is still
installed, and where its main executable lives.`,
	Version: "0.1.0",
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/hostpkg/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "distribution family to use instead of probing")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "inspect a staged tree instead of the live host")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(installedCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if backendName != "" {
		config.Backend = backendName
	}
	if rootDir != "" {
		config.Root = rootDir
	}
	if debug {
		config.Debug = true
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
