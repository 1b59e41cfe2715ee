// internal/cli/list.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arc-language/hostpkg"
)

var (
	listRefresh bool
	listYAML    bool
)

var listCmd = &cobra.Command{
	Use:   "list [package...]",
	Short: "List known versions of packages",
	Long: `List every version of the named packages the host's package manager
knows about, installed and installable.

Examples:
  hostpkg list ffmpeg
  hostpkg list --refresh openjdk-11-jre
  hostpkg list --yaml sqlite3 zlib1g`,
	Args: cobra.MinimumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listRefresh, "refresh", false, "query remote-capable tooling first")
	listCmd.Flags().BoolVar(&listYAML, "yaml", false, "emit candidates as YAML")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	d, err := hostpkg.New(config)
	if err != nil {
		return err
	}

	if listRefresh {
		if err := d.Refresh(ctx, args...); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: refresh failed: %v\n", err)
		}
	}

	byName := make(map[string][]hostpkg.Candidate, len(args))
	for _, name := range args {
		cands, err := d.Candidates(ctx, name)
		if err != nil {
			return err
		}
		byName[name] = cands
	}

	if listYAML {
		out, err := yaml.Marshal(byName)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	for _, name := range args {
		cands := byName[name]
		if len(cands) == 0 {
			fmt.Printf("%s: no candidates\n", name)
			continue
		}
		for _, c := range cands {
			state := "installable"
			if c.Installed {
				state = "installed"
			}
			if entry := d.EntryPoint(c); entry != "" {
				fmt.Printf("%s  %s  %s\n", c.ID, state, entry)
			} else {
				fmt.Printf("%s  %s\n", c.ID, state)
			}
		}
	}
	return nil
}
