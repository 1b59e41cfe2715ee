// internal/cli/detect.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/hostpkg"
	"github.com/arc-language/hostpkg/pkg/platform"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report the detected distribution family",
	Long: `Probe the host's package-database locations and report which
distribution family will answer package queries.`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	d, err := hostpkg.New(config)
	if err != nil {
		return err
	}

	fmt.Printf("Backend: %s\n", d.Backend())
	fmt.Printf("Known families: %s\n", strings.Join(platform.Names(), ", "))
	return nil
}
