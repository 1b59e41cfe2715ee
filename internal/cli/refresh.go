// internal/cli/refresh.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/hostpkg"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [package...]",
	Short: "Query remote-capable tooling about packages",
	Long: `Ask the family's remote-capable tooling about the named packages so
that later list calls include installable versions. Families without such
tooling report their installed state only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	d, err := hostpkg.New(config)
	if err != nil {
		return err
	}

	if err := d.Refresh(ctx, args...); err != nil {
		return err
	}
	for _, name := range args {
		cands, err := d.Candidates(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d candidate(s)\n", name, len(cands))
	}
	return nil
}
