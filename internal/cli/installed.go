// internal/cli/installed.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-language/hostpkg"
	"github.com/arc-language/hostpkg/pkg/distro"
)

var installedCmd = &cobra.Command{
	Use:   "installed [package] [id]",
	Short: "Check whether a selected candidate is still installed",
	Long: `Re-validate a previously recorded selection. The id is the candidate
identity printed by list, e.g. "package:deb:ffmpeg:1.2.3-1:x86_64".

Exit status 0 means installed, 1 means not installed.`,
	Args: cobra.ExactArgs(2),
	RunE: runInstalled,
}

func runInstalled(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pkg, id := args[0], args[1]

	_, name, _, _, err := distro.SplitID(id)
	if err != nil {
		return err
	}

	d, err := hostpkg.New(config)
	if err != nil {
		return err
	}

	// The id must belong to the named package, canonical or native form.
	native, err := d.Resolve(pkg)
	if err != nil {
		return err
	}
	if name != pkg && name != native {
		return fmt.Errorf("id %q does not belong to package %q", id, pkg)
	}

	ok, err := d.IsInstalled(ctx, hostpkg.Selection{ID: id})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s: not installed\n", id)
		os.Exit(1)
	}
	fmt.Printf("%s: installed\n", id)
	return nil
}
