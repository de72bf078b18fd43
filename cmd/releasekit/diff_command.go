package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"releasekit/internal/diff"
	"releasekit/internal/releaserun"
	"releasekit/internal/ui"
	"releasekit/internal/version"
)

func newDiffCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the pending version changes without releasing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			project, results, err := releaserun.Pending(cmd.Context(), cfg, flags.options())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				return diff.Encode(out, results)
			}
			fmt.Fprintf(out, "Pending changes for %s\n", project.Name)
			fmt.Fprintln(out, ui.ChangesTable(results))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Candidates:")
			for _, result := range results {
				fmt.Fprintf(out, "  %s: %s\n", result.Name, joinVersions(result.ModuleCandidates()))
				for _, pkg := range result.ChangedPackages() {
					fmt.Fprintf(out, "    %s: %s\n", pkg.Name, joinVersions(result.PackageCandidates(pkg)))
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the effective report as YAML")
	return cmd
}

func joinVersions(values []version.Version) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
