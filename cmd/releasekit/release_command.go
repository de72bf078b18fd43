package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"releasekit/internal/releaserun"
	"releasekit/internal/ui"
	"releasekit/internal/ui/tui"
)

type runFlags struct {
	project   string
	diffFile  string
	overrides []string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.project, "project", "p", ".", "Project root containing releasekit.yaml")
	cmd.Flags().StringVar(&f.diffFile, "diff", "", "Diff report to use instead of release.diff_report or release.diff_command")
	cmd.Flags().StringArrayVar(&f.overrides, "set", nil, "Override a suggested version (module=1.2.0 or module/package=1.2.0); repeatable")
}

func (f *runFlags) options() releaserun.Options {
	return releaserun.Options{
		ProjectDir: f.project,
		DiffFile:   f.diffFile,
		Overrides:  f.overrides,
	}
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var repo string
	var updateOnly bool
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Build, version and publish changed modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options()
			opts.Repository = repo
			opts.UpdateOnly = updateOnly
			opts.Surface = selectSurface(cmd, assumeYes || cfg.Release.AssumeYes)

			result, err := releaserun.Run(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			if result.Action == ui.ActionCancel {
				fmt.Fprintln(cmd.OutOrStdout(), "Release cancelled")
				return nil
			}
			if !result.Outcome.Success {
				return fmt.Errorf("release %s with %d error(s)", result.Outcome.Status, len(result.Outcome.Errors))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "Target repository (defaults to release.default_repository)")
	cmd.Flags().BoolVar(&updateOnly, "update-only", false, "Only write new versions into the project; publish nothing")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// selectSurface uses the full-screen UI on a terminal and the line-oriented
// prompt otherwise.
func selectSurface(cmd *cobra.Command, assumeYes bool) ui.Surface {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	if !assumeYes && interactive(in, out) {
		return tui.NewSurface(in, out)
	}
	return ui.NewPlain(out, in, assumeYes)
}
