package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"releasekit/internal/config"
	"releasekit/internal/preflight"
	"releasekit/internal/ui"
)

func newReposCommand(ctx *commandContext) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List configured artifact repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Repositories) == 0 {
				fmt.Fprintln(out, "No repositories configured")
				return nil
			}

			headers := []string{"Name", "Type", "Location", "Default"}
			if check {
				headers = append(headers, "Check")
			}
			rows := make([][]string, 0, len(cfg.Repositories))
			failed := 0
			for _, repo := range cfg.Repositories {
				row := []string{repo.Name, repo.Type, repositoryLocation(repo), yesNo(repo.Name == cfg.Release.DefaultRepository)}
				if check {
					result := preflight.CheckRepository(cmd.Context(), repo)
					status := "ok"
					if !result.Passed {
						status = "FAIL: " + result.Detail
						failed++
					}
					row = append(row, status)
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, ui.RenderTable(headers, rows, nil))
			if failed > 0 {
				return fmt.Errorf("%d repository check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Verify each repository is reachable or writable")
	return cmd
}

func repositoryLocation(repo config.Repository) string {
	switch repo.Type {
	case config.RepositoryOCI:
		if repo.Reference != "" {
			return repo.Reference
		}
		return repo.Path
	case config.RepositoryS3:
		location := repo.Endpoint + "/" + repo.Bucket
		if repo.Prefix != "" {
			location += "/" + repo.Prefix
		}
		return location
	default:
		return repo.Path
	}
}
