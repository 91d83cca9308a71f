package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/cmd/setup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stackvista/index-backup-cli/internal/output"
)

func importCmd(cliCtx *config.Context) *cobra.Command {
	var targetIndex, path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a stored snapshot into a new index",
		Long: `Restore a stored snapshot into a new index.

The target index must not exist yet. Its mapping is taken from the snapshot
and every document is loaded with a single bulk request.`,
		Run: func(cmd *cobra.Command, _ []string) {
			exitOnError(runImport(cmd.Context(), cliCtx, targetIndex, path, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&targetIndex, "target-index", "", "Name of the index to create (required)")
	cmd.Flags().StringVar(&path, "path", "", "Snapshot key in the bucket, as printed by export or list-backups (required)")
	_ = cmd.MarkFlagRequired("target-index")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runImport(ctx context.Context, cliCtx *config.Context, targetIndex, path string, out, errOut io.Writer) error {
	log := logger.NewWithWriter(errOut, cliCtx.Config.Quiet, cliCtx.Config.Debug)

	env, err := setup.New(cliCtx, log)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.Service.Import(ctx, targetIndex, path)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	failed := 0
	if result.Bulk != nil {
		failed = len(result.Bulk.Failed)
	}

	formatter := output.NewFormatterTo(out, cliCtx.Config.OutputFormat)
	return formatter.PrintFields([]output.Field{
		{Key: "index", Value: result.Index},
		{Key: "documents", Value: fmt.Sprint(result.Documents)},
		{Key: "failed", Value: fmt.Sprint(failed)},
	})
}
