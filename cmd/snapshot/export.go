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

func exportCmd(cliCtx *config.Context) *cobra.Command {
	var index string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an index mapping and its documents to the snapshot bucket",
		Run: func(cmd *cobra.Command, _ []string) {
			exitOnError(runExport(cmd.Context(), cliCtx, index, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "Name of the index to export (required)")
	_ = cmd.MarkFlagRequired("index")

	return cmd
}

func runExport(ctx context.Context, cliCtx *config.Context, index string, out, errOut io.Writer) error {
	log := logger.NewWithWriter(errOut, cliCtx.Config.Quiet, cliCtx.Config.Debug)

	env, err := setup.New(cliCtx, log)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.Service.Export(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to export index %s: %w", index, err)
	}

	formatter := output.NewFormatterTo(out, cliCtx.Config.OutputFormat)
	return formatter.PrintFields([]output.Field{
		{Key: "index", Value: index},
		{Key: "key", Value: result.Key},
		{Key: "documents", Value: fmt.Sprint(len(result.Bundle.Data))},
	})
}
