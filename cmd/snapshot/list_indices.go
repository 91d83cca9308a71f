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

func listIndicesCmd(cliCtx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list-indices",
		Short: "List Elasticsearch indices and their document counts",
		Run: func(cmd *cobra.Command, _ []string) {
			exitOnError(runListIndices(cmd.Context(), cliCtx, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
}

func runListIndices(ctx context.Context, cliCtx *config.Context, out, errOut io.Writer) error {
	log := logger.NewWithWriter(errOut, cliCtx.Config.Quiet, cliCtx.Config.Debug)

	env, err := setup.New(cliCtx, log)
	if err != nil {
		return err
	}
	defer env.Close()

	log.Infof("Fetching Elasticsearch indices...")

	indices, err := env.Service.ListIndices(ctx)
	if err != nil {
		return err
	}

	formatter := output.NewFormatterTo(out, cliCtx.Config.OutputFormat)

	if len(indices) == 0 {
		formatter.PrintMessage("No indices found")
		return nil
	}

	table := output.Table{
		Headers: []string{"INDEX", "DOCS.COUNT"},
		Rows:    make([][]string, 0, len(indices)),
	}
	for _, idx := range indices {
		table.Rows = append(table.Rows, []string{idx.Name, idx.DocCount})
	}

	if err := formatter.PrintTable(table); err != nil {
		return fmt.Errorf("failed to print indices: %w", err)
	}
	return nil
}
