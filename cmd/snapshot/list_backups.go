package snapshot

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/cmd/setup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stackvista/index-backup-cli/internal/output"
)

func listBackupsCmd(cliCtx *config.Context) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list-backups",
		Short: "List snapshots stored in the bucket",
		Run: func(cmd *cobra.Command, _ []string) {
			exitOnError(runListBackups(cmd.Context(), cliCtx, prefix, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list keys starting with this prefix, e.g. \"prod/\"")

	return cmd
}

func runListBackups(ctx context.Context, cliCtx *config.Context, prefix string, out, errOut io.Writer) error {
	log := logger.NewWithWriter(errOut, cliCtx.Config.Quiet, cliCtx.Config.Debug)

	env, err := setup.New(cliCtx, log)
	if err != nil {
		return err
	}
	defer env.Close()

	log.Infof("Listing snapshots in bucket %s...", env.Config.Storage.Bucket)

	backups, err := env.Service.ListBackups(ctx, prefix)
	if err != nil {
		return err
	}

	formatter := output.NewFormatterTo(out, cliCtx.Config.OutputFormat)

	if len(backups) == 0 {
		formatter.PrintMessage("No snapshots found")
		return nil
	}

	table := output.Table{
		Headers: []string{"KEY", "SIZE", "LAST MODIFIED"},
		Rows:    make([][]string, 0, len(backups)),
	}
	for _, b := range backups {
		table.Rows = append(table.Rows, []string{
			b.Key,
			fmt.Sprint(b.Size),
			b.LastModified.UTC().Format(time.RFC3339),
		})
	}

	return formatter.PrintTable(table)
}
