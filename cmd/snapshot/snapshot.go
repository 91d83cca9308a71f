package snapshot

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/internal/config"
)

func Cmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export and import Elasticsearch index snapshots",
	}

	cmd.AddCommand(exportCmd(cliCtx))
	cmd.AddCommand(importCmd(cliCtx))
	cmd.AddCommand(listIndicesCmd(cliCtx))
	cmd.AddCommand(listBackupsCmd(cliCtx))

	return cmd
}

// exitOnError prints err and exits the process the way every command does
func exitOnError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
