// Package dispatch exposes the invocation-event entrypoints: running one
// event locally and serving events from the Lambda runtime.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/cmd/setup"
	"github.com/stackvista/index-backup-cli/internal/backup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/logger"
)

// InvokeCmd runs a single invocation event, read from --event or stdin
func InvokeCmd(cliCtx *config.Context) *cobra.Command {
	var event string

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Run one invocation event locally",
		Long: `Run one invocation event locally, exactly as the Lambda handler would.

Examples:
  index-backup invoke --event '{"function":"export","srcIndex":"products"}'
  echo '{"function":"import","targetIndex":"products-copy","srcPath":"dev/products_20240305140709.json"}' | index-backup invoke`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runInvoke(cmd.Context(), cliCtx, event, cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&event, "event", "", "Invocation event as JSON (read from stdin when empty)")

	return cmd
}

func runInvoke(ctx context.Context, cliCtx *config.Context, event string, in io.Reader, errOut io.Writer) error {
	var src io.Reader = strings.NewReader(event)
	if event == "" {
		src = in
	}

	req, err := decodeRequest(src)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(errOut, cliCtx.Config.Quiet, cliCtx.Config.Debug)

	env, err := setup.New(cliCtx, log)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.Service.Dispatch(ctx, req)
}

func decodeRequest(r io.Reader) (backup.Request, error) {
	var req backup.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to parse invocation event: %w", err)
	}
	return req, nil
}
