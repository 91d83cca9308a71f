package dispatch

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/cmd/setup"
	"github.com/stackvista/index-backup-cli/internal/backup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/logger"
)

// LambdaCmd serves invocation events from the AWS Lambda runtime.
// Configuration comes from the environment (or --config) and is loaded once
// per cold start.
func LambdaCmd(cliCtx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve invocation events from the AWS Lambda runtime",
		Run: func(_ *cobra.Command, _ []string) {
			log := logger.NewJSON(cliCtx.Config.Debug)

			env, err := setup.New(cliCtx, log)
			if err != nil {
				log.Errorf("%v", err)
				os.Exit(1)
			}
			defer env.Close()

			lambda.Start(newHandler(env.Service, log))
		},
	}
}

// dispatcher is the part of *backup.Service the handler needs
type dispatcher interface {
	Dispatch(ctx context.Context, req backup.Request) error
}

// newHandler adapts a dispatcher to the Lambda handler signature. Errors are
// logged and returned so the runtime reports the invocation as failed.
func newHandler(svc dispatcher, log *logger.Logger) func(context.Context, backup.Request) error {
	return func(ctx context.Context, req backup.Request) error {
		log.With("function", req.Function).Debugf("Received invocation")
		if err := svc.Dispatch(ctx, req); err != nil {
			log.With("function", req.Function).Errorf("%v", err)
			return fmt.Errorf("%s failed: %w", functionName(req), err)
		}
		return nil
	}
}

func functionName(req backup.Request) string {
	if req.Function == "" {
		return "invocation"
	}
	return req.Function
}
