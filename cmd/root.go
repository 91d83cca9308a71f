package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/index-backup-cli/cmd/dispatch"
	"github.com/stackvista/index-backup-cli/cmd/snapshot"
	"github.com/stackvista/index-backup-cli/cmd/version"
	"github.com/stackvista/index-backup-cli/internal/config"
)

var (
	cliCtx *config.Context
)

// addConfigFlags adds the flags that locate configuration and shape output
// to commands that talk to the cluster and the bucket
func addConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cliCtx.Config.ConfigFile, "config", "", "Path to a YAML configuration file (takes precedence over --namespace)")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.Namespace, "namespace", "", "Kubernetes namespace holding the configuration and the Elasticsearch service")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file (default: ~/.kube/config)")
	cmd.PersistentFlags().BoolVar(&cliCtx.Config.Debug, "debug", false, "Enable debug output")
	cmd.PersistentFlags().BoolVarP(&cliCtx.Config.Quiet, "quiet", "q", false, "Suppress operational messages (only show errors and data output)")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.ConfigMapName, "configmap", "index-backup-config", "ConfigMap name containing backup configuration")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.SecretName, "secret", "index-backup-config", "Secret name containing backup configuration")
	cmd.PersistentFlags().StringVarP(&cliCtx.Config.OutputFormat, "output", "o", "table", "Output format (table, json)")
}

func init() {
	cliCtx = config.NewContext()

	for _, cmd := range []*cobra.Command{
		snapshot.Cmd(cliCtx),
		dispatch.InvokeCmd(cliCtx),
		dispatch.LambdaCmd(cliCtx),
	} {
		addConfigFlags(cmd)
		rootCmd.AddCommand(cmd)
	}

	// Add commands that don't need config flags
	rootCmd.AddCommand(version.Cmd())
}

var rootCmd = &cobra.Command{
	Use:   "index-backup",
	Short: "Snapshot Elasticsearch indices to object storage and restore them",
	Long: `A CLI tool that exports an Elasticsearch index (mapping and documents) as a
single JSON object in an S3 bucket and restores such snapshots into new indices.
It also runs as an AWS Lambda function handling export and import events.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
