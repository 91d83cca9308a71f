// Package setup turns the CLI context into a ready backup service:
// configuration, an optional port-forward and the cluster and storage clients.
package setup

import (
	"errors"
	"fmt"

	"github.com/stackvista/index-backup-cli/cmd/portforward"
	"github.com/stackvista/index-backup-cli/internal/backup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
	"github.com/stackvista/index-backup-cli/internal/k8s"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stackvista/index-backup-cli/internal/storage"
)

// Env is what a command needs to run backup operations
type Env struct {
	Config  *config.Config
	Service *backup.Service

	pf *portforward.Conn
}

// Close releases the port-forward, if any
func (e *Env) Close() {
	if e.pf != nil {
		e.pf.Close()
	}
}

// New loads configuration and builds the backup service. The caller must
// Close the returned Env.
func New(cliCtx *config.Context, log *logger.Logger) (*Env, error) {
	var k8sClient k8s.Interface
	if cliCtx.Config.Namespace != "" {
		client, err := k8s.NewClient(cliCtx.Config.Kubeconfig, cliCtx.Config.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
		}
		k8sClient = client
	}

	cfg, err := LoadConfig(cliCtx, k8sClient)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Debugf("Loaded configuration for environment %s", cfg.Environment)

	env := &Env{Config: cfg}

	baseURL := cfg.Elasticsearch.BaseURL
	if baseURL == "" {
		if k8sClient == nil {
			return nil, errors.New("--namespace is required to port-forward to the Elasticsearch service")
		}
		svc := cfg.Elasticsearch.Service
		env.pf, err = portforward.SetupPortForward(k8sClient, cliCtx.Config.Namespace, svc.Name, svc.LocalPortForwardPort, svc.Port, log)
		if err != nil {
			return nil, err
		}
		baseURL = env.pf.BaseURL()
	}

	svc, err := NewService(cfg, baseURL, log)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Service = svc

	return env, nil
}

// LoadConfig reads configuration from --config when given, otherwise from
// the ConfigMap and Secret in --namespace, otherwise from the environment only
func LoadConfig(cliCtx *config.Context, k8sClient k8s.Interface) (*config.Config, error) {
	if cliCtx.Config.ConfigFile == "" && k8sClient != nil {
		return config.LoadConfig(k8sClient.Clientset(), cliCtx.Config.Namespace, cliCtx.Config.ConfigMapName, cliCtx.Config.SecretName)
	}
	return config.LoadFile(cliCtx.Config.ConfigFile)
}

// NewService wires the Elasticsearch client at baseURL and the configured
// storage backend into a backup service
func NewService(cfg *config.Config, baseURL string, log *logger.Logger) (*backup.Service, error) {
	var opts []elasticsearch.Option
	if cfg.Elasticsearch.Username != "" {
		opts = append(opts, elasticsearch.WithBasicAuth(cfg.Elasticsearch.Username, cfg.Elasticsearch.Password))
	}

	esClient, err := elasticsearch.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	log.Debugf("Using %s storage, bucket %s", cfg.Storage.Backend, cfg.Storage.Bucket)

	return backup.New(esClient, store, log, backup.Options{
		Environment:     cfg.Environment,
		PageSize:        cfg.Elasticsearch.Export.PageSize,
		ScrollKeepAlive: cfg.Elasticsearch.Export.ScrollKeepAlive,
	}), nil
}
