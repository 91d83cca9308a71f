// Package config provides configuration management for the index backup tool.
// Configuration is layered: built-in defaults, then a YAML document from a
// local file or a Kubernetes ConfigMap, then an optional Secret override,
// and finally environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	// configKey is the data key holding the YAML document in ConfigMaps and Secrets
	configKey = "config"

	BackendS3    = "s3"
	BackendLocal = "local"

	DefaultBucket          = "codehub-data-manager"
	DefaultStorageEndpoint = "s3.amazonaws.com"
	DefaultRegion          = "us-east-1"
	DefaultScrollKeepAlive = time.Minute
)

// Config represents the merged configuration
type Config struct {
	Environment   string              `yaml:"environment" validate:"required"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch" validate:"required"`
	Storage       StorageConfig       `yaml:"storage" validate:"required"`
}

// ElasticsearchConfig holds search cluster connection settings
type ElasticsearchConfig struct {
	BaseURL  string         `yaml:"baseURL" validate:"omitempty,url"`
	Service  *ServiceConfig `yaml:"service" validate:"omitempty"`
	Username string         `yaml:"username"`
	Password string         `yaml:"password"` // From secret
	Export   ExportConfig   `yaml:"export"`
}

// ServiceConfig describes an in-cluster Elasticsearch service reached through a port-forward
type ServiceConfig struct {
	Name                 string `yaml:"name" validate:"required"`
	Port                 int    `yaml:"port" validate:"required,min=1,max=65535"`
	LocalPortForwardPort int    `yaml:"localPortForwardPort" validate:"required,min=1,max=65535"`
}

// ExportConfig controls how documents are read during export.
// PageSize 0 keeps the single search request (first result page only).
type ExportConfig struct {
	PageSize        int           `yaml:"pageSize" validate:"min=0,max=10000"`
	ScrollKeepAlive time.Duration `yaml:"scrollKeepAlive"`
}

// StorageConfig holds snapshot bucket settings
type StorageConfig struct {
	Backend   string `yaml:"backend" validate:"required,oneof=s3 local"`
	Bucket    string `yaml:"bucket" validate:"required"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Backend s3"`
	Region    string `yaml:"region"`
	UseSSL    *bool  `yaml:"useSSL"`
	AccessKey string `yaml:"accessKey"` // From secret
	SecretKey string `yaml:"secretKey"` // From secret
	LocalRoot string `yaml:"localRoot" validate:"required_if=Backend local"`
}

// Secure reports whether the storage endpoint is reached over TLS
func (s StorageConfig) Secure() bool {
	return s.UseSSL == nil || *s.UseSSL
}

// Defaults returns the values used for any setting left empty
func Defaults() Config {
	return Config{
		Elasticsearch: ElasticsearchConfig{
			Export: ExportConfig{
				ScrollKeepAlive: DefaultScrollKeepAlive,
			},
		},
		Storage: StorageConfig{
			Backend:  BackendS3,
			Bucket:   DefaultBucket,
			Endpoint: DefaultStorageEndpoint,
			Region:   DefaultRegion,
		},
	}
}

// LoadConfig loads and merges configuration from ConfigMap and Secret
// ConfigMap provides base configuration, Secret overrides it
func LoadConfig(clientset kubernetes.Interface, namespace, configMapName, secretName string) (*Config, error) {
	ctx := context.Background()
	config := &Config{}

	if configMapName != "" {
		cm, err := clientset.CoreV1().ConfigMaps(namespace).Get(ctx, configMapName, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to get ConfigMap '%s': %w", configMapName, err)
		}

		configData, ok := cm.Data[configKey]
		if !ok {
			return nil, fmt.Errorf("ConfigMap '%s' does not contain '%s' key", configMapName, configKey)
		}
		if err := yaml.Unmarshal([]byte(configData), config); err != nil {
			return nil, fmt.Errorf("failed to parse ConfigMap config: %w", err)
		}
	}

	if secretName != "" {
		// Secret is optional - only used for overrides
		secret, err := clientset.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
		if err == nil {
			if configData, ok := secret.Data[configKey]; ok {
				var secretConfig Config
				if err := yaml.Unmarshal(configData, &secretConfig); err != nil {
					return nil, fmt.Errorf("failed to parse Secret config: %w", err)
				}
				if err := mergo.Merge(config, secretConfig, mergo.WithOverride); err != nil {
					return nil, fmt.Errorf("failed to merge Secret config: %w", err)
				}
			}
		}
	}

	return finalize(config, os.Getenv)
}

// LoadFile loads configuration from a YAML file. An empty path loads
// defaults and environment variables only.
func LoadFile(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return finalize(config, os.Getenv)
}

// finalize applies environment overrides and defaults, then validates
func finalize(config *Config, getenv func(string) string) (*Config, error) {
	if err := ApplyEnv(config, getenv); err != nil {
		return nil, err
	}
	if err := mergo.Merge(config, Defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides configuration with the environment variables that are set
func ApplyEnv(config *Config, getenv func(string) string) error {
	strs := []struct {
		name   string
		target *string
	}{
		{"ENVIRONMENT_NAME", &config.Environment},
		{"ELASTICSEARCH_API_BASE_URL", &config.Elasticsearch.BaseURL},
		{"ELASTICSEARCH_USERNAME", &config.Elasticsearch.Username},
		{"ELASTICSEARCH_PASSWORD", &config.Elasticsearch.Password},
		{"STORAGE_BACKEND", &config.Storage.Backend},
		{"SNAPSHOT_BUCKET", &config.Storage.Bucket},
		{"STORAGE_ENDPOINT", &config.Storage.Endpoint},
		{"STORAGE_REGION", &config.Storage.Region},
		{"STORAGE_LOCAL_ROOT", &config.Storage.LocalRoot},
		{"AWS_ACCESS_KEY_ID", &config.Storage.AccessKey},
		{"AWS_SECRET_ACCESS_KEY", &config.Storage.SecretKey},
	}
	for _, s := range strs {
		if v := getenv(s.name); v != "" {
			*s.target = v
		}
	}

	if v := getenv("STORAGE_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STORAGE_USE_SSL %q: %w", v, err)
		}
		config.Storage.UseSSL = &useSSL
	}

	if v := getenv("EXPORT_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EXPORT_PAGE_SIZE %q: %w", v, err)
		}
		config.Elasticsearch.Export.PageSize = size
	}

	if v := getenv("EXPORT_SCROLL_KEEP_ALIVE"); v != "" {
		keepAlive, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EXPORT_SCROLL_KEEP_ALIVE %q: %w", v, err)
		}
		config.Elasticsearch.Export.ScrollKeepAlive = keepAlive
	}

	return nil
}

// Validate checks the merged configuration
func Validate(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if config.Elasticsearch.BaseURL == "" && config.Elasticsearch.Service == nil {
		return errors.New("configuration validation failed: elasticsearch.baseURL or elasticsearch.service is required")
	}

	return nil
}

type Context struct {
	Config *CLIConfig
}

type CLIConfig struct {
	ConfigFile    string
	Namespace     string
	Kubeconfig    string
	Debug         bool
	Quiet         bool
	ConfigMapName string
	SecretName    string
	OutputFormat  string // table, json
}

func NewContext() *Context {
	return &Context{
		Config: &CLIConfig{},
	}
}
