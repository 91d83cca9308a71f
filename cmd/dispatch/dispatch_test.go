package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stackvista/index-backup-cli/internal/backup"
	"github.com/stackvista/index-backup-cli/internal/config"
	"github.com/stackvista/index-backup-cli/internal/elasticsearch/estest"
	"github.com/stackvista/index-backup-cli/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"ENVIRONMENT_NAME", "ELASTICSEARCH_API_BASE_URL", "ELASTICSEARCH_USERNAME", "ELASTICSEARCH_PASSWORD",
	"STORAGE_BACKEND", "SNAPSHOT_BUCKET", "STORAGE_ENDPOINT", "STORAGE_REGION", "STORAGE_LOCAL_ROOT",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "STORAGE_USE_SSL", "EXPORT_PAGE_SIZE", "EXPORT_SCROLL_KEEP_ALIVE",
}

// newEnvContext configures the tool purely through environment variables,
// the way the Lambda runtime does
func newEnvContext(t *testing.T) (*config.Context, *estest.Cluster, string) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
	}

	server, cluster := estest.NewServer()
	t.Cleanup(server.Close)

	root := t.TempDir()
	t.Setenv("ENVIRONMENT_NAME", "dev")
	t.Setenv("ELASTICSEARCH_API_BASE_URL", server.URL)
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("STORAGE_LOCAL_ROOT", root)

	return config.NewContext(), cluster, filepath.Join(root, config.DefaultBucket)
}

func TestRunInvoke(t *testing.T) {
	cliCtx, cluster, bucketDir := newEnvContext(t)
	cluster.AddIndex("products", `{"mappings":{}}`, estest.Doc{ID: "a", Source: json.RawMessage(`{"name":"apple"}`)})
	ctx := context.Background()
	var errOut bytes.Buffer

	require.NoError(t, runInvoke(ctx, cliCtx, `{"function":"export","srcIndex":"products"}`, nil, &errOut))

	matches, err := filepath.Glob(filepath.Join(bucketDir, "dev", "products_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	key := "dev/" + filepath.Base(matches[0])

	stdin := strings.NewReader(`{"function":"import","targetIndex":"products-copy","srcPath":"` + key + `"}`)
	require.NoError(t, runInvoke(ctx, cliCtx, "", stdin, &errOut))

	copied, ok := cluster.Index("products-copy")
	require.True(t, ok)
	assert.Len(t, copied.Docs, 1)
}

func TestRunInvoke_Errors(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown function",
			event:   `{"function":"delete"}`,
			wantErr: backup.ErrUnknownFunction,
			wantMsg: `Error: unknown function "delete"`,
		},
		{
			name:    "missing parameter",
			event:   `{"function":"import","targetIndex":"x"}`,
			wantErr: backup.ErrMissingParameter,
		},
		{
			name:    "not json",
			event: `export products`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cliCtx, _, _ := newEnvContext(t)
			var errOut bytes.Buffer

			err := runInvoke(context.Background(), cliCtx, tt.event, nil, &errOut)

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.Contains(t, err.Error(), "failed to parse invocation event")
			}
			if tt.wantMsg != "" {
				assert.Contains(t, errOut.String(), tt.wantMsg)
			}
		})
	}
}

type fakeDispatcher struct {
	got []backup.Request
	err error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req backup.Request) error {
	f.got = append(f.got, req)
	return f.err
}

func TestNewHandler(t *testing.T) {
	svc := &fakeDispatcher{}
	handler := newHandler(svc, logger.NewWithWriter(&bytes.Buffer{}, true, false))
	req := backup.Request{Function: backup.FunctionExport, SrcIndex: "products"}

	require.NoError(t, handler(context.Background(), req))
	assert.Equal(t, []backup.Request{req}, svc.got)

	svc.err = backup.ErrIndexNotFound
	err := handler(context.Background(), req)
	assert.ErrorIs(t, err, backup.ErrIndexNotFound)
	assert.Contains(t, err.Error(), "export failed")

	svc.err = backup.ErrUnknownFunction
	err = handler(context.Background(), backup.Request{})
	assert.True(t, errors.Is(err, backup.ErrUnknownFunction))
	assert.Contains(t, err.Error(), "invocation failed")
}

func TestCommands(t *testing.T) {
	cliCtx := config.NewContext()

	invoke := InvokeCmd(cliCtx)
	assert.Equal(t, "invoke", invoke.Use)
	assert.NotNil(t, invoke.Flags().Lookup("event"))

	assert.Equal(t, "lambda", LambdaCmd(cliCtx).Use)
}
