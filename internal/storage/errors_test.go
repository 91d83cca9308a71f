package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMinioError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "missing key",
			err:      minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."},
			expected: CodeObjectNotFound,
		},
		{
			name:     "missing bucket",
			err:      minio.ErrorResponse{Code: "NoSuchBucket"},
			expected: CodeBucketNotFound,
		},
		{
			name:     "access denied",
			err:      minio.ErrorResponse{Code: "AccessDenied"},
			expected: CodePermissionDenied,
		},
		{
			name:     "bad signature",
			err:      minio.ErrorResponse{Code: "SignatureDoesNotMatch"},
			expected: CodeAuthInvalid,
		},
		{
			name:     "plain text fallback",
			err:      errors.New("The specified bucket does not exist: no such bucket"),
			expected: CodeBucketNotFound,
		},
		{
			name:     "unknown failure",
			err:      errors.New("connection reset by peer"),
			expected: CodeStorageFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyMinioError("dev/a.json", tt.err)

			var storageErr *Error
			require.ErrorAs(t, err, &storageErr)
			assert.Equal(t, tt.expected, storageErr.Code)
			assert.Equal(t, "dev/a.json", storageErr.Key)
			assert.Equal(t, tt.err, storageErr.Err)
		})
	}

	assert.NoError(t, classifyMinioError("k", nil))
}

func TestError_IsObjectNotFound(t *testing.T) {
	notFound := fmt.Errorf("failed to read snapshot: %w", wrapError(CodeObjectNotFound, "k", errors.New("gone")))
	denied := wrapError(CodePermissionDenied, "k", errors.New("nope"))

	assert.ErrorIs(t, notFound, ErrObjectNotFound)
	assert.NotErrorIs(t, denied, ErrObjectNotFound)
	assert.Equal(t, "E_OBJECT_NOT_FOUND (k): gone", errors.Unwrap(notFound).Error())
}
