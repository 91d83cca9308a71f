package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

const (
	CodeObjectNotFound   = "E_OBJECT_NOT_FOUND"
	CodeBucketNotFound   = "E_BUCKET_NOT_FOUND"
	CodePermissionDenied = "E_PERMISSION_DENIED"
	CodeAuthInvalid      = "E_AUTH_INVALID"
	CodeStorageFailed    = "E_STORAGE_FAILED"
)

// ErrObjectNotFound matches any *Error with CodeObjectNotFound via errors.Is
var ErrObjectNotFound = errors.New("object not found")

// Error wraps a storage backend failure with a stable code
type Error struct {
	Code string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code
	if e.Key != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrObjectNotFound) see through the code
func (e *Error) Is(target error) bool {
	return target == ErrObjectNotFound && e.Code == CodeObjectNotFound
}

func wrapError(code, key string, err error) *Error {
	return &Error{Code: code, Key: key, Err: err}
}

// classifyMinioError converts minio-go errors to a coded *Error
func classifyMinioError(key string, err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return wrapError(CodeObjectNotFound, key, err)
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, key, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, key, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		return wrapError(CodeAuthInvalid, key, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such bucket"):
		return wrapError(CodeBucketNotFound, key, err)
	case strings.Contains(errStr, "no such key"), strings.Contains(errStr, "does not exist"):
		return wrapError(CodeObjectNotFound, key, err)
	case strings.Contains(errStr, "access denied"):
		return wrapError(CodePermissionDenied, key, err)
	}

	return wrapError(CodeStorageFailed, key, err)
}
