package backup

import (
	"encoding/json"
	"time"

	"github.com/stackvista/index-backup-cli/internal/elasticsearch"
)

// IndexDescriptor is one entry of the index catalog. DocCount is copied
// verbatim from the cat API and is empty for closed indices.
type IndexDescriptor struct {
	Name     string `json:"name"`
	DocCount string `json:"docCount"`
}

// DocumentRecord is a single exported document
type DocumentRecord struct {
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

// Bundle is the snapshot unit written to storage: the index mapping as
// returned by the cluster plus every exported document
type Bundle struct {
	Mapping json.RawMessage  `json:"mapping"`
	Data    []DocumentRecord `json:"data"`
}

// BackupObject describes a stored snapshot
type BackupObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// ExportResult is returned by a successful export
type ExportResult struct {
	Key    string
	Bundle *Bundle
}

// ImportResult is returned by a successful import. Bulk is nil when the
// snapshot held no documents.
type ImportResult struct {
	Index     string
	Documents int
	Bulk      *elasticsearch.BulkResult
}

// Request is an invocation event routed by Dispatch
type Request struct {
	Function    string `json:"function"`
	SrcIndex    string `json:"srcIndex,omitempty"`
	TargetIndex string `json:"targetIndex,omitempty"`
	SrcPath     string `json:"srcPath,omitempty"`
}

const (
	FunctionExport = "export"
	FunctionImport = "import"
)
