// Package estest provides an in-memory Elasticsearch HTTP server covering
// the endpoints the backup tool calls, for use in tests.
package estest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// defaultPageSize mirrors the cluster's default search result window
const defaultPageSize = 10

// Doc is a stored document
type Doc struct {
	ID     string
	Source json.RawMessage
}

// Index is a stored index. Body is the create-index request body, i.e.
// {"mappings": {...}}, and is what the mapping API returns for it.
type Index struct {
	Body json.RawMessage
	Docs []Doc
}

// Cluster holds the server state
type Cluster struct {
	mu       sync.Mutex
	indices  map[string]*Index
	order    []string
	requests []string
}

// NewServer starts a server backed by an empty Cluster
func NewServer() (*httptest.Server, *Cluster) {
	c := &Cluster{indices: map[string]*Index{}}
	return httptest.NewServer(http.HandlerFunc(c.serveHTTP)), c
}

// AddIndex creates an index with body as its mapping document
func (c *Cluster) AddIndex(name, body string, docs ...Doc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addIndex(name, json.RawMessage(body))
	c.indices[name].Docs = append(c.indices[name].Docs, docs...)
}

// Index returns a copy of the named index
func (c *Cluster) Index(name string) (Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.indices[name]
	if !ok {
		return Index{}, false
	}
	return Index{Body: idx.Body, Docs: append([]Doc(nil), idx.Docs...)}, true
}

// Requests returns every request seen so far as "METHOD /path"
func (c *Cluster) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

func (c *Cluster) addIndex(name string, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage(`{"mappings":{}}`)
	}
	c.indices[name] = &Index{Body: body}
	c.order = append(c.order, name)
}

func (c *Cluster) serveHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "_cat/indices":
		c.catIndices(w)
	case path == "_bulk":
		c.bulk(w, r)
	case path == "_search/scroll" && r.Method == http.MethodDelete:
		writeJSON(w, http.StatusOK, map[string]any{"succeeded": true, "num_freed": 1})
	case path == "_search/scroll":
		writeJSON(w, http.StatusOK, map[string]any{"_scroll_id": "estest", "hits": map[string]any{"hits": []any{}}})
	case len(parts) == 2 && parts[1] == "_mapping":
		c.mapping(w, parts[0])
	case len(parts) == 2 && parts[1] == "_search":
		c.search(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodPut:
		c.createIndex(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "unsupported", fmt.Sprintf("no handler for %s %s", r.Method, r.URL.Path))
	}
}

func (c *Cluster) catIndices(w http.ResponseWriter) {
	rows := make([]map[string]string, 0, len(c.order))
	for _, name := range c.order {
		rows = append(rows, map[string]string{
			"index":      name,
			"docs.count": fmt.Sprint(len(c.indices[name].Docs)),
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (c *Cluster) mapping(w http.ResponseWriter, name string) {
	idx, ok := c.indices[name]
	if !ok {
		writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{name: idx.Body})
}

// search returns the first page, or every document when a scroll is opened
func (c *Cluster) search(w http.ResponseWriter, r *http.Request, name string) {
	idx, ok := c.indices[name]
	if !ok {
		writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
		return
	}

	docs := idx.Docs
	scrolling := r.URL.Query().Get("scroll") != ""
	if !scrolling && len(docs) > defaultPageSize {
		docs = docs[:defaultPageSize]
	}

	hits := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, map[string]any{"_index": name, "_id": d.ID, "_source": d.Source})
	}
	resp := map[string]any{"hits": map[string]any{"hits": hits}}
	if scrolling {
		resp["_scroll_id"] = "estest"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *Cluster) createIndex(w http.ResponseWriter, r *http.Request, name string) {
	if _, ok := c.indices[name]; ok {
		writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+name+"] already exists")
		return
	}
	body, _ := io.ReadAll(r.Body)
	if len(body) > 0 && !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "parse_exception", "request body is not valid JSON")
		return
	}
	c.addIndex(name, body)
	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": name})
}

// bulk applies create actions; a duplicate id is rejected per item
func (c *Cluster) bulk(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	lines := strings.FieldsFunc(string(body), func(r rune) bool { return r == '\n' || r == '\r' })

	items := []map[string]any{}
	hasErrors := false
	for i := 0; i+1 < len(lines); i += 2 {
		var action struct {
			Create struct {
				Index string `json:"_index"`
				ID    string `json:"_id"`
			} `json:"create"`
		}
		if err := json.Unmarshal([]byte(lines[i]), &action); err != nil {
			writeError(w, http.StatusBadRequest, "illegal_argument_exception", "malformed action/metadata line")
			return
		}

		target := action.Create.Index
		idx, ok := c.indices[target]
		if !ok {
			c.addIndex(target, nil)
			idx = c.indices[target]
		}

		item := map[string]any{"_index": target, "_id": action.Create.ID, "status": http.StatusCreated}
		if containsID(idx.Docs, action.Create.ID) {
			hasErrors = true
			item["status"] = http.StatusConflict
			item["error"] = map[string]string{
				"type":   "version_conflict_engine_exception",
				"reason": "[" + action.Create.ID + "]: version conflict, document already exists",
			}
		} else {
			idx.Docs = append(idx.Docs, Doc{ID: action.Create.ID, Source: json.RawMessage(lines[i+1])})
		}
		items = append(items, map[string]any{"create": item})
	}

	writeJSON(w, http.StatusOK, map[string]any{"took": 1, "errors": hasErrors, "items": items})
}

func containsID(docs []Doc, id string) bool {
	for _, d := range docs {
		if d.ID == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, reason string) {
	writeJSON(w, status, map[string]any{
		"error":  map[string]string{"type": errType, "reason": reason},
		"status": status,
	})
}
