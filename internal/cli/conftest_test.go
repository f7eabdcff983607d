package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeES is a minimal Elasticsearch that keeps one index in memory.
type fakeES struct {
	mu      sync.Mutex
	exists  bool
	mapping map[string]any
	docs    map[string]json.RawMessage
	deletes int
}

func newFakeES(t *testing.T, exists bool) (*fakeES, *httptest.Server) {
	t.Helper()
	es := &fakeES{exists: exists, docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(es)
	t.Cleanup(srv.Close)
	return es, srv
}

func (es *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	es.mu.Lock()
	defer es.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/":
		_, _ = w.Write([]byte(`{"version":{"number":"8.17.0"}}`))
	case strings.HasSuffix(path, "/_bulk"):
		es.bulk(w, r)
	case strings.HasSuffix(path, "/_refresh"):
		_, _ = w.Write([]byte(`{"_shards":{"total":1,"successful":1,"failed":0}}`))
	case strings.HasSuffix(path, "/_count"):
		fmt.Fprintf(w, `{"count":%d}`, len(es.docs))
	case strings.HasSuffix(path, "/_search"):
		es.search(w)
	case r.Method == http.MethodHead:
		if !es.exists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodDelete:
		es.exists = false
		es.deletes++
		es.docs = map[string]json.RawMessage{}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&es.mapping)
		es.exists = true
		fmt.Fprintf(w, `{"acknowledged":true,"index":%q}`, strings.TrimPrefix(path, "/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (es *fakeES) bulk(w http.ResponseWriter, r *http.Request) {
	var items []string
	var id string
	sc := bufio.NewScanner(r.Body)
	sc.Buffer(make([]byte, 1<<20), 1<<20)
	for line := 0; sc.Scan(); line++ {
		if line%2 == 0 {
			var meta map[string]map[string]any
			_ = json.Unmarshal(sc.Bytes(), &meta)
			id, _ = meta["index"]["_id"].(string)
			continue
		}
		es.docs[id] = append(json.RawMessage(nil), sc.Bytes()...)
		items = append(items, fmt.Sprintf(`{"index":{"_id":%q,"status":201,"result":"created"}}`, id))
	}
	fmt.Fprintf(w, `{"took":1,"errors":false,"items":[%s]}`, strings.Join(items, ","))
}

func (es *fakeES) search(w http.ResponseWriter) {
	var hits []string
	for id, doc := range es.docs {
		hits = append(hits, fmt.Sprintf(`{"_id":%q,"_score":1.5,"_source":%s}`, id, doc))
	}
	if hits == nil && len(es.docs) == 0 {
		hits = []string{`{"_id":"seed","_score":2.25,"_source":{"generated_text":"BE CAREFUL","duration":5.1,"age":"twenties"}}`}
	}
	fmt.Fprintf(w, `{"took":1,"hits":{"total":{"value":%d,"relation":"eq"},"hits":[%s]}}`, len(hits), strings.Join(hits, ","))
}

// writeConfig writes a config file and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cvctl.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// run executes cvctl with args and returns the exit code plus captured output.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("ENV", "local")
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), append(args, "--no-color"), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (es *fakeES) counts() (docs, deletes int) {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.docs), es.deletes
}

func (es *fakeES) setting(name string) any {
	es.mu.Lock()
	defer es.mu.Unlock()
	settings, _ := es.mapping["settings"].(map[string]any)
	return settings[name]
}
