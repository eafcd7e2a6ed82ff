package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldServer fakes the people service for upsert tests. It records every
// write it receives.
type fieldServer struct {
	mu       sync.Mutex
	personID string
	doc      string
	writes   []recordedWrite
}

type recordedWrite struct {
	method string
	path   string
	body   map[string]any
}

func (s *fieldServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/people/"+s.personID+"/field_data":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, s.doc)
		case r.Method == http.MethodGet && r.URL.Path == "/field_definitions":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data": [], "links": {}}`)
		case r.Method == http.MethodPost || r.Method == http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			var parsed map[string]any
			_ = json.Unmarshal(body, &parsed)
			s.mu.Lock()
			s.writes = append(s.writes, recordedWrite{method: r.Method, path: r.URL.Path, body: parsed})
			s.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	})
}

func (s *fieldServer) recorded() []recordedWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedWrite(nil), s.writes...)
}

func TestUpsertField_ExistingDatumUpdates(t *testing.T) {
	fs := &fieldServer{personID: "p-1", doc: personDoc}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.UpsertField(context.Background(), "p-1", "Background Check", "Complete")
	require.NoError(t, err)

	writes := fs.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPatch, writes[0].method)
	assert.Equal(t, "/field_data/datum-1", writes[0].path)

	data := writes[0].body["data"].(map[string]any)
	assert.Equal(t, "datum-1", data["id"])
	assert.Equal(t, "Complete", data["attributes"].(map[string]any)["value"])
	assert.Nil(t, data["relationships"], "updates address the datum, not the definition")
}

func TestUpsertField_MissingDatumCreates(t *testing.T) {
	// Definition is included in the snapshot, but no datum exists for it.
	doc := `{
	  "data": [],
	  "included": [
	    {"type": "FieldDefinition", "id": "def-1", "attributes": {"name": "Background Check"}}
	  ]
	}`
	fs := &fieldServer{personID: "p-1", doc: doc}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.UpsertField(context.Background(), "p-1", "Background Check", "Required")
	require.NoError(t, err)

	writes := fs.recorded()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPost, writes[0].method)
	assert.Equal(t, "/people/p-1/field_data", writes[0].path)

	data := writes[0].body["data"].(map[string]any)
	assert.Equal(t, "Required", data["attributes"].(map[string]any)["value"])
	rel := data["relationships"].(map[string]any)["field_definition"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "def-1", rel["id"])
	assert.Nil(t, data["id"], "creates carry no datum id")
}

func TestUpsertField_UnresolvedFieldFails(t *testing.T) {
	fs := &fieldServer{personID: "p-1", doc: `{"data": [], "included": []}`}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.UpsertField(context.Background(), "p-1", "No Such Field", "x")
	require.Error(t, err)
	assert.True(t, IsFieldNotFound(err))
	assert.Empty(t, fs.recorded(), "no write may be issued for an unresolved field")
}

func TestUpsertField_PersonFetchFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.UpsertField(context.Background(), "p-1", "Background Check", "x")
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestUpsertField_ConcurrentFirstTimeWritesCreateOnce(t *testing.T) {
	// Both goroutines target the same missing datum. The keyed lock
	// serializes them; the server grows the datum after the first create,
	// so the second upsert must take the update branch.
	fs := &fieldServer{personID: "p-1", doc: `{
	  "data": [],
	  "included": [
	    {"type": "FieldDefinition", "id": "def-1", "attributes": {"name": "Background Check"}}
	  ]
	}`}
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		if created {
			fs.doc = personDoc
		}
		fs.mu.Unlock()
		if r.Method == http.MethodPost {
			fs.mu.Lock()
			created = true
			fs.mu.Unlock()
		}
		fs.handler().ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.UpsertField(context.Background(), "p-1", "Background Check", "Required")
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var creates int
	for _, wr := range fs.recorded() {
		if wr.method == http.MethodPost {
			creates++
		}
	}
	assert.Equal(t, 1, creates, "exactly one create for concurrent first-time upserts")
}
