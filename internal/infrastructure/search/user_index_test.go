package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-guard/internal/domain/entity"
)

// fakeES answers like an Elasticsearch 8 node for index and search calls.
func fakeES(t *testing.T, onRequest func(r *http.Request, body []byte)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if onRequest != nil {
			onRequest(r, body)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			_, _ = io.WriteString(w, `{"hits":{"hits":[
				{"_id":"1","_source":{"id":"1","name":"Ann","email":"a@x.com","isActive":true,"roles":["user"]}},
				{"_id":"2","_source":{"name":"Bob","email":"b@x.com"}}
			]}}`)
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"result":"created"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIndexUser(t *testing.T) {
	var gotPath string
	var gotDoc map[string]any
	srv := fakeES(t, func(r *http.Request, body []byte) {
		gotPath = r.URL.Path
		_ = json.Unmarshal(body, &gotDoc)
	})

	es, err := NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	idx := NewUserIndex(es, "users")

	err = idx.IndexUser(context.Background(), entity.PublicUser{ID: "1", Name: "Ann", Email: "a@x.com", IsActive: true})
	require.NoError(t, err)

	assert.Equal(t, "/users/_doc/1", gotPath)
	assert.Equal(t, "Ann", gotDoc["name"])
	assert.NotContains(t, gotDoc, "password")
}

func TestSearchUsers(t *testing.T) {
	var gotQuery map[string]any
	srv := fakeES(t, func(r *http.Request, body []byte) {
		if strings.HasSuffix(r.URL.Path, "/_search") {
			_ = json.Unmarshal(body, &gotQuery)
		}
	})

	es, err := NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	idx := NewUserIndex(es, "users")

	users, err := idx.SearchUsers(context.Background(), "ann", 5)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ann", users[0].Name)
	assert.Equal(t, "2", users[1].ID, "falls back to document id")
	assert.EqualValues(t, 5, gotQuery["size"])
}
