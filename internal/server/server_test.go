package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baheth/baheth/internal/query"
	"github.com/baheth/baheth/internal/search"
)

type fakeVector struct {
	hits map[string][]search.VectorHit
	err  error
}

func (f *fakeVector) Search(_ context.Context, collection string, _ []float32, _ int, _ map[string]any, _ float64) ([]search.VectorHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[collection], nil
}

type fakeLexical struct {
	hits map[string][]search.LexicalHit
}

func (f *fakeLexical) Search(_ context.Context, index, _ string, _ int, _ map[string]any, _ bool) ([]search.LexicalHit, error) {
	return f.hits[index], nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }
func (fakeEmbedder) ModelName() string                                { return "fake" }
func (fakeEmbedder) Dimensions() int                                  { return 1 }

type probeFunc func(ctx context.Context) error

func (f probeFunc) Health(ctx context.Context) error { return f(ctx) }

func newTestServer(vector *fakeVector, lexical *fakeLexical, opts ...Option) *Server {
	cfg := search.DefaultEngineConfig()
	adapters := search.NewAdapters(vector, lexical, fakeEmbedder{}, cfg)
	engine := search.NewEngine(adapters, query.NewNormalizer(), cfg)
	return New(engine, opts...)
}

func postSearch(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_ReturnsResults(t *testing.T) {
	s := newTestServer(
		&fakeVector{hits: map[string][]search.VectorHit{}},
		&fakeLexical{hits: map[string][]search.LexicalHit{
			"book_pages": {{Score: 9, Snippet: "snippet", Payload: map[string]any{
				"book_id": 3, "page": 7, "text": "نص الصفحة",
			}}},
		}},
	)

	rec := postSearch(t, s, `{"query":"فضل الصدقة","books":true,"mode":"keyword"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp search.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Books, 1)
	assert.Equal(t, 3, resp.Books[0].BookID)
	assert.Equal(t, search.ModeKeyword, resp.Diagnostics.Mode)
}

func TestHandleSearch_ValidationErrorsMapTo400(t *testing.T) {
	s := newTestServer(&fakeVector{}, &fakeLexical{})

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":""}`},
		{"bad mode", `{"query":"الصبر الجميل","mode":"vector"}`},
		{"negative limit", `{"query":"الصبر الجميل","limit":-1}`},
		{"malformed json", `{"query":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSearch(t, s, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleSearch_IndexNotReadyMapsTo503(t *testing.T) {
	s := newTestServer(
		&fakeVector{err: fmt.Errorf("%w: collection %q", search.ErrIndexNotReady, "book_pages")},
		&fakeLexical{},
	)

	rec := postSearch(t, s, `{"query":"فضل الصدقة"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeVector{}, &fakeLexical{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDiagnostics_AllHealthy(t *testing.T) {
	s := newTestServer(&fakeVector{}, &fakeLexical{},
		WithProbe("qdrant", probeFunc(func(context.Context) error { return nil })),
		WithProbe("fulltext", probeFunc(func(context.Context) error { return nil })),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp diagnosticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Services["qdrant"])
	assert.Equal(t, "ok", resp.Services["fulltext"])
}

func TestDiagnostics_DegradedReturns503(t *testing.T) {
	s := newTestServer(&fakeVector{}, &fakeLexical{},
		WithProbe("qdrant", probeFunc(func(context.Context) error { return nil })),
		WithProbe("database", probeFunc(func(context.Context) error {
			return errors.New("connection refused")
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp diagnosticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "connection refused", resp.Services["database"])
	assert.Equal(t, "ok", resp.Services["qdrant"])
}
