package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.WriteRecords(context.Background(), []store.Record{
		{RunID: "run-1", Seq: 1, Kind: "action", Type: "@init", Payload: json.RawMessage(`"@init"`)},
		{RunID: "run-1", Seq: 2, Kind: "state", Payload: json.RawMessage(`{"value":0}`)},
		{RunID: "run-2", Seq: 3, Kind: "action", Type: "@init", Payload: json.RawMessage(`"@init"`)},
	}))
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_ListRuns(t *testing.T) {
	h := NewHandler(seededStore(t), prometheus.NewRegistry(), nil)

	rec := get(t, h, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, int64(2), runs[0].Records)
}

func TestHandler_GetRun(t *testing.T) {
	h := NewHandler(seededStore(t), prometheus.NewRegistry(), nil)

	rec := get(t, h, "/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail RunDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "run-1", detail.RunID)
	assert.Equal(t, map[string]int64{"action": 1, "state": 1}, detail.Kinds)
	require.Len(t, detail.Records, 2)
	assert.JSONEq(t, `{"value":0}`, string(detail.Records[1].Payload))
}

func TestHandler_GetRunNotFound(t *testing.T) {
	h := NewHandler(seededStore(t), prometheus.NewRegistry(), nil)

	rec := get(t, h, "/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "run not found")
}

type brokenJournal struct{}

func (brokenJournal) ListRuns(context.Context) ([]store.RunSummary, error) {
	return nil, errors.New("db gone")
}
func (brokenJournal) ReadRun(context.Context, string) ([]store.Record, error) {
	return nil, errors.New("db gone")
}
func (brokenJournal) CountByKind(context.Context, string) (map[string]int64, error) {
	return nil, errors.New("db gone")
}

func TestHandler_JournalErrorIs500(t *testing.T) {
	h := NewHandler(brokenJournal{}, prometheus.NewRegistry(), nil)

	for _, path := range []string{"/runs", "/runs/x"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "db gone", "internal errors are not leaked")
	}
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "reflux_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Add(3)

	h := NewHandler(seededStore(t), reg, nil)
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "reflux_test_total 3"))
}

func TestHandler_Healthz(t *testing.T) {
	h := NewHandler(seededStore(t), prometheus.NewRegistry(), nil)

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandler_UnknownRoute(t *testing.T) {
	h := NewHandler(seededStore(t), prometheus.NewRegistry(), nil)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)
}
