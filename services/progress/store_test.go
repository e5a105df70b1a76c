package progresssvc_test

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/services/progress"
	"github.com/trezcool/masomo-lab/storage/database/dummy"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   []byte
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	response string
}

func (api *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := ioutil.ReadAll(r.Body)
	api.mu.Lock()
	api.requests = append(api.requests, recorded{method: r.Method, path: r.URL.EscapedPath(), auth: r.Header.Get("Authorization"), body: body})
	status, response := api.status, api.response
	api.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

func (api *fakeAPI) last(t *testing.T) recorded {
	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.requests)
	return api.requests[len(api.requests)-1]
}

func newFakeAPI(t *testing.T, status int, response string) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{status: status, response: response}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func TestRESTStore_Load(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{"checkpoints": {"cpu": {"component_id": "cpu", "completed": true, "progress": 100}}, "overall_progress": 33.3}`)
	store := progresssvc.NewRESTStore(srv.URL+"/", "tok", "pc build", nil)

	data, err := store.Load(context.Background())
	require.NoError(t, err)

	req := api.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/v1/activities/pc%20build/checkpoints", req.path)
	assert.Equal(t, "Bearer tok", req.auth)

	set := progress.ParseSnapshot(data, nil)
	assert.Equal(t, []string{"cpu"}, set.Completed())
}

func TestRESTStore_Save(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{}`)
	store := progresssvc.NewRESTStore(srv.URL, "tok", "pc-build", nil)

	snapshot := progress.NewCheckpointSet().With(progress.ComponentCheckpoint{ComponentID: "ram", Completed: true})
	require.NoError(t, store.Save(context.Background(), "ram", 100, true, snapshot))

	req := api.last(t)
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/v1/activities/pc-build/checkpoints/ram", req.path)

	var body progress.SaveCheckpoint
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "pc-build", body.ActivityID)
	assert.Equal(t, "ram", body.ComponentID)
	assert.Equal(t, 100, body.Progress)
	assert.True(t, body.Completed)
	assert.Equal(t, []string{"ram"}, progress.ParseSnapshot(body.Snapshot, nil).Completed())
}

func TestRESTStore_errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantMsg  string
	}{
		{name: "json error", status: http.StatusUnauthorized, response: `{"error": "missing or malformed jwt"}`, wantMsg: "missing or malformed jwt"},
		{name: "plain error", status: http.StatusBadGateway, response: "upstream down\n", wantMsg: "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeAPI(t, tt.status, tt.response)
			store := progresssvc.NewRESTStore(srv.URL, "", "pc-build", srv.Client())

			err := store.Save(context.Background(), "cpu", 100, true, progress.NewCheckpointSet())
			require.Error(t, err)
			apiErr, ok := errors.Cause(err).(*progresssvc.APIError)
			require.True(t, ok, "got %T", errors.Cause(err))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)

			_, err = store.Load(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRESTStore_canceledContext(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{}`)
	store := progresssvc.NewRESTStore(srv.URL, "tok", "pc-build", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Save(ctx, "cpu", 100, true, progress.NewCheckpointSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	_, err = store.Load(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.requests)
}

func TestRESTStore_aggregator(t *testing.T) {
	api, srv := newFakeAPI(t, http.StatusOK, `{"checkpoints": null}`)
	store := progresssvc.NewRESTStore(srv.URL, "tok", "pc-build", nil)
	agg := progress.NewAggregator(store, nil, nil, 0)

	assert.Equal(t, 0.0, agg.Seed(context.Background()).OverallProgress())
	agg.Record("cmos", 100, true)
	agg.Wait()

	req := api.last(t)
	assert.Equal(t, "/v1/activities/pc-build/checkpoints/cmos", req.path)
	assert.InDelta(t, 33.33, agg.OverallProgress(), .01)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	db, err := dummydb.Open()
	require.NoError(t, err)
	svc := progress.NewService(nil, dummydb.NewCheckpointRepository(db), nil, nil)
	key := progress.Key{StudentID: "s1", ActivityID: "pc-build"}
	store := progresssvc.NewLocalStore(svc, key)

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, progress.ParseSnapshot(data, nil).Completed())

	snapshot := progress.NewCheckpointSet().With(progress.ComponentCheckpoint{ComponentID: "cpu", Completed: true})
	require.NoError(t, store.Save(ctx, "ram", 100, true, snapshot))

	data, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpu", "ram"}, progress.ParseSnapshot(data, nil).Completed())

	// stored under the store's key only
	set, err := svc.Load(ctx, progress.Key{StudentID: "s2", ActivityID: "pc-build"})
	require.NoError(t, err)
	assert.Zero(t, set.CompletedCount())
}
