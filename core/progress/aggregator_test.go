package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type savedCall struct {
	componentID string
	progress    int
	completed   bool
	snapshot    CheckpointSet
}

type fakeStore struct {
	mu       sync.Mutex
	data     []byte
	loadErr  error
	saveErr  error
	saves    []savedCall
	release  chan struct{} // blocks Save until closed, when set
	deadline bool
}

func (s *fakeStore) Save(ctx context.Context, componentID string, progress int, completed bool, snapshot CheckpointSet) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.deadline = ctx.Deadline()
	s.saves = append(s.saves, savedCall{componentID, progress, completed, snapshot})
	return s.saveErr
}

func (s *fakeStore) Load(context.Context) ([]byte, error) {
	return s.data, s.loadErr
}

func (s *fakeStore) calls() []savedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]savedCall(nil), s.saves...)
}

func TestAggregator_Seed(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		want  float64
		logs  int
	}{
		{name: "no store", want: 0},
		{name: "load failure", store: &fakeStore{loadErr: errors.New("offline")}, logs: 1},
		{name: "malformed", store: &fakeStore{data: []byte("<html>")}, logs: 1},
		{name: "absent", store: &fakeStore{}},
		{name: "cpu done", store: &fakeStore{data: []byte(`{"cpu":{"completed":true}}`)}, want: 100.0 / 3},
		{
			name:  "all done",
			store: &fakeStore{data: []byte(`{"cpu":{"completed":true},"cmos":{"completed":true},"ram":{"completed":true}}`)},
			want:  100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &countingLogger{}
			agg := NewAggregator(tt.store, logger, nil, 0)

			var notified []float64
			agg.OnChange(func(overall float64) { notified = append(notified, overall) })

			set := agg.Seed(context.Background())
			assert.InDelta(t, tt.want, set.OverallProgress(), 1e-9)
			assert.InDelta(t, tt.want, agg.OverallProgress(), 1e-9)
			assert.Equal(t, tt.logs, logger.count)
			require.Len(t, notified, 1)
		})
	}
}

func TestAggregator_Record(t *testing.T) {
	defer goleak.VerifyNone(t)

	nowFunc = func() time.Time { return ts }
	defer func() { nowFunc = time.Now }()

	store := &fakeStore{}
	agg := NewAggregator(store, nil, nil, time.Second)
	agg.Seed(context.Background())

	var notified []float64
	agg.OnChange(func(overall float64) { notified = append(notified, overall) })

	agg.Record("cpu", 100, true)
	agg.Record("cpu", 100, true) // second completion is a no-op
	agg.Record("gpu", 100, true) // untracked
	agg.Wait()

	assert.InDelta(t, 100.0/3, agg.OverallProgress(), 1e-9)
	assert.Len(t, notified, 1)

	calls := store.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "cpu", calls[0].componentID)
	assert.Equal(t, 100, calls[0].progress)
	assert.True(t, calls[0].completed)
	assert.Equal(t, []string{"cpu"}, calls[0].snapshot.Completed())
	cp, _ := calls[0].snapshot.Get("cpu")
	assert.Equal(t, ts, cp.Timestamp)
	assert.True(t, store.deadline, "save runs under the save timeout")
}

func TestAggregator_RecordDoesNotBlockOnSave(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{release: make(chan struct{})}
	agg := NewAggregator(store, nil, nil, 0)

	agg.Record("ram", 100, true) // returns while Save is blocked
	assert.Equal(t, []string{"ram"}, agg.Checkpoints().Completed())
	assert.Empty(t, store.calls())

	close(store.release)
	agg.Wait()
	assert.Len(t, store.calls(), 1)
}

func TestAggregator_SaveFailureKeepsLocalState(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := &syncLogger{}
	store := &fakeStore{saveErr: errors.New("503")}
	agg := NewAggregator(store, logger, nil, 0)

	agg.Record("cmos", 100, true)
	agg.Wait()

	assert.True(t, agg.Checkpoints().IsCompleted("cmos"))
	assert.Equal(t, 1, logger.errors())
	assert.Len(t, store.calls(), 1, "no retry")
}

type syncLogger struct {
	mu   sync.Mutex
	errs int
}

func (l *syncLogger) Debug(string, ...interface{}) {}
func (l *syncLogger) Info(string, ...interface{})  {}
func (l *syncLogger) Warn(string, ...interface{})  {}
func (l *syncLogger) Error(string, ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs++
}
func (l *syncLogger) Fatal(string, ...interface{}) {}

func (l *syncLogger) errors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errs
}

type panickingStore struct{}

func (panickingStore) Save(context.Context, string, int, bool, CheckpointSet) error {
	panic("connection pool exhausted")
}

func (panickingStore) Load(context.Context) ([]byte, error) {
	return nil, nil
}

func TestAggregator_savePanicIsLogged(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := &countingLogger{}
	agg := NewAggregator(panickingStore{}, logger, nil, time.Second)

	require.NotPanics(t, func() {
		agg.Record("cpu", 100, true)
		agg.Wait()
	})
	assert.Equal(t, 1, logger.count)
	assert.True(t, agg.Checkpoints().IsCompleted("cpu"), "the local set keeps the completion")
}
