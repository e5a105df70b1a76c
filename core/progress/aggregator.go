package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/masomo-lab/core"
)

var nowFunc = time.Now // mockable

// Store is the persistence collaborator of the simulator, already scoped to
// one (student, activity) pair.
type Store interface {
	Save(ctx context.Context, componentID string, progress int, completed bool, snapshot CheckpointSet) error
	Load(ctx context.Context) ([]byte, error)
}

// Aggregator owns the session's CheckpointSet. Updates apply locally right
// away and are persisted in the background: failures are logged, never retried
// nor rolled back.
type Aggregator struct {
	store       Store
	logger      core.Logger
	tracked     []string
	saveTimeout time.Duration

	mu       sync.Mutex
	set      CheckpointSet
	onChange func(overall float64)

	saves sync.WaitGroup
}

func NewAggregator(store Store, logger core.Logger, tracked []string, saveTimeout time.Duration) *Aggregator {
	return &Aggregator{
		store:       store,
		logger:      core.LoggerOrDiscard(logger),
		tracked:     tracked,
		saveTimeout: saveTimeout,
		set:         NewCheckpointSet(tracked...),
	}
}

// OnChange registers fn to be called with the new overall progress after every change.
func (agg *Aggregator) OnChange(fn func(overall float64)) {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	agg.onChange = fn
}

// Seed loads the saved snapshot. A failed load or malformed data leaves an empty set.
func (agg *Aggregator) Seed(ctx context.Context) CheckpointSet {
	set := NewCheckpointSet(agg.tracked...)
	if agg.store != nil {
		data, err := agg.store.Load(ctx)
		if err != nil {
			agg.logger.Warn("loading checkpoints failed, starting empty", err)
		} else {
			set = ParseSnapshot(data, agg.logger, agg.tracked...)
		}
	}

	agg.mu.Lock()
	agg.set = set
	fn := agg.onChange
	agg.mu.Unlock()

	if fn != nil {
		fn(set.OverallProgress())
	}
	return set
}

// Checkpoints returns the current set.
func (agg *Aggregator) Checkpoints() CheckpointSet {
	agg.mu.Lock()
	defer agg.mu.Unlock()
	return agg.set
}

func (agg *Aggregator) OverallProgress() float64 {
	return agg.Checkpoints().OverallProgress()
}

// Record merges a component outcome into the set. It has the completion
// callback's signature so it can be handed to the simulator as is.
// An outcome that changes nothing (e.g. a second completion) is neither
// recomputed nor saved.
func (agg *Aggregator) Record(componentID string, progress int, completed bool) {
	agg.mu.Lock()
	prev := agg.set
	if !prev.Tracks(componentID) {
		agg.mu.Unlock()
		agg.logger.Warn("ignoring untracked component", map[string]interface{}{"component_id": componentID})
		return
	}
	next := prev.With(ComponentCheckpoint{
		ComponentID: componentID,
		Completed:   completed,
		Progress:    progress,
		Timestamp:   nowFunc().UTC(),
	})
	if len(next.Diff(prev)) == 0 {
		agg.mu.Unlock()
		return
	}
	agg.set = next
	fn := agg.onChange
	agg.mu.Unlock()

	if fn != nil {
		fn(next.OverallProgress())
	}
	agg.save(componentID, next)
}

func (agg *Aggregator) save(componentID string, snapshot CheckpointSet) {
	if agg.store == nil {
		return
	}
	cp, _ := snapshot.Get(componentID)

	agg.saves.Add(1)
	go func() {
		defer agg.saves.Done()
		defer func() {
			if r := recover(); r != nil {
				agg.logger.Error(fmt.Sprintf("saving checkpoint %q: store panicked: %v", componentID, r))
			}
		}()

		ctx := context.Background()
		if agg.saveTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, agg.saveTimeout)
			defer cancel()
		}
		if err := agg.store.Save(ctx, componentID, cp.Progress, cp.Completed, snapshot); err != nil {
			agg.logger.Error(fmt.Sprintf("saving checkpoint %q: %v", componentID, err), err)
		}
	}()
}

// Wait blocks until the in-flight saves are done.
func (agg *Aggregator) Wait() {
	agg.saves.Wait()
}
