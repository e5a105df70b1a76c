package progresssvc

import (
	"context"

	"github.com/trezcool/masomo-lab/core/progress"
)

// LocalStore persists checkpoints straight through a progress service, for
// one student's activity.
type LocalStore struct {
	svc progress.ServiceInterface
	key progress.Key
}

var _ progress.Store = (*LocalStore)(nil)

func NewLocalStore(svc progress.ServiceInterface, key progress.Key) *LocalStore {
	return &LocalStore{svc: svc, key: key}
}

func (s *LocalStore) Load(ctx context.Context) ([]byte, error) {
	set, err := s.svc.Load(ctx, s.key)
	if err != nil {
		return nil, err
	}
	return progress.SnapshotJSON(set), nil
}

func (s *LocalStore) Save(ctx context.Context, componentID string, progressPct int, completed bool, snapshot progress.CheckpointSet) error {
	_, err := s.svc.Save(ctx, s.key, progress.SaveCheckpoint{
		ActivityID:  s.key.ActivityID,
		ComponentID: componentID,
		Progress:    progressPct,
		Completed:   completed,
		Snapshot:    progress.SnapshotJSON(snapshot),
	})
	return err
}
