package progress

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
)

var (
	// errors
	ErrNotFound        = errors.New("checkpoints not found")
	ErrUnknownOrdering = errors.New("unknown ordering field")
)

// ordering fields accepted by Report
var reportOrderings = map[string]bool{
	"student_id": true,
	"completed":  true,
	"updated_at": true,
}

type (
	// Key scopes checkpoints to one student's attempt at one activity.
	Key struct {
		StudentID  string
		ActivityID string
	}

	// StudentProgress is one row of an activity's progress report.
	StudentProgress struct {
		StudentID string    `json:"student_id"`
		Completed int       `json:"completed"`
		Progress  float64   `json:"progress"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Repository interface {
		LoadCheckpoints(ctx context.Context, key Key, exec ...core.DBExecutor) ([]ComponentCheckpoint, error)
		// SaveCheckpoints upserts cps, one row per component.
		SaveCheckpoints(ctx context.Context, key Key, cps []ComponentCheckpoint, exec ...core.DBExecutor) error
		DeleteCheckpoints(ctx context.Context, key Key, exec ...core.DBExecutor) (int, error)
		// QueryActivityProgress counts completed components per student. Progress is left to the caller.
		QueryActivityProgress(ctx context.Context, activityID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]StudentProgress, error)
	}

	ServiceInterface interface {
		Tracked() []string
		Load(ctx context.Context, key Key) (CheckpointSet, error)
		Save(ctx context.Context, key Key, data SaveCheckpoint) (CheckpointSet, error)
		Reset(ctx context.Context, key Key) (int, error)
		Report(ctx context.Context, activityID string, ordering []core.DBOrdering) ([]StudentProgress, error)
	}

	Service struct {
		db      core.DB // nil: the repository is not transactional
		repo    Repository
		logger  core.Logger
		tracked []string
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(db core.DB, repo Repository, logger core.Logger, conf *core.Config) *Service {
	tracked := DefaultComponents
	if conf != nil && len(conf.Components) > 0 {
		tracked = conf.Components
	}
	return &Service{
		db:      db,
		repo:    repo,
		logger:  core.LoggerOrDiscard(logger),
		tracked: tracked,
	}
}

func (svc *Service) Tracked() []string {
	return append([]string(nil), svc.tracked...)
}

func (svc *Service) toSet(cps []ComponentCheckpoint) CheckpointSet {
	set := NewCheckpointSet(svc.tracked...)
	for _, cp := range cps {
		set = set.With(cp)
	}
	return set
}

func (svc *Service) Load(ctx context.Context, key Key) (CheckpointSet, error) {
	cps, err := svc.repo.LoadCheckpoints(ctx, key)
	if err != nil {
		return CheckpointSet{}, errors.Wrap(err, "loading checkpoints")
	}
	return svc.toSet(cps), nil
}

// Save merges the stored checkpoints, the client's snapshot and the saved
// component, then persists what changed. Completion never reverts.
func (svc *Service) Save(ctx context.Context, key Key, data SaveCheckpoint) (CheckpointSet, error) {
	var merged CheckpointSet
	err := svc.inTx(ctx, func(exec []core.DBExecutor) error {
		cps, err := svc.repo.LoadCheckpoints(ctx, key, exec...)
		if err != nil {
			return errors.Wrap(err, "loading checkpoints")
		}
		stored := svc.toSet(cps)

		now := nowFunc().UTC()
		merged = stored.Merge(ParseSnapshot(data.Snapshot, svc.logger, svc.tracked...)).With(ComponentCheckpoint{
			ComponentID: data.ComponentID,
			Completed:   data.Completed,
			Progress:    data.Progress,
			Timestamp:   now,
		}).Stamp(now)

		changed := merged.Diff(stored)
		if len(changed) == 0 {
			return nil
		}
		return errors.Wrap(svc.repo.SaveCheckpoints(ctx, key, changed, exec...), "saving checkpoints")
	})
	if err != nil {
		return CheckpointSet{}, err
	}
	return merged, nil
}

func (svc *Service) Reset(ctx context.Context, key Key) (int, error) {
	n, err := svc.repo.DeleteCheckpoints(ctx, key)
	if err != nil {
		return 0, errors.Wrap(err, "deleting checkpoints")
	}
	return n, nil
}

func (svc *Service) Report(ctx context.Context, activityID string, ordering []core.DBOrdering) ([]StudentProgress, error) {
	for _, ord := range ordering {
		if !reportOrderings[ord.Field] {
			return nil, core.NewValidationError(ErrUnknownOrdering, core.FieldError{Field: "ordering", Error: ErrUnknownOrdering.Error() + ": " + ord.Field})
		}
	}
	rows, err := svc.repo.QueryActivityProgress(ctx, activityID, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying activity progress")
	}
	for i := range rows {
		rows[i].Progress = 100 * float64(rows[i].Completed) / float64(len(svc.tracked))
	}
	return rows, nil
}

// inTx runs fn in a transaction when the service has a DB.
func (svc *Service) inTx(ctx context.Context, fn func(exec []core.DBExecutor) error) error {
	if svc.db == nil {
		return fn(nil)
	}
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	if err = fn([]core.DBExecutor{tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			svc.logger.Error("rolling back checkpoint transaction", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing checkpoints")
}

// SnapshotJSON encodes a set the way ParseSnapshot reads it.
func SnapshotJSON(set CheckpointSet) json.RawMessage {
	data, _ := json.Marshal(set)
	return data
}
