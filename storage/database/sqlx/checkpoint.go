package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/storage/database"
)

const (
	selectCheckpoints = `SELECT component_id, completed, progress, updated_at FROM checkpoint
		WHERE student_id = ? AND activity_id = ? ORDER BY component_id`

	upsertCheckpoint = `INSERT INTO checkpoint (id, student_id, activity_id, component_id, completed, progress, updated_at)
		VALUES (:id, :student_id, :activity_id, :component_id, :completed, :progress, :updated_at)
		ON CONFLICT (student_id, activity_id, component_id)
		DO UPDATE SET completed = excluded.completed, progress = excluded.progress, updated_at = excluded.updated_at`

	deleteCheckpoints = `DELETE FROM checkpoint WHERE student_id = ? AND activity_id = ?`

	selectActivityProgress = `SELECT student_id,
		SUM(CASE WHEN completed THEN 1 ELSE 0 END) AS completed,
		MAX(updated_at) AS updated_at
		FROM checkpoint WHERE activity_id = ? GROUP BY student_id ORDER BY `
)

type checkpointRow struct {
	ID          string             `db:"id"`
	StudentID   string             `db:"student_id"`
	ActivityID  string             `db:"activity_id"`
	ComponentID string             `db:"component_id"`
	Completed   bool               `db:"completed"`
	Progress    int                `db:"progress"`
	UpdatedAt   database.Timestamp `db:"updated_at"`
}

type progressRow struct {
	StudentID string             `db:"student_id"`
	Completed int                `db:"completed"`
	UpdatedAt database.Timestamp `db:"updated_at"`
}

type checkpointRepository struct {
	exec     core.DBExecutor
	bindType int
}

var _ progress.Repository = (*checkpointRepository)(nil) // interface compliance check

// NewCheckpointRepository binds queries for driverName ("postgres", "sqlite", ...).
func NewCheckpointRepository(exec core.DBExecutor, driverName string) *checkpointRepository {
	return &checkpointRepository{exec: exec, bindType: sqlx.BindType(driverName)}
}

func (repo checkpointRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo checkpointRepository) rebind(query string) string {
	return sqlx.Rebind(repo.bindType, query)
}

// selectInto runs query and scans every row into dest, a pointer to a slice.
func (repo checkpointRepository) selectInto(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, repo.rebind(query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

func (repo checkpointRepository) LoadCheckpoints(ctx context.Context, key progress.Key, exec ...core.DBExecutor) ([]progress.ComponentCheckpoint, error) {
	var rows []checkpointRow
	if err := repo.selectInto(ctx, repo.getExec(exec), &rows, selectCheckpoints, key.StudentID, key.ActivityID); err != nil {
		return nil, errors.Wrap(err, "loading checkpoints")
	}
	cps := make([]progress.ComponentCheckpoint, 0, len(rows))
	for _, r := range rows {
		cps = append(cps, progress.ComponentCheckpoint{
			ComponentID: r.ComponentID,
			Completed:   r.Completed,
			Progress:    r.Progress,
			Timestamp:   r.UpdatedAt.Time.UTC(),
		})
	}
	return cps, nil
}

func (repo checkpointRepository) SaveCheckpoints(ctx context.Context, key progress.Key, cps []progress.ComponentCheckpoint, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	for _, cp := range cps {
		row := checkpointRow{
			ID:          uuid.New().String(),
			StudentID:   key.StudentID,
			ActivityID:  key.ActivityID,
			ComponentID: cp.ComponentID,
			Completed:   cp.Completed,
			Progress:    cp.Progress,
			UpdatedAt:   database.Timestamp{Time: cp.Timestamp.UTC()},
		}
		query, args, err := sqlx.Named(upsertCheckpoint, row)
		if err != nil {
			return errors.Wrap(err, "binding checkpoint")
		}
		if _, err = exe.ExecContext(ctx, repo.rebind(query), args...); err != nil {
			return errors.Wrapf(err, "saving checkpoint %q", cp.ComponentID)
		}
	}
	return nil
}

func (repo checkpointRepository) DeleteCheckpoints(ctx context.Context, key progress.Key, exec ...core.DBExecutor) (int, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, repo.rebind(deleteCheckpoints), key.StudentID, key.ActivityID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting checkpoints")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting checkpoints")
	}
	return int(cnt), nil
}

func (repo checkpointRepository) QueryActivityProgress(
	ctx context.Context,
	activityID string,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]progress.StudentProgress, error) {
	var rows []progressRow
	query := selectActivityProgress + database.OrderBy(ordering, "student_id")
	if err := repo.selectInto(ctx, repo.getExec(exec), &rows, query, activityID); err != nil {
		return nil, errors.Wrap(err, "querying activity progress")
	}

	report := make([]progress.StudentProgress, 0, len(rows))
	for _, r := range rows {
		report = append(report, progress.StudentProgress{StudentID: r.StudentID, Completed: r.Completed, UpdatedAt: r.UpdatedAt.Time})
	}
	return report, nil
}
