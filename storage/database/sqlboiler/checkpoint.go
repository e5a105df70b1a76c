package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/storage/database"
	"github.com/trezcool/masomo-lab/storage/database/sqlboiler/models"
)

var cols = models.CheckpointColumns

var upsertCheckpoint = fmt.Sprintf(
	`INSERT INTO "%s" (%s, %s, %s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (%s, %s, %s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s, %s = excluded.%s`,
	models.TableNames.Checkpoint,
	cols.ID, cols.StudentID, cols.ActivityID, cols.ComponentID, cols.Completed, cols.Progress, cols.UpdatedAt,
	cols.StudentID, cols.ActivityID, cols.ComponentID,
	cols.Completed, cols.Completed, cols.Progress, cols.Progress, cols.UpdatedAt, cols.UpdatedAt,
)

type checkpointRepository struct {
	exec core.DBExecutor
}

var _ progress.Repository = (*checkpointRepository)(nil) // interface compliance check

func NewCheckpointRepository(exec core.DBExecutor) *checkpointRepository {
	return &checkpointRepository{exec: exec}
}

func (repo checkpointRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo checkpointRepository) boil(key progress.Key, cp progress.ComponentCheckpoint) *models.Checkpoint {
	return &models.Checkpoint{
		ID:          uuid.New().String(),
		StudentID:   key.StudentID,
		ActivityID:  key.ActivityID,
		ComponentID: cp.ComponentID,
		Completed:   cp.Completed,
		Progress:    cp.Progress,
		UpdatedAt:   null.NewTime(cp.Timestamp.UTC(), !cp.Timestamp.IsZero()),
	}
}

func (repo checkpointRepository) unboil(c *models.Checkpoint) progress.ComponentCheckpoint {
	if c == nil {
		return progress.ComponentCheckpoint{}
	}
	cp := progress.ComponentCheckpoint{
		ComponentID: c.ComponentID,
		Completed:   c.Completed,
		Progress:    c.Progress,
	}
	if c.UpdatedAt.Valid {
		cp.Timestamp = c.UpdatedAt.Time.UTC()
	}
	return cp
}

// trapNoRowsErr maps the "no rows" err to progress.ErrNotFound
func (repo checkpointRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return progress.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo checkpointRepository) LoadCheckpoints(ctx context.Context, key progress.Key, exec ...core.DBExecutor) ([]progress.ComponentCheckpoint, error) {
	var slice models.CheckpointSlice
	err := models.Checkpoints(
		qm.Where(fmt.Sprintf("%s = ? AND %s = ?", cols.StudentID, cols.ActivityID), key.StudentID, key.ActivityID),
		qm.OrderBy(cols.ComponentID),
	).Bind(ctx, repo.getExec(exec), &slice)
	if err != nil {
		if err = repo.trapNoRowsErr(err, "loading checkpoints"); err == progress.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	cps := make([]progress.ComponentCheckpoint, 0, len(slice))
	for _, c := range slice {
		cps = append(cps, repo.unboil(c))
	}
	return cps, nil
}

func (repo checkpointRepository) SaveCheckpoints(ctx context.Context, key progress.Key, cps []progress.ComponentCheckpoint, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	for _, cp := range cps {
		c := repo.boil(key, cp)
		_, err := queries.Raw(upsertCheckpoint,
			c.ID, c.StudentID, c.ActivityID, c.ComponentID, c.Completed, c.Progress, c.UpdatedAt,
		).ExecContext(ctx, exe)
		if err != nil {
			return errors.Wrapf(err, "saving checkpoint %q", cp.ComponentID)
		}
	}
	return nil
}

func (repo checkpointRepository) DeleteCheckpoints(ctx context.Context, key progress.Key, exec ...core.DBExecutor) (int, error) {
	res, err := queries.Raw(
		fmt.Sprintf(`DELETE FROM "%s" WHERE %s = $1 AND %s = $2`, models.TableNames.Checkpoint, cols.StudentID, cols.ActivityID),
		key.StudentID, key.ActivityID,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return 0, errors.Wrap(err, "deleting checkpoints")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting checkpoints")
	}
	return int(cnt), nil
}

type progressRow struct {
	StudentID string             `boil:"student_id"`
	Completed int                `boil:"completed"`
	UpdatedAt database.Timestamp `boil:"updated_at"`
}

func (repo checkpointRepository) QueryActivityProgress(
	ctx context.Context,
	activityID string,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]progress.StudentProgress, error) {
	var rows []progressRow
	err := models.Checkpoints(
		qm.Select(
			cols.StudentID,
			fmt.Sprintf("SUM(CASE WHEN %s THEN 1 ELSE 0 END) AS completed", cols.Completed),
			fmt.Sprintf("MAX(%s) AS updated_at", cols.UpdatedAt),
		),
		qm.Where(cols.ActivityID+" = ?", activityID),
		qm.GroupBy(cols.StudentID),
		qm.OrderBy(database.OrderBy(ordering, cols.StudentID)),
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		if err = repo.trapNoRowsErr(err, "querying activity progress"); err == progress.ErrNotFound {
			return []progress.StudentProgress{}, nil
		}
		return nil, err
	}

	report := make([]progress.StudentProgress, 0, len(rows))
	for _, r := range rows {
		report = append(report, progress.StudentProgress{StudentID: r.StudentID, Completed: r.Completed, UpdatedAt: r.UpdatedAt.Time})
	}
	return report, nil
}
