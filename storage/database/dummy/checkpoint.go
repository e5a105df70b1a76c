package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
)

type checkpointRepository struct {
	db *checkpointTable
}

var _ progress.Repository = (*checkpointRepository)(nil) // interface compliance check

func NewCheckpointRepository(db *DB) progress.Repository {
	return &checkpointRepository{db: db.checkpoint}
}

func (repo *checkpointRepository) LoadCheckpoints(_ context.Context, key progress.Key, _ ...core.DBExecutor) ([]progress.ComponentCheckpoint, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.table[key]
	cps := make([]progress.ComponentCheckpoint, 0, len(rows))
	for _, cp := range rows {
		cps = append(cps, cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].ComponentID < cps[j].ComponentID })
	return cps, nil
}

func (repo *checkpointRepository) SaveCheckpoints(_ context.Context, key progress.Key, cps []progress.ComponentCheckpoint, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows, ok := repo.db.table[key]
	if !ok {
		rows = make(map[string]progress.ComponentCheckpoint, len(cps))
		repo.db.table[key] = rows
	}
	for _, cp := range cps {
		rows[cp.ComponentID] = cp
	}
	return nil
}

func (repo *checkpointRepository) DeleteCheckpoints(_ context.Context, key progress.Key, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n := len(repo.db.table[key])
	delete(repo.db.table, key)
	return n, nil
}

func (repo *checkpointRepository) QueryActivityProgress(
	_ context.Context,
	activityID string,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]progress.StudentProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var rows []progress.StudentProgress
	for key, cps := range repo.db.table {
		if key.ActivityID != activityID {
			continue
		}
		row := progress.StudentProgress{StudentID: key.StudentID}
		for _, cp := range cps {
			if cp.Completed {
				row.Completed++
			}
			if cp.Timestamp.After(row.UpdatedAt) {
				row.UpdatedAt = cp.Timestamp
			}
		}
		rows = append(rows, row)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "student_id", Ascending: true}}
	}
	sort.Slice(rows, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compare(rows[i], rows[j], ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows, nil
}

func compare(a, b progress.StudentProgress, field string) int {
	switch field {
	case "completed":
		return a.Completed - b.Completed
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	default:
		switch {
		case a.StudentID < b.StudentID:
			return -1
		case a.StudentID > b.StudentID:
			return 1
		}
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
