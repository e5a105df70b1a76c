package dummydb

import (
	"sync"

	"github.com/trezcool/masomo-lab/core/progress"
)

type (
	DB struct {
		checkpoint *checkpointTable
	}

	checkpointTable struct {
		sync.RWMutex
		table map[progress.Key]map[string]progress.ComponentCheckpoint
	}
)

func Open() (*DB, error) {
	db := &DB{
		checkpoint: &checkpointTable{table: make(map[progress.Key]map[string]progress.ComponentCheckpoint)},
	}
	return db, nil
}
