// Package models maps the checkpoint table for sqlboiler queries.
package models

import (
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
)

// dialect is shared by postgres and sqlite: double quotes and $n placeholders.
var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
}

var TableNames = struct {
	Checkpoint string
}{
	Checkpoint: "checkpoint",
}

var CheckpointColumns = struct {
	ID          string
	StudentID   string
	ActivityID  string
	ComponentID string
	Completed   string
	Progress    string
	UpdatedAt   string
}{
	ID:          "id",
	StudentID:   "student_id",
	ActivityID:  "activity_id",
	ComponentID: "component_id",
	Completed:   "completed",
	Progress:    "progress",
	UpdatedAt:   "updated_at",
}

// Checkpoint is a row of the checkpoint table.
type Checkpoint struct {
	ID          string    `boil:"id" json:"id"`
	StudentID   string    `boil:"student_id" json:"student_id"`
	ActivityID  string    `boil:"activity_id" json:"activity_id"`
	ComponentID string    `boil:"component_id" json:"component_id"`
	Completed   bool      `boil:"completed" json:"completed"`
	Progress    int       `boil:"progress" json:"progress"`
	UpdatedAt   null.Time `boil:"updated_at" json:"updated_at"`
}

type CheckpointSlice []*Checkpoint

// NewQuery starts a query in the schema's dialect.
func NewQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

// Checkpoints selects from the checkpoint table.
func Checkpoints(mods ...qm.QueryMod) *queries.Query {
	mods = append([]qm.QueryMod{qm.From(`"` + TableNames.Checkpoint + `"`)}, mods...)
	return NewQuery(mods...)
}
