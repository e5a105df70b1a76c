package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/progress"
	"github.com/trezcool/masomo-lab/storage/database"
)

// PrepareDB opens a migrated in-memory sqlite database, closed with the test.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	conf := &core.Config{Database: core.DatabaseConfig{Engine: "sqlite", Name: ":memory:"}}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("db.Close() failed: %v", err)
		}
	})
	if err = database.Migrate(db, conf); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// ResetDB empties the checkpoint table.
func ResetDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("DELETE FROM checkpoint"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

// SaveCheckpoints stores completed checkpoints for the student's activity.
func SaveCheckpoints(t *testing.T, repo progress.Repository, studentID, activityID string, at time.Time, componentIDs ...string) {
	t.Helper()
	cps := make([]progress.ComponentCheckpoint, 0, len(componentIDs))
	for _, id := range componentIDs {
		cps = append(cps, progress.ComponentCheckpoint{ComponentID: id, Completed: true, Progress: 100, Timestamp: at.UTC()})
	}
	key := progress.Key{StudentID: studentID, ActivityID: activityID}
	if err := repo.SaveCheckpoints(context.Background(), key, cps); err != nil {
		t.Fatalf("SaveCheckpoints() failed: %v", err)
	}
}

// LogEntry is one call recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log calls. Safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the recorded calls at level, or all of them when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether a message at level contains substr.
func (l *Logger) Contains(level, substr string) bool {
	for _, e := range l.Entries(level) {
		if strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

func (l *Logger) String() string {
	var b strings.Builder
	for _, e := range l.Entries("") {
		fmt.Fprintf(&b, "%s: %s\n", e.Level, e.Msg)
	}
	return b.String()
}
