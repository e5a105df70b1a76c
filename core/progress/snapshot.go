package progress

import (
	"bytes"
	"encoding/json"

	"github.com/trezcool/masomo-lab/core"
)

// ParseSnapshot decodes a persisted snapshot into a set for the tracked components.
// It never fails: a malformed document yields an empty set, a malformed or
// unknown entry is skipped. Both are logged.
func ParseSnapshot(data []byte, logger core.Logger, tracked ...string) CheckpointSet {
	logger = core.LoggerOrDiscard(logger)
	set := NewCheckpointSet(tracked...)

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return set
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("malformed checkpoint snapshot, starting empty", err)
		return set
	}

	for id, entry := range raw {
		if !set.Tracks(id) {
			logger.Debug("skipping untracked component in snapshot", map[string]interface{}{"component_id": id})
			continue
		}
		var cp ComponentCheckpoint
		if err := json.Unmarshal(entry, &cp); err != nil {
			logger.Warn("skipping malformed checkpoint", err, map[string]interface{}{"component_id": id})
			continue
		}
		if cp.ComponentID != "" && cp.ComponentID != id {
			logger.Warn("skipping mismatched checkpoint", map[string]interface{}{"key": id, "component_id": cp.ComponentID})
			continue
		}
		cp.ComponentID = id
		set = set.With(cp)
	}
	return set
}
