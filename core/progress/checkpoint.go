package progress

import (
	"encoding/json"
	"sort"
	"time"
)

// DefaultComponents are the hardware parts the lab tracks, in hub order.
var DefaultComponents = []string{"cpu", "cmos", "ram"}

const (
	MinProgress = 0
	MaxProgress = 100
)

// ComponentCheckpoint is the completion record of one tracked component.
type ComponentCheckpoint struct {
	ComponentID string    `json:"component_id"`
	Completed   bool      `json:"completed"`
	Progress    int       `json:"progress"`
	Timestamp   time.Time `json:"timestamp"`
}

func (cp ComponentCheckpoint) normalize() ComponentCheckpoint {
	if cp.Progress < MinProgress {
		cp.Progress = MinProgress
	}
	if cp.Progress > MaxProgress || cp.Completed {
		cp.Progress = MaxProgress
	}
	if !cp.Timestamp.IsZero() {
		cp.Timestamp = cp.Timestamp.UTC()
	}
	return cp
}

// merge folds o into cp: completion never reverts and progress never decreases.
func (cp ComponentCheckpoint) merge(o ComponentCheckpoint) ComponentCheckpoint {
	o = o.normalize()
	ts := o.Timestamp
	if ts.IsZero() {
		ts = cp.Timestamp
	}
	out := cp
	if o.Completed && !cp.Completed {
		out.Completed = true
		out.Timestamp = ts
	}
	if o.Progress > out.Progress {
		out.Progress = o.Progress
		if !cp.Completed {
			out.Timestamp = ts
		}
	}
	return out.normalize()
}

func (cp ComponentCheckpoint) started() bool {
	return cp.Completed || cp.Progress > MinProgress
}

// CheckpointSet holds one checkpoint per tracked component. It is immutable:
// every update returns a new set.
type CheckpointSet struct {
	ids   []string
	items map[string]ComponentCheckpoint
}

// NewCheckpointSet returns an empty set for the tracked components (DefaultComponents when none given).
func NewCheckpointSet(tracked ...string) CheckpointSet {
	if len(tracked) == 0 {
		tracked = DefaultComponents
	}
	s := CheckpointSet{
		ids:   make([]string, 0, len(tracked)),
		items: make(map[string]ComponentCheckpoint, len(tracked)),
	}
	for _, id := range tracked {
		if _, dup := s.items[id]; dup || id == "" {
			continue
		}
		s.ids = append(s.ids, id)
		s.items[id] = ComponentCheckpoint{ComponentID: id}
	}
	return s
}

func (s CheckpointSet) clone() CheckpointSet {
	c := CheckpointSet{
		ids:   s.ids, // never mutated
		items: make(map[string]ComponentCheckpoint, len(s.items)),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// IDs returns the tracked component ids.
func (s CheckpointSet) IDs() []string {
	return append([]string(nil), s.ids...)
}

func (s CheckpointSet) Len() int {
	return len(s.ids)
}

func (s CheckpointSet) Tracks(id string) bool {
	_, ok := s.items[id]
	return ok
}

func (s CheckpointSet) Get(id string) (ComponentCheckpoint, bool) {
	cp, ok := s.items[id]
	return cp, ok
}

func (s CheckpointSet) IsCompleted(id string) bool {
	return s.items[id].Completed
}

// Checkpoints lists the checkpoints in tracking order.
func (s CheckpointSet) Checkpoints() []ComponentCheckpoint {
	cps := make([]ComponentCheckpoint, 0, len(s.ids))
	for _, id := range s.ids {
		cps = append(cps, s.items[id])
	}
	return cps
}

func (s CheckpointSet) CompletedCount() int {
	var n int
	for _, cp := range s.items {
		if cp.Completed {
			n++
		}
	}
	return n
}

// OverallProgress is the percentage of completed components.
func (s CheckpointSet) OverallProgress() float64 {
	if len(s.ids) == 0 {
		return 0
	}
	return 100 * float64(s.CompletedCount()) / float64(len(s.ids))
}

// With returns a new set with cp merged in. Untracked components are ignored.
func (s CheckpointSet) With(cp ComponentCheckpoint) CheckpointSet {
	curr, ok := s.items[cp.ComponentID]
	if !ok {
		return s
	}
	c := s.clone()
	c.items[cp.ComponentID] = curr.merge(cp)
	return c
}

// Merge folds every checkpoint of o tracked by s into a new set.
func (s CheckpointSet) Merge(o CheckpointSet) CheckpointSet {
	c := s.clone()
	for id, cp := range o.items {
		if curr, ok := c.items[id]; ok {
			c.items[id] = curr.merge(cp)
		}
	}
	return c
}

// Stamp returns a new set where every started checkpoint without a timestamp
// is stamped with now.
func (s CheckpointSet) Stamp(now time.Time) CheckpointSet {
	c := s.clone()
	for id, cp := range c.items {
		if cp.started() && cp.Timestamp.IsZero() {
			cp.Timestamp = now.UTC()
			c.items[id] = cp
		}
	}
	return c
}

// Diff lists the checkpoints of s that differ from their counterpart in o.
func (s CheckpointSet) Diff(o CheckpointSet) []ComponentCheckpoint {
	var changed []ComponentCheckpoint
	for _, id := range s.ids {
		cp, prev := s.items[id], o.items[id]
		if cp.Completed != prev.Completed || cp.Progress != prev.Progress {
			changed = append(changed, cp)
		}
	}
	return changed
}

// MarshalJSON encodes the set as an object keyed by component id.
func (s CheckpointSet) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.items)
}

// Completed lists the completed component ids, sorted.
func (s CheckpointSet) Completed() []string {
	var ids []string
	for id, cp := range s.items {
		if cp.Completed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
