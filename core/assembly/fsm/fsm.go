// Package fsm is the assembly state machine: states, triggers, the transition
// table and the guards deciding whether a gesture advances a component.
// It knows nothing about rendering or input devices.
package fsm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core/geom"
)

type State int

const (
	Idle State = iota
	AwaitingPlacement
	Placed
	Locked
)

var stateNames = [...]string{"idle", "awaiting_placement", "placed", "locked"}

func (s State) String() string {
	if s < Idle || s > Locked {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == Locked
}

func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return Idle, errors.Errorf("unknown state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type TriggerType string

const (
	Click     TriggerType = "click"
	DragDrop  TriggerType = "drag-drop"
	DragClamp TriggerType = "drag-clamp"
)

type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Params configures a trigger. Only the fields of the trigger's type are read.
type Params struct {
	// drag-drop: drop zone half extent, as a fraction of the slot size.
	ZoneHalfExtent float64

	// drag-clamp: the lever moves along Axis between Start and End, in design pixels from the slot center.
	Axis  Axis
	Start float64
	End   float64
}

// Clamp limits a lever value to the trigger's bounds.
func (p Params) Clamp(v float64) float64 {
	return geom.Clamp(v, p.Start, p.End)
}

type Trigger struct {
	Type   TriggerType
	Params Params
}

// Event is a resolved gesture outcome, fed to Machine.Fire.
type Event struct {
	Type TriggerType

	// drag-drop
	InZone  bool
	Correct bool

	// drag-clamp: raw lever value, clamped by the guard.
	Value float64
}

// Accepts is the trigger's guard.
func (tr Trigger) Accepts(ev Event) bool {
	if ev.Type != tr.Type {
		return false
	}
	switch tr.Type {
	case Click:
		return true
	case DragDrop:
		return ev.InZone && ev.Correct
	case DragClamp:
		// exactly at the end bound, "close to" is not enough
		return tr.Params.Clamp(ev.Value) == tr.Params.End
	default:
		return false
	}
}

func (tr Trigger) validate() error {
	switch tr.Type {
	case Click:
	case DragDrop:
		if tr.Params.ZoneHalfExtent <= 0 || tr.Params.ZoneHalfExtent > 1 {
			return errors.Errorf("drag-drop zone half extent %v out of (0, 1]", tr.Params.ZoneHalfExtent)
		}
	case DragClamp:
		if tr.Params.Axis != AxisX && tr.Params.Axis != AxisY {
			return errors.Errorf("drag-clamp axis %q must be x or y", tr.Params.Axis)
		}
		if tr.Params.Start == tr.Params.End {
			return errors.New("drag-clamp start and end bounds are equal")
		}
	default:
		return errors.Errorf("unknown trigger type %q", tr.Type)
	}
	return nil
}

type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -(%s)-> %s", t.From, t.Trigger.Type, t.To)
}

type Table []Transition

// Validate checks the table walks the whole Idle → Locked lattice, one step per state.
func (tbl Table) Validate() error {
	seen := make(map[State]bool, len(tbl))
	for _, t := range tbl {
		if t.From.Terminal() {
			return errors.Errorf("transition %s leaves the terminal state", t)
		}
		if t.To != t.From+1 {
			return errors.Errorf("transition %s skips or reverses a step", t)
		}
		if seen[t.From] {
			return errors.Errorf("more than one transition from %s", t.From)
		}
		if err := t.Trigger.validate(); err != nil {
			return errors.Wrapf(err, "transition %s", t)
		}
		seen[t.From] = true
	}
	for s := Idle; s < Locked; s++ {
		if !seen[s] {
			return errors.Errorf("no transition from %s", s)
		}
	}
	return nil
}

// From returns the transition leaving s.
func (tbl Table) From(s State) (Transition, bool) {
	for _, t := range tbl {
		if t.From == s {
			return t, true
		}
	}
	return Transition{}, false
}

// Trigger returns the first trigger of the given type, with its params.
func (tbl Table) Trigger(typ TriggerType) (Trigger, bool) {
	for _, t := range tbl {
		if t.Trigger.Type == typ {
			return t.Trigger, true
		}
	}
	return Trigger{}, false
}

// Machine runs one component's table. Not safe for concurrent use: the
// simulator feeds it from a single event loop.
type Machine struct {
	table Table
	state State
}

func New(table Table, initial State) (*Machine, error) {
	if err := table.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating transition table")
	}
	return &Machine{table: table, state: initial}, nil
}

func (m *Machine) State() State {
	return m.state
}

// Expects returns the trigger able to move the machine on, if any.
func (m *Machine) Expects() (Trigger, bool) {
	t, ok := m.table.From(m.state)
	return t.Trigger, ok
}

// Fire advances the machine when ev satisfies the guard of the current state's transition.
// The same trigger type can serve several steps (click opens and locks); the current state decides.
func (m *Machine) Fire(ev Event) (Transition, bool) {
	t, ok := m.table.From(m.state)
	if !ok || !t.Trigger.Accepts(ev) {
		return Transition{}, false
	}
	m.state = t.To
	return t, true
}
