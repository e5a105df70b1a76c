package assembly

import (
	"fmt"
	"time"

	"github.com/trezcool/masomo-lab/core/assembly/fsm"
	"github.com/trezcool/masomo-lab/core/geom"
)

const (
	progressDone = 100
	trayAsset    = "tray/panel"
)

// ComponentScene runs one descriptor's state machine against pointer gestures.
type ComponentScene struct {
	desc    Descriptor
	params  SceneParams
	env     sceneEnv
	machine *fsm.Machine

	// resumed scenes replay the locked view and take no input
	resumed bool

	viewport geom.Size
	vt       viewTransform
	slot     geom.Rect
	tray     *Tray

	drag     *DragItem
	dragGrab geom.Point

	lever     float64 // design pixels from the slot center, along the lever axis
	leverGrab float64
	levering  bool

	hover   bool
	tint    bool
	tintGen int

	completed bool
	disposed  bool
}

var _ Scene = (*ComponentScene)(nil)

func newComponentScene(desc Descriptor, params SceneParams, env sceneEnv, viewport geom.Size) (*ComponentScene, error) {
	s := &ComponentScene{desc: desc, params: params, env: env}

	initial := fsm.Idle
	if env.checkpoints.IsCompleted(desc.ComponentID) {
		initial = fsm.Locked
		s.resumed = true
	}
	m, err := fsm.New(desc.Transitions, initial)
	if err != nil {
		return nil, err
	}
	s.machine = m

	if lever, ok := desc.Transitions.Trigger(fsm.DragClamp); ok {
		s.lever = lever.Params.Start
		if s.resumed {
			s.lever = lever.Params.End
		}
	}
	s.Layout(viewport)

	if s.resumed {
		env.logger.Debug(fmt.Sprintf("%s already completed, replaying", desc.ComponentID))
		s.returnToHub(env.timing.ResumeReturn)
		return s, nil
	}
	s.syncTray()
	return s, nil
}

func (s *ComponentScene) ID() string {
	return s.desc.ComponentID
}

func (s *ComponentScene) State() fsm.State {
	return s.machine.State()
}

// Tray returns the live tray, if any.
func (s *ComponentScene) Tray() *Tray {
	if s.tray == nil || s.tray.Destroyed() {
		return nil
	}
	return s.tray
}

// Slot is the slot rectangle on screen.
func (s *ComponentScene) Slot() geom.Rect {
	return s.slot
}

// DropZone is the AABB a correct item must overlap, centered on the slot.
func (s *ComponentScene) DropZone() geom.Rect {
	tr, ok := s.desc.Transitions.Trigger(fsm.DragDrop)
	if !ok {
		return geom.Rect{}
	}
	k := 2 * tr.Params.ZoneHalfExtent
	return geom.RectCentered(s.slot.Center(), geom.Size{W: s.slot.W * k, H: s.slot.H * k})
}

// Lever is the lever handle on screen, when the descriptor has one.
func (s *ComponentScene) Lever() (geom.Rect, bool) {
	tr, ok := s.desc.Transitions.Trigger(fsm.DragClamp)
	if !ok {
		return geom.Rect{}, false
	}
	pos := s.slot.Center()
	if tr.Params.Axis == fsm.AxisX {
		pos.X += s.lever * s.vt.scale
	} else {
		pos.Y += s.lever * s.vt.scale
	}
	return geom.RectCentered(pos, s.vt.size(s.desc.LeverSize)), true
}

// LeverValue is the lever position in design pixels.
func (s *ComponentScene) LeverValue() float64 {
	return s.lever
}

func (s *ComponentScene) Tinted() bool {
	return s.tint
}

func (s *ComponentScene) Resumed() bool {
	return s.resumed
}

func (s *ComponentScene) interactive() bool {
	return !s.disposed && !s.resumed && !s.machine.State().Terminal()
}

func (s *ComponentScene) Layout(viewport geom.Size) {
	if s.disposed {
		return
	}
	s.viewport = viewport
	s.vt = newViewTransform(viewport, DesignSize)
	s.slot = geom.RectCentered(s.vt.point(s.desc.SlotCenter), s.vt.size(s.desc.SlotSize))
	if s.tray != nil {
		s.tray.Relayout(viewport, s.vt.size(s.desc.ItemSize))
	}
}

// syncTray spawns the tray while the machine waits for a drop, and drops it otherwise.
func (s *ComponentScene) syncTray() {
	tr, ok := s.machine.Expects()
	wantTray := ok && tr.Type == fsm.DragDrop
	switch {
	case wantTray && s.tray == nil:
		s.tray = NewTray(s.desc.Candidates, s.desc.Dock, s.viewport, s.vt.size(s.desc.ItemSize), s.env.timing.TraySlide)
	case !wantTray && s.tray != nil:
		s.tray.Destroy()
		s.drag = nil
	}
}

func (s *ComponentScene) PointerDown(p geom.Point) {
	if !s.interactive() {
		return
	}
	tr, _ := s.machine.Expects()
	switch tr.Type {
	case fsm.Click:
		if s.slot.Contains(p) {
			s.fire(fsm.Event{Type: fsm.Click})
		}
	case fsm.DragDrop:
		if s.drag != nil {
			return // one drag at a time
		}
		if it := s.Tray().ItemAt(p); it != nil {
			s.tray.Grab(it)
			s.drag = it
			s.dragGrab = p.Sub(it.Pos)
		}
	case fsm.DragClamp:
		if lever, ok := s.Lever(); ok && lever.Contains(p) {
			s.levering = true
			s.leverGrab = s.leverAxis(p, tr.Params.Axis) - s.lever
		}
	}
}

func (s *ComponentScene) PointerMove(p geom.Point) {
	if !s.interactive() {
		s.hover = false
		return
	}
	s.hover = s.machine.State() == fsm.Idle && s.slot.Contains(p)

	switch {
	case s.drag != nil:
		s.drag.Pos = p.Sub(s.dragGrab)
	case s.levering:
		tr, _ := s.machine.Expects()
		s.lever = tr.Params.Clamp(s.leverAxis(p, tr.Params.Axis) - s.leverGrab)
		s.fire(fsm.Event{Type: fsm.DragClamp, Value: s.lever})
	}
}

func (s *ComponentScene) PointerUp(p geom.Point) {
	if !s.interactive() {
		return
	}
	switch {
	case s.drag != nil:
		it := s.drag
		s.drag = nil
		it.Pos = p.Sub(s.dragGrab)
		s.drop(it)
	case s.levering:
		s.levering = false
		// short of the end: spring back
		if tr, ok := s.machine.Expects(); ok && tr.Type == fsm.DragClamp {
			s.lever = tr.Params.Start
		}
	}
}

// leverAxis projects p on the lever axis, in design pixels from the slot center.
func (s *ComponentScene) leverAxis(p geom.Point, axis fsm.Axis) float64 {
	d := p.Sub(s.slot.Center())
	if axis == fsm.AxisX {
		return d.X / s.vt.scale
	}
	return d.Y / s.vt.scale
}

func (s *ComponentScene) drop(it *DragItem) {
	inZone := it.Rect().Overlaps(s.DropZone())
	if _, ok := s.fire(fsm.Event{Type: fsm.DragDrop, InZone: inZone, Correct: it.Correct}); ok {
		s.tray.Release(it)
		return
	}

	// invalid drop: flash and send the item back to the dock
	s.env.logger.Debug(fmt.Sprintf("%s: rejected %q (in zone: %v)", s.desc.ComponentID, it.Key, inZone))
	s.tray.ResetComponentPosition(it)
	s.tint = true
	s.tintGen++
	gen := s.tintGen
	s.env.clock.After(s.env.timing.TintClear, func() {
		if s.disposed || gen != s.tintGen {
			return
		}
		s.tint = false
	})
}

func (s *ComponentScene) fire(ev fsm.Event) (fsm.Transition, bool) {
	t, ok := s.machine.Fire(ev)
	if !ok {
		return t, false
	}
	s.env.logger.Debug(fmt.Sprintf("%s: %s", s.desc.ComponentID, t))
	s.hover = false
	s.syncTray()
	if t.To.Terminal() {
		s.levering = false
		s.complete()
		s.returnToHub(s.env.timing.CompletionReturn)
	}
	return t, true
}

// complete reports the terminal outcome. It runs at most once per scene and
// never lets a failing callback escape.
func (s *ComponentScene) complete() {
	if s.completed {
		return
	}
	s.completed = true

	if s.env.onComplete == nil {
		s.env.logger.Warn(fmt.Sprintf("%s locked but no completion callback was supplied", s.desc.ComponentID))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.env.logger.Error(fmt.Sprintf("%s: completion callback panicked: %v", s.desc.ComponentID, r))
		}
	}()
	s.env.onComplete(s.desc.ComponentID, progressDone, true)
}

func (s *ComponentScene) returnToHub(after time.Duration) {
	s.env.clock.After(after, func() {
		if s.disposed || s.env.navigate == nil {
			return
		}
		s.env.navigate(HubSceneID, SceneParams{})
	})
}

func (s *ComponentScene) Tick(dt time.Duration) {
	if s.disposed {
		return
	}
	if tray := s.Tray(); tray != nil {
		tray.Tick(dt)
	}
}

func (s *ComponentScene) Frame() Frame {
	state := s.machine.State()
	f := Frame{
		Scene:       s.desc.ComponentID,
		Title:       s.desc.Name,
		State:       state.String(),
		Interactive: s.interactive(),
	}
	if s.params.PartName != "" {
		f.Title = s.params.PartName
	}
	f.Sprites = append(f.Sprites, Sprite{
		Key:   "slot",
		Asset: s.desc.Assets[state],
		Rect:  s.slot,
		Tint:  s.tint,
		Glow:  s.hover,
		Done:  state.Terminal(),
	})
	if lever, ok := s.Lever(); ok && state >= fsm.Placed {
		f.Sprites = append(f.Sprites, Sprite{Key: "lever", Asset: s.desc.LeverAsset, Rect: lever})
	}
	if tray := s.Tray(); tray != nil {
		f.Sprites = append(f.Sprites, Sprite{Key: "tray", Asset: trayAsset, Rect: tray.Panel()})
		for _, it := range tray.Items() {
			f.Sprites = append(f.Sprites, Sprite{Key: "item:" + it.Key, Asset: it.Asset, Rect: it.Rect()})
		}
	}
	return f
}

// Dispose tears the scene down. Pending timers become no-ops.
func (s *ComponentScene) Dispose() {
	if s.disposed {
		return
	}
	if s.tray != nil {
		s.tray.Destroy()
	}
	s.drag = nil
	s.levering = false
	s.disposed = true
}

func (s *ComponentScene) Disposed() bool {
	return s.disposed
}
