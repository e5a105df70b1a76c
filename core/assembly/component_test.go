package assembly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lab/core/assembly/fsm"
	"github.com/trezcool/masomo-lab/core/geom"
)

func TestComponentScene_clickOutsideSlot(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")

	s.PointerDown(geom.Pt(100, 100))
	assert.Equal(t, fsm.Idle, scene.State())

	// slot edges count as inside
	s.PointerDown(geom.Pt(530, 250))
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())

	// clicking the open slot does not skip the drop
	s.PointerDown(geom.Pt(640, 360))
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())
}

func TestComponentScene_hover(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")

	s.PointerMove(geom.Pt(640, 360))
	slot, _ := s.Frame().Sprite("slot")
	assert.True(t, slot.Glow)

	s.PointerMove(geom.Pt(10, 10))
	slot, _ = s.Frame().Sprite("slot")
	assert.False(t, slot.Glow)

	s.PointerMove(geom.Pt(640, 360))
	s.PointerDown(geom.Pt(640, 360))
	slot, _ = s.Frame().Sprite("slot")
	assert.False(t, slot.Glow, "highlight only while idle")
	assert.Equal(t, "cpu/socket-open", slot.Asset)
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())
}

func TestComponentScene_drop(t *testing.T) {
	tests := []struct {
		name      string
		item      string
		to        geom.Point
		wantState fsm.State
		wantPos   geom.Point // rejected items only
	}{
		{name: "correct in zone", item: "cpu", to: geom.Pt(640, 360), wantState: fsm.Placed},
		{name: "correct overlapping the zone edge", item: "cpu", to: geom.Pt(793, 360), wantState: fsm.Placed},
		{name: "correct just outside", item: "cpu", to: geom.Pt(796, 300), wantState: fsm.AwaitingPlacement, wantPos: geom.Pt(1209, 300)},
		{name: "correct far away", item: "cpu", to: geom.Pt(100, 100), wantState: fsm.AwaitingPlacement, wantPos: geom.Pt(1209, 100)},
		{name: "decoy in zone", item: "gpu", to: geom.Pt(640, 360), wantState: fsm.AwaitingPlacement, wantPos: geom.Pt(1209, 360)},
		{name: "decoy outside", item: "ssd", to: geom.Pt(300, 600), wantState: fsm.AwaitingPlacement, wantPos: geom.Pt(1209, 600)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, "")
			scene := s.open(t, "cpu")
			s.PointerDown(scene.Slot().Center())
			s.Tick(400 * time.Millisecond)

			var item *DragItem
			for _, it := range scene.Tray().Items() {
				if it.Key == tt.item {
					item = it
				}
			}
			require.NotNil(t, item)
			s.drag(item.Pos, tt.to)

			assert.Equal(t, tt.wantState, scene.State())
			if tt.wantState == fsm.Placed {
				assert.True(t, item.Released())
				assert.Nil(t, scene.Tray())
				assert.False(t, scene.Tinted())
				return
			}
			assert.Equal(t, tt.wantPos, item.Pos)
			assert.False(t, item.Dragging())
			assert.True(t, scene.Tinted())
			assert.Len(t, scene.Tray().Items(), 3)
			assert.Empty(t, s.done)

			slot, _ := s.Frame().Sprite("slot")
			assert.True(t, slot.Tint)
		})
	}
}

func TestComponentScene_dragFollowsPointer(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")
	s.PointerDown(scene.Slot().Center())
	s.Tick(400 * time.Millisecond)

	// grab off-center: the item keeps the grab offset
	s.PointerDown(geom.Pt(1219, 370))
	s.PointerMove(geom.Pt(900, 500))
	it := scene.Tray().ItemAt(geom.Pt(890, 490))
	require.NotNil(t, it)
	assert.Equal(t, "cpu", it.Key)
	assert.Equal(t, geom.Pt(890, 490), it.Pos)
	assert.True(t, it.Dragging())

	sp, ok := s.Frame().Sprite("item:cpu")
	require.True(t, ok)
	assert.Equal(t, it.Rect(), sp.Rect)
}

func TestComponentScene_secondGrabIgnoredWhileDragging(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")
	s.PointerDown(scene.Slot().Center())
	s.Tick(400 * time.Millisecond)

	var decoy, cpu *DragItem
	for _, it := range scene.Tray().Items() {
		switch {
		case it.Key == "cpu":
			cpu = it
		case decoy == nil:
			decoy = it
		}
	}
	require.NotNil(t, decoy)
	require.NotNil(t, cpu)
	decoyHome, cpuHome := decoy.Pos, cpu.Pos

	s.PointerDown(decoyHome)
	s.PointerMove(geom.Pt(300, 300))
	s.PointerDown(cpuHome)
	assert.False(t, cpu.Dragging())
	assert.True(t, decoy.Dragging())

	s.PointerUp(geom.Pt(300, 300))
	s.Tick(time.Second)

	assert.False(t, decoy.Dragging())
	assert.Equal(t, decoyHome.X, decoy.Pos.X, "rejected item is back on the dock axis")
	assert.Equal(t, cpuHome, cpu.Pos)
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())
}

func TestComponentScene_tintClears(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")
	s.PointerDown(scene.Slot().Center())
	s.Tick(400 * time.Millisecond)

	s.drag(geom.Pt(1209, 180), geom.Pt(640, 360))
	require.True(t, scene.Tinted())

	s.Tick(300 * time.Millisecond)
	s.drag(geom.Pt(1209, 540), geom.Pt(640, 360))
	require.True(t, scene.Tinted())

	s.Tick(300 * time.Millisecond)
	assert.True(t, scene.Tinted(), "a second rejection restarts the tint")

	s.Tick(199 * time.Millisecond)
	assert.True(t, scene.Tinted())
	s.Tick(time.Millisecond)
	assert.False(t, scene.Tinted())
}

func TestComponentScene_tintAfterDispose(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")
	s.PointerDown(scene.Slot().Center())
	s.Tick(400 * time.Millisecond)
	s.drag(geom.Pt(1209, 180), geom.Pt(640, 360))
	require.True(t, scene.Tinted())

	require.NoError(t, s.Goto(HubSceneID, SceneParams{}))
	assert.NotPanics(t, func() { s.Tick(time.Second) })
	assert.True(t, scene.Disposed())
	assert.True(t, scene.Tinted(), "timers of a disposed scene do nothing")
	assert.Equal(t, HubSceneID, s.Scene().ID())
}

func TestComponentScene_lever(t *testing.T) {
	tests := []struct {
		name       string
		moveTo     float64 // pointer y
		wantLocked bool
		wantLever  float64 // after release
	}{
		{name: "one short of the end", moveTo: 419, wantLocked: false, wantLever: 0},
		{name: "exactly the end", moveTo: 420, wantLocked: true, wantLever: 60},
		{name: "past the end", moveTo: 600, wantLocked: true, wantLever: 60},
		{name: "wrong way", moveTo: 200, wantLocked: false, wantLever: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, "")
			scene := s.open(t, "ram")
			s.seat(t, scene)

			lever, ok := scene.Lever()
			require.True(t, ok)
			require.Equal(t, geom.Pt(640, 360), lever.Center())
			_, drawn := s.Frame().Sprite("lever")
			assert.True(t, drawn)

			s.PointerDown(geom.Pt(640, 360))
			s.PointerMove(geom.Pt(640, tt.moveTo))
			s.PointerMove(geom.Pt(640, tt.moveTo))
			s.PointerUp(geom.Pt(640, tt.moveTo))

			assert.Equal(t, tt.wantLever, scene.LeverValue())
			if tt.wantLocked {
				assert.Equal(t, fsm.Locked, scene.State())
				assert.Equal(t, []completion{{"ram", 100, true}}, s.done)
				return
			}
			assert.Equal(t, fsm.Placed, scene.State())
			assert.Empty(t, s.done)
		})
	}
}

func TestComponentScene_leverNeedsGrab(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "ram")
	s.seat(t, scene)

	// pressing beside the handle does nothing
	s.PointerDown(geom.Pt(800, 360))
	s.PointerMove(geom.Pt(800, 460))
	s.PointerUp(geom.Pt(800, 460))
	assert.Equal(t, fsm.Placed, scene.State())
	assert.Equal(t, 0.0, scene.LeverValue())

	// a click is not a clamp
	s.PointerDown(geom.Pt(640, 360))
	s.PointerUp(geom.Pt(640, 360))
	assert.Equal(t, fsm.Placed, scene.State())
}

func TestComponentScene_resumedLeverAtEnd(t *testing.T) {
	s := newSession(t, `{"ram": {"completed": true}}`)
	scene := s.open(t, "ram")
	assert.Equal(t, 60.0, scene.LeverValue())
	lever, _ := scene.Lever()
	assert.Equal(t, geom.Pt(640, 420), lever.Center())

	slot, _ := s.Frame().Sprite("slot")
	assert.Equal(t, "ram/stick-latched", slot.Asset)
	assert.True(t, slot.Done)
}

func TestComponentScene_cmos(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cmos")
	s.PointerDown(scene.Slot().Center())
	require.NotNil(t, scene.Tray())
	assert.Equal(t, EdgeBottom, scene.Tray().Edge())
	assert.Zero(t, DefaultDescriptors()[1].Decoys())

	s.Tick(400 * time.Millisecond)
	it := scene.Tray().Items()[0]
	assert.Equal(t, geom.Pt(640, 656), it.Pos)

	// rejected drops on a bottom dock reset y only
	s.drag(it.Pos, geom.Pt(100, 200))
	assert.Equal(t, geom.Pt(100, 656), it.Pos)

	s.drag(it.Pos, scene.Slot().Center())
	assert.Equal(t, fsm.Placed, scene.State())
	s.PointerDown(scene.Slot().Center())
	assert.Equal(t, fsm.Locked, scene.State())
	assert.Equal(t, []completion{{"cmos", 100, true}}, s.done)
}

func TestDefaultDescriptors(t *testing.T) {
	tests := map[string]struct {
		decoys int
		assets int
	}{
		"cpu":  {decoys: 2, assets: 7},
		"cmos": {decoys: 0, assets: 5},
		"ram":  {decoys: 0, assets: 6},
	}
	for _, d := range DefaultDescriptors() {
		t.Run(d.ComponentID, func(t *testing.T) {
			tt := tests[d.ComponentID]
			assert.Equal(t, tt.decoys, d.Decoys())
			assert.NoError(t, d.Transitions.Validate())
			assert.Len(t, d.AssetKeys(), tt.assets)
		})
	}
}
