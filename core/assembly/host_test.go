package assembly

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lab/core/assembly/fsm"
	"github.com/trezcool/masomo-lab/core/geom"
	"github.com/trezcool/masomo-lab/tests"
)

type completion struct {
	componentID string
	progress    int
	completed   bool
}

type session struct {
	*Host
	surface *Surface
	logger  *testutil.Logger
	done    []completion
}

func newSession(t *testing.T, snapshot string, mods ...func(*Options)) *session {
	t.Helper()
	s := &session{surface: NewSurface(), logger: &testutil.Logger{}}
	opts := Options{
		Size:   viewport720,
		Logger: s.logger,
		OnComplete: func(id string, progress int, completed bool) {
			s.done = append(s.done, completion{id, progress, completed})
		},
	}
	if snapshot != "" {
		opts.Snapshot = []byte(snapshot)
	}
	for _, mod := range mods {
		mod(&opts)
	}
	h, err := NewHost(s.surface, opts)
	require.NoError(t, err)
	s.Host = h
	return s
}

// open clicks the hub hotspot and returns the component scene it opened.
func (s *session) open(t *testing.T, id string) *ComponentScene {
	t.Helper()
	hub, ok := s.Scene().(*HubScene)
	require.True(t, ok, "not on the hub: %s", s.Scene().ID())
	r, ok := hub.HotspotRect(id)
	require.True(t, ok, "no hotspot %q", id)
	s.PointerDown(r.Center())
	scene, ok := s.Scene().(*ComponentScene)
	require.True(t, ok, "hotspot %q did not open a component scene", id)
	return scene
}

func (s *session) drag(from, to geom.Point) {
	s.PointerDown(from)
	s.PointerMove(to)
	s.PointerUp(to)
}

// seat opens the slot and drops the correct candidate on it, leaving the scene Placed.
func (s *session) seat(t *testing.T, scene *ComponentScene) {
	t.Helper()
	s.PointerDown(scene.Slot().Center())
	require.Equal(t, fsm.AwaitingPlacement, scene.State())
	s.Tick(DefaultTiming.TraySlide)

	var correct *DragItem
	for _, it := range scene.Tray().Items() {
		if it.Correct {
			correct = it
		}
	}
	require.NotNil(t, correct)
	s.drag(correct.Pos, scene.Slot().Center())
	require.Equal(t, fsm.Placed, scene.State())
}

func TestHost_cpuFlow(t *testing.T) {
	s := newSession(t, "")
	assert.Equal(t, HubSceneID, s.Frame().Scene)
	assert.Equal(t, 0.0, s.OverallProgress())

	scene := s.open(t, "cpu")
	assert.Equal(t, "cpu", scene.ID())
	assert.Equal(t, "CPU", s.Frame().Title)
	assert.Equal(t, fsm.Idle, scene.State())
	assert.Nil(t, scene.Tray())

	s.PointerDown(geom.Pt(640, 360))
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())
	require.NotNil(t, scene.Tray())
	assert.Equal(t, EdgeRight, scene.Tray().Edge())
	assert.Len(t, scene.Tray().Items(), 3)

	s.Tick(400 * time.Millisecond)
	s.drag(geom.Pt(1209, 360), geom.Pt(640, 360))
	assert.Equal(t, fsm.Placed, scene.State())
	assert.Nil(t, scene.Tray(), "tray leaves with the drag-drop step")

	s.PointerDown(geom.Pt(640, 360))
	assert.Equal(t, fsm.Locked, scene.State())
	assert.Equal(t, []completion{{"cpu", 100, true}}, s.done)
	assert.InDelta(t, 33.33, s.OverallProgress(), .01)
	assert.InDelta(t, 33.33, s.Frame().OverallProgress, .01)
	assert.False(t, s.Frame().Interactive)

	s.PointerDown(geom.Pt(640, 360))
	assert.Len(t, s.done, 1, "completion is reported once")

	s.Tick(1999 * time.Millisecond)
	assert.Same(t, scene, s.Scene())
	s.Tick(time.Millisecond)
	assert.Equal(t, HubSceneID, s.Scene().ID())
	assert.True(t, scene.Disposed())

	hotspot, ok := s.Frame().Sprite("hotspot:cpu")
	require.True(t, ok)
	assert.True(t, hotspot.Done)

	reopened := s.open(t, "cpu")
	assert.True(t, reopened.Resumed())
	assert.Equal(t, fsm.Locked, reopened.State())
}

func TestHost_resumeCompleted(t *testing.T) {
	s := newSession(t, `{
		"cpu": {"component_id": "cpu", "completed": true, "progress": 100},
		"cmos": {"component_id": "cmos", "completed": true, "progress": 100},
		"ram": {"component_id": "ram", "completed": true, "progress": 100}
	}`)
	assert.Equal(t, 100.0, s.OverallProgress())
	for _, id := range []string{"cpu", "cmos", "ram"} {
		sp, ok := s.Frame().Sprite("hotspot:" + id)
		require.True(t, ok, id)
		assert.True(t, sp.Done, id)
	}

	for _, id := range []string{"cpu", "cmos", "ram"} {
		t.Run(id, func(t *testing.T) {
			scene := s.open(t, id)
			assert.True(t, scene.Resumed())
			assert.Equal(t, fsm.Locked, scene.State())
			assert.Nil(t, scene.Tray())
			f := s.Frame()
			assert.False(t, f.Interactive)
			assert.Equal(t, "locked", f.State)

			s.PointerDown(scene.Slot().Center())
			s.PointerMove(scene.Slot().Center())
			assert.Equal(t, fsm.Locked, scene.State())

			s.Tick(2999 * time.Millisecond)
			assert.Same(t, scene, s.Scene())
			s.Tick(time.Millisecond)
			assert.Equal(t, HubSceneID, s.Scene().ID())
		})
	}
	assert.Empty(t, s.done, "replayed parts are not reported again")
}

func TestHost_partialSnapshot(t *testing.T) {
	s := newSession(t, `{"ram": {"component_id": "ram", "completed": true, "progress": 100}, "gpu": {"completed": true}}`)
	assert.InDelta(t, 33.33, s.OverallProgress(), .01)
	assert.True(t, s.Checkpoints().IsCompleted("ram"))
	assert.False(t, s.Checkpoints().Tracks("gpu"))

	scene := s.open(t, "cpu")
	assert.False(t, scene.Resumed())
	assert.Equal(t, fsm.Idle, scene.State())
}

func TestHost_malformedSnapshot(t *testing.T) {
	s := newSession(t, `{not json`)
	assert.Equal(t, 0.0, s.OverallProgress())
	assert.Equal(t, 0, s.Checkpoints().CompletedCount())
	assert.NotEmpty(t, s.logger.Entries("warn"))

	scene := s.open(t, "cpu")
	assert.Equal(t, fsm.Idle, scene.State())
}

func TestHost_callbackTolerance(t *testing.T) {
	tests := []struct {
		name    string
		cb      CompletionFunc
		level   string
		message string
	}{
		{name: "missing callback", cb: nil, level: "warn", message: "no completion callback"},
		{name: "panicking callback", cb: func(string, int, bool) { panic("boom") }, level: "error", message: "panicked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, "", func(o *Options) { o.OnComplete = tt.cb })
			scene := s.open(t, "cmos")
			s.seat(t, scene)

			assert.NotPanics(t, func() { s.PointerDown(scene.Slot().Center()) })
			assert.Equal(t, fsm.Locked, scene.State())
			assert.True(t, s.logger.Contains(tt.level, tt.message), s.logger.String())
			assert.InDelta(t, 33.33, s.OverallProgress(), .01)

			s.Tick(2 * time.Second)
			assert.Equal(t, HubSceneID, s.Scene().ID())
		})
	}
}

func TestHost_teardownCancelsTimers(t *testing.T) {
	s := newSession(t, "")
	cpu := s.open(t, "cpu")
	s.seat(t, cpu)
	s.PointerDown(cpu.Slot().Center())
	require.Equal(t, fsm.Locked, cpu.State())

	require.NoError(t, s.Goto("cmos", SceneParams{}))
	assert.True(t, cpu.Disposed())

	s.Tick(5 * time.Second)
	assert.Equal(t, "cmos", s.Scene().ID(), "the disposed scene's return timer is a no-op")
	assert.Equal(t, "CMOS Battery", s.Frame().Title)
}

func TestHost_Goto(t *testing.T) {
	s := newSession(t, "")
	assert.Error(t, s.Goto("gpu", SceneParams{}))
	assert.Equal(t, HubSceneID, s.Scene().ID())

	require.NoError(t, s.Goto("ram", SceneParams{}))
	assert.Equal(t, "RAM", s.Frame().Title)

	s.Destroy()
	assert.Equal(t, ErrHostDestroyed, s.Goto(HubSceneID, SceneParams{}))
}

func TestNewHost_replacesPreviousHost(t *testing.T) {
	sf := NewSurface()
	var first, second int
	h1, err := NewHost(sf, Options{Size: viewport720, OnComplete: func(string, int, bool) { first++ }})
	require.NoError(t, err)
	h2, err := NewHost(sf, Options{Size: viewport720, OnComplete: func(string, int, bool) { second++ }})
	require.NoError(t, err)

	assert.True(t, h1.Destroyed())
	assert.True(t, h1.Scene().Disposed())
	assert.False(t, h2.Destroyed())
	assert.Same(t, h2, sf.Host())

	hub := h2.Scene().(*HubScene)
	r, _ := hub.HotspotRect("cmos")
	sf.PointerDown(r.Center())
	assert.Equal(t, "cmos", h2.Scene().ID())
	assert.Equal(t, HubSceneID, h1.Scene().ID())

	h1.PointerDown(r.Center())
	assert.Equal(t, HubSceneID, h1.Scene().ID(), "a destroyed host ignores input")

	h2.Destroy()
	h2.Destroy()
	assert.Nil(t, sf.Host())
	assert.NotPanics(t, func() { sf.Tick(time.Second) })
	assert.Zero(t, first+second)
}

func TestHost_Resize(t *testing.T) {
	s := newSession(t, "")
	scene := s.open(t, "cpu")
	s.PointerDown(scene.Slot().Center())
	s.Tick(400 * time.Millisecond)

	before := s.Frame()
	s.Resize(viewport720)
	s.Resize(viewport720)
	assert.Equal(t, before, s.Frame())

	s.Resize(geom.Size{})
	assert.Equal(t, viewport720, s.Viewport(), "empty sizes are ignored")

	s.Resize(geom.Size{W: 640, H: 360})
	assert.Equal(t, fsm.AwaitingPlacement, scene.State())
	assert.Equal(t, geom.RectCentered(geom.Pt(320, 180), geom.Size{W: 110, H: 110}), scene.Slot())
	for _, it := range scene.Tray().Items() {
		assert.Equal(t, geom.Size{W: 55, H: 55}, it.Size, it.Key)
		assert.Equal(t, it.Home, it.Pos, it.Key)
	}

	// letterboxed: a wide viewport centers the design area
	s.Resize(geom.Size{W: 1920, H: 720})
	assert.Equal(t, geom.Pt(960, 360), scene.Slot().Center())
	assert.Equal(t, 220.0, scene.Slot().W)
}

func TestHost_RequiredAssets(t *testing.T) {
	s := newSession(t, "")
	assets := s.RequiredAssets()
	assert.True(t, sort.StringsAreSorted(assets))
	for _, want := range []string{"hub/motherboard", "hub/highlight", "tray/panel", "cpu/chip", "decoy/gpu", "cmos/battery", "ram/latch", "ram/stick-latched"} {
		assert.Contains(t, assets, want)
	}
	seen := map[string]bool{}
	for _, a := range assets {
		assert.False(t, seen[a], "duplicate %q", a)
		seen[a] = true
	}
}

func TestNewHost_validation(t *testing.T) {
	broken := DefaultDescriptors()
	delete(broken[0].Assets, fsm.Placed)

	twoCorrect := DefaultDescriptors()
	twoCorrect[0].Candidates[0].Correct = true

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "defaults", opts: Options{Size: viewport720}},
		{name: "missing state asset", opts: Options{Size: viewport720, Descriptors: broken}, wantErr: true},
		{name: "two correct candidates", opts: Options{Size: viewport720, Descriptors: twoCorrect}, wantErr: true},
		{
			name:    "duplicate descriptor",
			opts:    Options{Size: viewport720, Descriptors: append(DefaultDescriptors(), DefaultDescriptors()[0])},
			wantErr: true,
		},
		{
			name:    "hotspot outside the board",
			opts:    Options{Size: viewport720, Hotspots: []Hotspot{{ID: "cpu", Name: "CPU", Rect: [4]float64{.9, .9, .2, .2}, Target: "cpu"}}},
			wantErr: true,
		},
		{
			name:    "hotspot to unknown scene",
			opts:    Options{Size: viewport720, Hotspots: []Hotspot{{ID: "gpu", Name: "GPU", Rect: [4]float64{.1, .1, .2, .2}, Target: "gpu"}}},
			wantErr: true,
		},
		{
			name:    "bad hotspot id",
			opts:    Options{Size: viewport720, Hotspots: []Hotspot{{ID: "CPU!", Name: "CPU", Rect: [4]float64{.1, .1, .2, .2}, Target: "cpu"}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sf := NewSurface()
			_, err := NewHost(sf, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewHost() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.Nil(t, sf.Host(), "a failed host is not attached")
			}
		})
	}

	_, err := NewHost(nil, Options{Size: viewport720})
	assert.Error(t, err)
}
