package assembly

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/geom"
	"github.com/trezcool/masomo-lab/core/progress"
)

var ErrHostDestroyed = errors.New("host destroyed")

// Options configures a Host. Only Size is required.
type Options struct {
	Size geom.Size
	// Snapshot is the saved CheckpointSet document. Missing or malformed data starts empty.
	Snapshot   []byte
	OnComplete CompletionFunc
	Logger     core.Logger
	Timing     Timing
	// Tracked lists the component ids counted in the progress. Defaults to progress.DefaultComponents.
	Tracked     []string
	Descriptors []Descriptor // defaults to DefaultDescriptors
	Hotspots    []Hotspot    // defaults to DefaultHotspots
	// Masks overrides hotspot masks, by hotspot id.
	Masks    map[string]Mask
	Validate *validator.Validate
}

// Surface is the input source of the embedding container. At most one Host
// is attached to it, so a pointer event never reaches two hosts.
type Surface struct {
	mu   sync.Mutex
	host *Host
}

func NewSurface() *Surface {
	return &Surface{}
}

// Host returns the attached host, if any.
func (sf *Surface) Host() *Host {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.host
}

func (sf *Surface) dispatch(fn func(h *Host)) {
	if h := sf.Host(); h != nil {
		fn(h)
	}
}

func (sf *Surface) Resize(size geom.Size) {
	sf.dispatch(func(h *Host) { h.Resize(size) })
}

func (sf *Surface) PointerDown(p geom.Point) {
	sf.dispatch(func(h *Host) { h.PointerDown(p) })
}

func (sf *Surface) PointerMove(p geom.Point) {
	sf.dispatch(func(h *Host) { h.PointerMove(p) })
}

func (sf *Surface) PointerUp(p geom.Point) {
	sf.dispatch(func(h *Host) { h.PointerUp(p) })
}

func (sf *Surface) Tick(dt time.Duration) {
	sf.dispatch(func(h *Host) { h.Tick(dt) })
}

type navigation struct {
	sceneID string
	params  SceneParams
}

// Host owns one simulator session: viewport, clock, checkpoints and the active scene.
// Its methods must be called from a single goroutine.
type Host struct {
	surface     *Surface
	logger      core.Logger
	timing      Timing
	onComplete  CompletionFunc
	descriptors map[string]Descriptor
	order       []string
	hotspots    []Hotspot

	clock       *Clock
	viewport    geom.Size
	checkpoints progress.CheckpointSet
	scene       Scene
	pending     *navigation

	destroyed bool
}

// NewHost tears down the host attached to surface, if any, then attaches a new one showing the hub.
func NewHost(surface *Surface, opts Options) (*Host, error) {
	if surface == nil {
		return nil, errors.New("nil surface")
	}
	logger := core.LoggerOrDiscard(opts.Logger)

	validate := opts.Validate
	if validate == nil {
		validate = validator.New()
		core.InitValidators(validate, core.NewTranslator())
	}

	descriptors := opts.Descriptors
	if descriptors == nil {
		descriptors = DefaultDescriptors()
	}
	h := &Host{
		logger:      logger,
		timing:      opts.Timing.withDefaults(),
		onComplete:  opts.OnComplete,
		descriptors: make(map[string]Descriptor, len(descriptors)),
		clock:       &Clock{},
		viewport:    opts.Size,
		checkpoints: progress.ParseSnapshot(opts.Snapshot, logger, opts.Tracked...),
	}
	for _, d := range descriptors {
		if err := d.Validate(validate); err != nil {
			return nil, err
		}
		if _, dup := h.descriptors[d.ComponentID]; dup {
			return nil, errors.Errorf("duplicate descriptor %q", d.ComponentID)
		}
		h.descriptors[d.ComponentID] = d
		h.order = append(h.order, d.ComponentID)
	}

	hotspots := opts.Hotspots
	if hotspots == nil {
		hotspots = DefaultHotspots()
	}
	h.hotspots = make([]Hotspot, 0, len(hotspots))
	for _, hs := range hotspots {
		if err := hs.Validate(validate); err != nil {
			return nil, err
		}
		if _, ok := h.descriptors[hs.Target]; !ok {
			return nil, errors.Errorf("hotspot %q targets unknown scene %q", hs.ID, hs.Target)
		}
		if m, ok := opts.Masks[hs.ID]; ok {
			hs.Mask = m
		}
		h.hotspots = append(h.hotspots, hs)
	}

	surface.mu.Lock()
	defer surface.mu.Unlock()
	if prev := surface.host; prev != nil {
		prev.destroy()
	}
	h.surface = surface
	surface.host = h

	h.scene = newHubScene(h.hotspots, h.env(), h.viewport)
	return h, nil
}

func (h *Host) env() sceneEnv {
	return sceneEnv{
		clock:       h.clock,
		logger:      h.logger,
		timing:      h.timing,
		checkpoints: h.checkpoints,
		onComplete:  h.complete,
		navigate:    h.navigate,
	}
}

// complete records the outcome locally, so a reopened part replays its locked
// view, then forwards it to the embedder.
func (h *Host) complete(componentID string, progressPct int, completed bool) {
	h.checkpoints = h.checkpoints.With(progress.ComponentCheckpoint{
		ComponentID: componentID,
		Completed:   completed,
		Progress:    progressPct,
		Timestamp:   time.Now().UTC(),
	})
	if h.onComplete == nil {
		h.logger.Warn(fmt.Sprintf("%s completed but the host has no completion callback", componentID))
		return
	}
	h.onComplete(componentID, progressPct, completed)
}

// navigate queues a scene switch, applied once the current event is handled.
func (h *Host) navigate(sceneID string, params SceneParams) {
	h.pending = &navigation{sceneID: sceneID, params: params}
}

func (h *Host) flush() {
	for h.pending != nil && !h.destroyed {
		nav := *h.pending
		h.pending = nil
		if err := h.Goto(nav.sceneID, nav.params); err != nil {
			h.logger.Warn(fmt.Sprintf("navigating to %q: %v", nav.sceneID, err))
		}
	}
}

// Goto disposes the active scene and opens sceneID.
func (h *Host) Goto(sceneID string, params SceneParams) error {
	if h.destroyed {
		return ErrHostDestroyed
	}

	var next Scene
	if sceneID == HubSceneID {
		next = newHubScene(h.hotspots, h.env(), h.viewport)
	} else {
		desc, ok := h.descriptors[sceneID]
		if !ok {
			return errors.Errorf("unknown scene %q", sceneID)
		}
		if params.PartID == "" {
			params = SceneParams{PartID: desc.ComponentID, PartName: desc.Name}
		}
		scene, err := newComponentScene(desc, params, h.env(), h.viewport)
		if err != nil {
			return errors.Wrapf(err, "opening %q", sceneID)
		}
		next = scene
	}

	if h.scene != nil {
		h.scene.Dispose()
	}
	h.scene = next
	h.logger.Debug(fmt.Sprintf("scene: %s", sceneID))
	return nil
}

// Scene returns the active scene.
func (h *Host) Scene() Scene {
	return h.scene
}

func (h *Host) Checkpoints() progress.CheckpointSet {
	return h.checkpoints
}

func (h *Host) OverallProgress() float64 {
	return h.checkpoints.OverallProgress()
}

func (h *Host) Viewport() geom.Size {
	return h.viewport
}

func (h *Host) Clock() *Clock {
	return h.clock
}

// Resize re-lays the active scene out from the new size. Repeated calls with the same size are harmless.
func (h *Host) Resize(size geom.Size) {
	if h.destroyed || size.Empty() {
		return
	}
	h.viewport = size
	h.scene.Layout(size)
}

func (h *Host) PointerDown(p geom.Point) {
	if h.destroyed {
		return
	}
	h.scene.PointerDown(p)
	h.flush()
}

func (h *Host) PointerMove(p geom.Point) {
	if h.destroyed {
		return
	}
	h.scene.PointerMove(p)
	h.flush()
}

func (h *Host) PointerUp(p geom.Point) {
	if h.destroyed {
		return
	}
	h.scene.PointerUp(p)
	h.flush()
}

// Tick advances the session clock, firing due timers, and animates the active scene.
func (h *Host) Tick(dt time.Duration) {
	if h.destroyed {
		return
	}
	h.clock.Advance(dt)
	h.flush()
	h.scene.Tick(dt)
}

func (h *Host) Frame() Frame {
	if h.destroyed {
		return Frame{}
	}
	f := h.scene.Frame()
	f.OverallProgress = h.checkpoints.OverallProgress()
	return f
}

// RequiredAssets lists every asset key the session may draw, sorted.
func (h *Host) RequiredAssets() []string {
	set := map[string]bool{boardAsset: true, highlightAsset: true, trayAsset: true}
	for _, id := range h.order {
		for _, k := range h.descriptors[id].AssetKeys() {
			set[k] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Destroy detaches the host from its surface and disposes the active scene. Safe to call more than once.
func (h *Host) Destroy() {
	sf := h.surface
	if sf == nil {
		h.destroy()
		return
	}
	sf.mu.Lock()
	defer sf.mu.Unlock()
	h.destroy()
}

// destroy expects the surface lock to be held.
func (h *Host) destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if h.scene != nil {
		h.scene.Dispose()
	}
	h.clock.Drop()
	h.pending = nil
	if h.surface != nil && h.surface.host == h {
		h.surface.host = nil
	}
}

func (h *Host) Destroyed() bool {
	return h.destroyed
}
