package assembly

import (
	"time"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/geom"
	"github.com/trezcool/masomo-lab/core/progress"
)

const HubSceneID = "hub"

// CompletionFunc receives a component's terminal outcome.
type CompletionFunc func(componentID string, progress int, completed bool)

// SceneParams is what the hub passes to the component scene it opens.
type SceneParams struct {
	PartID   string
	PartName string
}

// Scene is a screen of the simulator. Every method runs on the session's event loop.
type Scene interface {
	ID() string
	Layout(viewport geom.Size)
	PointerDown(p geom.Point)
	PointerMove(p geom.Point)
	PointerUp(p geom.Point)
	Tick(dt time.Duration)
	Frame() Frame
	Dispose()
	Disposed() bool
}

// sceneEnv is what the host injects into every scene.
type sceneEnv struct {
	clock       *Clock
	logger      core.Logger
	timing      Timing
	checkpoints progress.CheckpointSet
	onComplete  CompletionFunc
	navigate    func(sceneID string, params SceneParams)
}

// viewTransform maps design pixels onto the viewport, letterboxed.
type viewTransform struct {
	scale  float64
	origin geom.Point
}

func newViewTransform(viewport, design geom.Size) viewTransform {
	fit := design.Fit(viewport)
	if fit.Empty() {
		return viewTransform{scale: 1}
	}
	return viewTransform{
		scale:  fit.W / design.W,
		origin: geom.Pt((viewport.W-fit.W)/2, (viewport.H-fit.H)/2),
	}
}

func (vt viewTransform) point(p geom.Point) geom.Point {
	return vt.origin.Add(p.Scale(vt.scale))
}

func (vt viewTransform) size(s geom.Size) geom.Size {
	return geom.Size{W: s.W * vt.scale, H: s.H * vt.scale}
}
