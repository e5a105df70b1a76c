package assembly

import (
	"time"

	"github.com/trezcool/masomo-lab/core/geom"
)

// DragItem is a draggable handle spawned by a Tray. Positions are item centers, in screen pixels.
type DragItem struct {
	Key     string
	Correct bool
	Asset   string
	Home    geom.Point // resting position in the dock
	Pos     geom.Point
	Size    geom.Size

	dragging bool
	released bool
}

func (it *DragItem) Rect() geom.Rect {
	return geom.RectCentered(it.Pos, it.Size)
}

func (it *DragItem) Dragging() bool {
	return it.dragging
}

func (it *DragItem) Released() bool {
	return it.released
}

// Tray docks the candidate parts along one viewport edge and slides them in.
// It holds no gameplay rules.
type Tray struct {
	edge     Edge
	viewport geom.Size
	itemSize geom.Size
	items    []*DragItem
	panel    geom.Rect // resting panel

	slide   time.Duration
	elapsed time.Duration

	destroyed bool
}

const trayMargin = 16

func NewTray(candidates []Candidate, edge Edge, viewport, itemSize geom.Size, slide time.Duration) *Tray {
	t := &Tray{
		edge:  edge,
		slide: slide,
		items: make([]*DragItem, 0, len(candidates)),
	}
	for _, c := range candidates {
		t.items = append(t.items, &DragItem{Key: c.Key, Correct: c.Correct, Asset: c.Asset})
	}
	t.Relayout(viewport, itemSize)
	return t
}

func (t *Tray) Edge() Edge {
	return t.edge
}

// Items lists the handles still owned by the tray.
func (t *Tray) Items() []*DragItem {
	items := make([]*DragItem, 0, len(t.items))
	for _, it := range t.items {
		if !it.released {
			items = append(items, it)
		}
	}
	return items
}

// Anchor is the dock's resting center.
func (t *Tray) Anchor() geom.Point {
	return t.panel.Center()
}

// Panel is the dock rectangle, as currently drawn.
func (t *Tray) Panel() geom.Rect {
	off := t.offset()
	return geom.Rect{X: t.panel.X + off.X, Y: t.panel.Y + off.Y, W: t.panel.W, H: t.panel.H}
}

func (t *Tray) Animating() bool {
	return !t.destroyed && t.elapsed < t.slide
}

func (t *Tray) Destroyed() bool {
	return t.destroyed
}

// offset is the slide-in displacement: fully off-screen at start, zero at rest.
func (t *Tray) offset() geom.Point {
	if t.slide <= 0 || t.elapsed >= t.slide {
		return geom.Point{}
	}
	var away geom.Point
	switch t.edge {
	case EdgeLeft:
		away.X = -t.panel.W
	case EdgeRight:
		away.X = t.panel.W
	case EdgeTop:
		away.Y = -t.panel.H
	case EdgeBottom:
		away.Y = t.panel.H
	}
	k := geom.EaseOutCubic(float64(t.elapsed) / float64(t.slide))
	return away.Scale(1 - k)
}

// Tick advances the slide-in animation.
func (t *Tray) Tick(dt time.Duration) {
	if !t.Animating() {
		return
	}
	t.elapsed += dt
	t.place()
}

// place moves every idle handle to its home, plus the slide offset.
func (t *Tray) place() {
	off := t.offset()
	for _, it := range t.items {
		if !it.dragging && !it.released {
			it.Pos = it.Home.Add(off)
		}
	}
}

// Relayout recomputes the dock for the viewport. Handles being dragged keep their position.
func (t *Tray) Relayout(viewport, itemSize geom.Size) {
	if t.destroyed {
		return
	}
	t.viewport, t.itemSize = viewport, itemSize

	switch t.edge {
	case EdgeLeft, EdgeRight:
		thick := itemSize.W + 2*trayMargin
		x := 0.0
		if t.edge == EdgeRight {
			x = viewport.W - thick
		}
		t.panel = geom.Rect{X: x, Y: 0, W: thick, H: viewport.H}
	default:
		thick := itemSize.H + 2*trayMargin
		y := 0.0
		if t.edge == EdgeBottom {
			y = viewport.H - thick
		}
		t.panel = geom.Rect{X: 0, Y: y, W: viewport.W, H: thick}
	}

	// evenly spaced along the dock
	anchor := t.panel.Center()
	n := float64(len(t.items) + 1)
	for i, it := range t.items {
		it.Size = itemSize
		step := float64(i+1) / n
		if t.edge.Vertical() {
			it.Home = geom.Pt(anchor.X, viewport.H*step)
		} else {
			it.Home = geom.Pt(viewport.W*step, anchor.Y)
		}
	}
	t.place()
}

// ItemAt returns the topmost handle under p.
func (t *Tray) ItemAt(p geom.Point) *DragItem {
	if t == nil || t.destroyed {
		return nil
	}
	for i := len(t.items) - 1; i >= 0; i-- {
		if it := t.items[i]; !it.released && it.Rect().Contains(p) {
			return it
		}
	}
	return nil
}

// Grab marks it as being dragged.
func (t *Tray) Grab(it *DragItem) {
	if it != nil && !it.released && !t.destroyed {
		it.dragging = true
	}
}

// ResetComponentPosition sends it back to the dock on the axis orthogonal to
// the dock edge only: x for left/right docks, y for top/bottom docks. The other
// axis stays where the drag left it.
func (t *Tray) ResetComponentPosition(it *DragItem) {
	if it == nil || it.released {
		return
	}
	it.dragging = false
	off := t.offset()
	if t.edge.Vertical() {
		it.Pos.X = it.Home.X + off.X
	} else {
		it.Pos.Y = it.Home.Y + off.Y
	}
}

// Release hands it over to the caller; the tray forgets it.
func (t *Tray) Release(it *DragItem) {
	if it == nil {
		return
	}
	it.dragging = false
	it.released = true
}

// Destroy releases every handle and the panel. Safe to call more than once.
func (t *Tray) Destroy() {
	if t.destroyed {
		return
	}
	for _, it := range t.items {
		t.Release(it)
	}
	t.items = nil
	t.panel = geom.Rect{}
	t.destroyed = true
}
