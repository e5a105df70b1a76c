package assembly

import (
	"image"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core/geom"
)

const (
	boardAsset     = "hub/motherboard"
	highlightAsset = "hub/highlight"
)

var (
	// BoardSize is the motherboard picture's native size.
	BoardSize = geom.Size{W: 1000, H: 700}

	tooltipOffset = geom.Pt(14, 18)
)

// Mask decides which parts of a hotspot are clickable.
// u and v are hotspot-relative, in [0, 1].
type Mask interface {
	Opaque(u, v float64) bool
}

// FullMask makes the whole rectangle clickable.
type FullMask struct{}

func (FullMask) Opaque(float64, float64) bool { return true }

// AlphaMask reads opacity from an image's alpha channel, stretched over the hotspot.
type AlphaMask struct {
	img       image.Image
	threshold uint32
}

// NewAlphaMask makes pixels with alpha >= threshold (0-255) clickable.
func NewAlphaMask(img image.Image, threshold uint8) *AlphaMask {
	return &AlphaMask{img: img, threshold: uint32(threshold) * 0x101}
}

func (m *AlphaMask) Opaque(u, v float64) bool {
	b := m.img.Bounds()
	if b.Empty() {
		return false
	}
	x := b.Min.X + int(geom.Clamp(u, 0, 1)*float64(b.Dx()-1)+.5)
	y := b.Min.Y + int(geom.Clamp(v, 0, 1)*float64(b.Dy()-1)+.5)
	_, _, _, a := m.img.At(x, y).RGBA()
	return a >= m.threshold && a > 0
}

// Hotspot is a clickable part of the board, positioned in board fractions.
type Hotspot struct {
	ID     string     `json:"id" validate:"required,slug"`
	Name   string     `json:"name" validate:"required"`
	Rect   [4]float64 `json:"rect" validate:"unit_rect"` // x, y, w, h
	Target string     `json:"target" validate:"required"`
	Mask   Mask       `json:"-"`
}

func (h Hotspot) Validate(validate *validator.Validate) error {
	return errors.Wrapf(validate.Struct(h), "hotspot %q", h.ID)
}

// DefaultHotspots point at the default descriptors.
func DefaultHotspots() []Hotspot {
	return []Hotspot{
		{ID: "cpu", Name: "CPU", Rect: [4]float64{.40, .22, .20, .26}, Target: "cpu"},
		{ID: "ram", Name: "RAM", Rect: [4]float64{.68, .12, .10, .56}, Target: "ram"},
		{ID: "cmos", Name: "CMOS Battery", Rect: [4]float64{.18, .66, .12, .16}, Target: "cmos"},
	}
}

// HubScene lays the hotspots over the board and routes clicks to component scenes.
type HubScene struct {
	env      sceneEnv
	hotspots []Hotspot

	board   geom.Rect
	rects   []geom.Rect
	hovered int
	pointer geom.Point

	disposed bool
}

var _ Scene = (*HubScene)(nil)

func newHubScene(hotspots []Hotspot, env sceneEnv, viewport geom.Size) *HubScene {
	s := &HubScene{env: env, hotspots: hotspots, hovered: -1}
	for i := range s.hotspots {
		if s.hotspots[i].Mask == nil {
			s.hotspots[i].Mask = FullMask{}
		}
	}
	s.Layout(viewport)
	return s
}

func (s *HubScene) ID() string {
	return HubSceneID
}

// Board is the board rectangle on screen.
func (s *HubScene) Board() geom.Rect {
	return s.board
}

// HotspotRect is the screen rectangle of the hotspot with the given id.
func (s *HubScene) HotspotRect(id string) (geom.Rect, bool) {
	for i, h := range s.hotspots {
		if h.ID == id {
			return s.rects[i], true
		}
	}
	return geom.Rect{}, false
}

// Layout fits the board in the viewport and places the hotspots from the board's center.
func (s *HubScene) Layout(viewport geom.Size) {
	if s.disposed {
		return
	}
	fit := BoardSize.Fit(viewport)
	center := geom.Pt(viewport.W/2, viewport.H/2)
	s.board = geom.RectCentered(center, fit)

	s.rects = make([]geom.Rect, len(s.hotspots))
	for i, h := range s.hotspots {
		s.rects[i] = geom.Rect{
			X: center.X + (h.Rect[0]-.5)*fit.W,
			Y: center.Y + (h.Rect[1]-.5)*fit.H,
			W: h.Rect[2] * fit.W,
			H: h.Rect[3] * fit.H,
		}
	}
}

// HitTest returns the index of the topmost hotspot opaque under p, or -1.
func (s *HubScene) HitTest(p geom.Point) int {
	for i := len(s.hotspots) - 1; i >= 0; i-- {
		r := s.rects[i]
		if !r.Contains(p) || r.W <= 0 || r.H <= 0 {
			continue
		}
		if s.hotspots[i].Mask.Opaque((p.X-r.X)/r.W, (p.Y-r.Y)/r.H) {
			return i
		}
	}
	return -1
}

func (s *HubScene) PointerMove(p geom.Point) {
	if s.disposed {
		return
	}
	s.pointer = p
	s.hovered = s.HitTest(p)
}

func (s *HubScene) PointerDown(p geom.Point) {
	if s.disposed {
		return
	}
	i := s.HitTest(p)
	if i < 0 || s.env.navigate == nil {
		return
	}
	h := s.hotspots[i]
	s.env.navigate(h.Target, SceneParams{PartID: h.ID, PartName: h.Name})
}

func (s *HubScene) PointerUp(geom.Point) {}

func (s *HubScene) Tick(time.Duration) {}

func (s *HubScene) Frame() Frame {
	f := Frame{
		Scene:       HubSceneID,
		Title:       "Motherboard",
		State:       HubSceneID,
		Interactive: !s.disposed,
		Sprites:     []Sprite{{Key: "board", Asset: boardAsset, Rect: s.board}},
	}
	for i, h := range s.hotspots {
		f.Sprites = append(f.Sprites, Sprite{
			Key:   "hotspot:" + h.ID,
			Asset: highlightAsset,
			Rect:  s.rects[i],
			Glow:  i == s.hovered,
			Done:  s.env.checkpoints.IsCompleted(h.Target),
		})
	}
	if s.hovered >= 0 {
		f.Tooltip = &Tooltip{Text: s.hotspots[s.hovered].Name, At: s.pointer.Add(tooltipOffset)}
	}
	return f
}

func (s *HubScene) Dispose() {
	s.hovered = -1
	s.disposed = true
}

func (s *HubScene) Disposed() bool {
	return s.disposed
}
