package assembly

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core/assembly/fsm"
	"github.com/trezcool/masomo-lab/core/geom"
)

// DesignSize is the reference viewport descriptors are authored in.
// Scenes scale it to fit the actual viewport.
var DesignSize = geom.Size{W: 1280, H: 720}

type Edge string

const (
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// Vertical reports whether the dock runs along a vertical screen edge.
func (e Edge) Vertical() bool {
	return e == EdgeLeft || e == EdgeRight
}

// Candidate is a part offered in the tray.
type Candidate struct {
	Key     string `json:"key" validate:"required,slug"`
	Correct bool   `json:"correct"`
	Asset   string `json:"asset" validate:"required"`
}

// Descriptor declares one component scene. Geometry is in design pixels.
type Descriptor struct {
	ComponentID string               `json:"component_id" validate:"required,slug"`
	Name        string               `json:"name" validate:"required"`
	Transitions fsm.Table            `json:"-" validate:"required"`
	Assets      map[fsm.State]string `json:"-" validate:"required"`
	Candidates  []Candidate          `json:"candidates" validate:"required,dive"`
	Dock        Edge                 `json:"dock" validate:"oneof=left right top bottom"`
	SlotCenter  geom.Point           `json:"-"`
	SlotSize    geom.Size            `json:"-"`
	ItemSize    geom.Size            `json:"-"`
	LeverSize   geom.Size            `json:"-"`
	LeverAsset  string               `json:"lever_asset"`
}

// Decoys counts the incorrect candidates.
func (d Descriptor) Decoys() int {
	var n int
	for _, c := range d.Candidates {
		if !c.Correct {
			n++
		}
	}
	return n
}

func (d Descriptor) hasTrigger(typ fsm.TriggerType) bool {
	_, ok := d.Transitions.Trigger(typ)
	return ok
}

// Validate checks the struct tags, the transition table and the cross-field rules.
func (d Descriptor) Validate(validate *validator.Validate) error {
	if err := validate.Struct(d); err != nil {
		return errors.Wrapf(err, "descriptor %q", d.ComponentID)
	}
	if err := d.Transitions.Validate(); err != nil {
		return errors.Wrapf(err, "descriptor %q", d.ComponentID)
	}
	for s := fsm.Idle; s <= fsm.Locked; s++ {
		if d.Assets[s] == "" {
			return errors.Errorf("descriptor %q: no asset for state %s", d.ComponentID, s)
		}
	}
	if d.SlotSize.Empty() || d.ItemSize.Empty() {
		return errors.Errorf("descriptor %q: slot and item sizes are required", d.ComponentID)
	}
	if d.hasTrigger(fsm.DragDrop) {
		var correct int
		for _, c := range d.Candidates {
			if c.Correct {
				correct++
			}
		}
		if correct != 1 {
			return errors.Errorf("descriptor %q: want exactly one correct candidate, got %d", d.ComponentID, correct)
		}
	}
	if d.hasTrigger(fsm.DragClamp) && (d.LeverSize.Empty() || d.LeverAsset == "") {
		return errors.Errorf("descriptor %q: lever size and asset are required", d.ComponentID)
	}
	return nil
}

// AssetKeys returns every asset key the descriptor references.
func (d Descriptor) AssetKeys() []string {
	keys := make([]string, 0, len(d.Assets)+len(d.Candidates)+1)
	for s := fsm.Idle; s <= fsm.Locked; s++ {
		keys = append(keys, d.Assets[s])
	}
	for _, c := range d.Candidates {
		keys = append(keys, c.Asset)
	}
	if d.LeverAsset != "" {
		keys = append(keys, d.LeverAsset)
	}
	return keys
}

func clickOpen() fsm.Transition {
	return fsm.Transition{From: fsm.Idle, To: fsm.AwaitingPlacement, Trigger: fsm.Trigger{Type: fsm.Click}}
}

func dropIn(halfExtent float64) fsm.Transition {
	return fsm.Transition{
		From:    fsm.AwaitingPlacement,
		To:      fsm.Placed,
		Trigger: fsm.Trigger{Type: fsm.DragDrop, Params: fsm.Params{ZoneHalfExtent: halfExtent}},
	}
}

func clickLock() fsm.Transition {
	return fsm.Transition{From: fsm.Placed, To: fsm.Locked, Trigger: fsm.Trigger{Type: fsm.Click}}
}

// DefaultDescriptors are the CPU, CMOS and RAM scenes.
func DefaultDescriptors() []Descriptor {
	center := geom.Pt(DesignSize.W/2, DesignSize.H/2)
	return []Descriptor{
		{
			ComponentID: "cpu",
			Name:        "CPU",
			Transitions: fsm.Table{clickOpen(), dropIn(.45), clickLock()},
			Assets: map[fsm.State]string{
				fsm.Idle:              "cpu/socket-closed",
				fsm.AwaitingPlacement: "cpu/socket-open",
				fsm.Placed:            "cpu/socket-seated",
				fsm.Locked:            "cpu/socket-locked",
			},
			Candidates: []Candidate{
				{Key: "gpu", Asset: "decoy/gpu"},
				{Key: "cpu", Correct: true, Asset: "cpu/chip"},
				{Key: "ssd", Asset: "decoy/ssd"},
			},
			Dock:       EdgeRight,
			SlotCenter: center,
			SlotSize:   geom.Size{W: 220, H: 220},
			ItemSize:   geom.Size{W: 110, H: 110},
		},
		{
			ComponentID: "cmos",
			Name:        "CMOS Battery",
			Transitions: fsm.Table{clickOpen(), dropIn(.5), clickLock()},
			Assets: map[fsm.State]string{
				fsm.Idle:              "cmos/holder-covered",
				fsm.AwaitingPlacement: "cmos/holder-empty",
				fsm.Placed:            "cmos/battery-resting",
				fsm.Locked:            "cmos/battery-clipped",
			},
			Candidates: []Candidate{
				{Key: "cmos-battery", Correct: true, Asset: "cmos/battery"},
			},
			Dock:       EdgeBottom,
			SlotCenter: center,
			SlotSize:   geom.Size{W: 160, H: 160},
			ItemSize:   geom.Size{W: 96, H: 96},
		},
		{
			ComponentID: "ram",
			Name:        "RAM",
			Transitions: fsm.Table{
				clickOpen(),
				dropIn(.4),
				{
					From:    fsm.Placed,
					To:      fsm.Locked,
					Trigger: fsm.Trigger{Type: fsm.DragClamp, Params: fsm.Params{Axis: fsm.AxisY, Start: 0, End: 60}},
				},
			},
			Assets: map[fsm.State]string{
				fsm.Idle:              "ram/slot-covered",
				fsm.AwaitingPlacement: "ram/slot-open",
				fsm.Placed:            "ram/stick-resting",
				fsm.Locked:            "ram/stick-latched",
			},
			Candidates: []Candidate{
				{Key: "ram", Correct: true, Asset: "ram/stick"},
			},
			Dock:       EdgeLeft,
			SlotCenter: center,
			SlotSize:   geom.Size{W: 480, H: 80},
			ItemSize:   geom.Size{W: 240, H: 48},
			LeverSize:  geom.Size{W: 36, H: 36},
			LeverAsset: "ram/latch",
		},
	}
}
