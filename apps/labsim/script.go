package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-lab/core/geom"
)

// Script is a recorded session: a viewport and the gestures replayed on it.
type Script struct {
	Viewport size   `yaml:"viewport"`
	Steps    []Step `yaml:"steps"`
}

// Step holds exactly one action.
type Step struct {
	Resize *size         `yaml:"resize,omitempty"`
	Down   *target       `yaml:"down,omitempty"`
	Move   *target       `yaml:"move,omitempty"`
	Up     *target       `yaml:"up,omitempty"`
	Click  *target       `yaml:"click,omitempty"`
	Drag   *dragStep     `yaml:"drag,omitempty"`
	Tick   time.Duration `yaml:"tick,omitempty"`
	Frame  bool          `yaml:"frame,omitempty"`
	Expect *expectation  `yaml:"expect,omitempty"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Resize != nil, s.Down != nil, s.Move != nil, s.Up != nil, s.Click != nil,
		s.Drag != nil, s.Tick > 0, s.Frame, s.Expect != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

type dragStep struct {
	From target `yaml:"from"`
	To   target `yaml:"to"`
	// By offsets To, in screen pixels.
	By *target `yaml:"by,omitempty"`
}

// expectation checks the session after the previous steps. Empty fields are not checked.
type expectation struct {
	Scene    string   `yaml:"scene,omitempty"`
	State    string   `yaml:"state,omitempty"`
	Progress *float64 `yaml:"progress,omitempty"`
}

// size is written [w, h].
type size geom.Size

func (sz *size) UnmarshalYAML(value *yaml.Node) error {
	var wh []float64
	if err := value.Decode(&wh); err != nil || len(wh) != 2 {
		return fmt.Errorf("line %d: size must be [w, h]", value.Line)
	}
	*sz = size{W: wh[0], H: wh[1]}
	return nil
}

// target is either a point, written [x, y], or the name of something on
// screen: slot, dropzone, lever, hotspot:<id>, item:<key> or item:correct.
type target struct {
	Name  string
	Point geom.Point
}

func (t *target) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t.Name = strings.TrimSpace(value.Value)
		if t.Name == "" {
			return fmt.Errorf("line %d: empty target", value.Line)
		}
		return nil
	case yaml.SequenceNode:
		var xy []float64
		if err := value.Decode(&xy); err != nil || len(xy) != 2 {
			return fmt.Errorf("line %d: point must be [x, y]", value.Line)
		}
		t.Point = geom.Pt(xy[0], xy[1])
		return nil
	default:
		return fmt.Errorf("line %d: target must be a name or [x, y]", value.Line)
	}
}

func (t target) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("[%g, %g]", t.Point.X, t.Point.Y)
}

// ParseScript reads a YAML script.
func ParseScript(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Script
	if err := dec.Decode(&sc); err != nil {
		return nil, errors.Wrap(err, "decoding script")
	}
	if sc.Viewport.W <= 0 || sc.Viewport.H <= 0 {
		return nil, errors.New("script: viewport is required")
	}
	for i, step := range sc.Steps {
		if n := step.actions(); n != 1 {
			return nil, errors.Errorf("script: step %d has %d actions, want 1", i+1, n)
		}
	}
	return &sc, nil
}
