package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/core"
	"github.com/trezcool/masomo-lab/core/assembly"
	"github.com/trezcool/masomo-lab/core/geom"
	"github.com/trezcool/masomo-lab/core/progress"
)

// runner replays a Script through a Host, backed by an Aggregator.
type runner struct {
	conf   *core.Config
	store  progress.Store
	logger core.Logger
	out    io.Writer

	agg  *progress.Aggregator
	host *assembly.Host
}

func (r *runner) run(ctx context.Context, sc *Script) error {
	r.agg = progress.NewAggregator(r.store, r.logger, r.conf.Components, r.conf.Sim.SaveTimeout)
	set := r.agg.Seed(ctx)
	r.agg.OnChange(func(overall float64) {
		fmt.Fprintf(r.out, "progress %.2f%%\n", overall)
	})
	fmt.Fprintf(r.out, "resumed %v at %.2f%%\n", set.Completed(), set.OverallProgress())

	host, err := assembly.NewHost(assembly.NewSurface(), assembly.Options{
		Size:       geom.Size(sc.Viewport),
		Snapshot:   progress.SnapshotJSON(set),
		OnComplete: r.agg.Record,
		Logger:     r.logger,
		Timing:     assembly.TimingFromConfig(r.conf.Sim),
		Tracked:    r.conf.Components,
	})
	if err != nil {
		return errors.Wrap(err, "starting simulator")
	}
	r.host = host
	defer func() {
		host.Destroy()
		r.agg.Wait()
	}()

	for i, step := range sc.Steps {
		if err = r.step(step); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
	}
	return nil
}

func (r *runner) step(s Step) error {
	h := r.host
	switch {
	case s.Resize != nil:
		h.Resize(geom.Size(*s.Resize))
	case s.Down != nil:
		p, err := r.resolve(*s.Down)
		if err != nil {
			return err
		}
		h.PointerDown(p)
	case s.Move != nil:
		p, err := r.resolve(*s.Move)
		if err != nil {
			return err
		}
		h.PointerMove(p)
	case s.Up != nil:
		p, err := r.resolve(*s.Up)
		if err != nil {
			return err
		}
		h.PointerUp(p)
	case s.Click != nil:
		p, err := r.resolve(*s.Click)
		if err != nil {
			return err
		}
		h.PointerDown(p)
		h.PointerUp(p)
	case s.Drag != nil:
		from, err := r.resolve(s.Drag.From)
		if err != nil {
			return err
		}
		to, err := r.resolve(s.Drag.To)
		if err != nil {
			return err
		}
		if s.Drag.By != nil {
			to = to.Add(s.Drag.By.Point)
		}
		h.PointerDown(from)
		h.PointerMove(to)
		h.PointerUp(to)
	case s.Tick > 0:
		h.Tick(s.Tick)
	case s.Frame:
		return r.printFrame()
	case s.Expect != nil:
		return r.expect(*s.Expect)
	}
	return nil
}

// resolve turns a target into a screen point on the active scene.
func (r *runner) resolve(t target) (geom.Point, error) {
	if t.Name == "" {
		return t.Point, nil
	}
	name, arg := t.Name, ""
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name, arg = name[:i], name[i+1:]
	}

	switch scene := r.host.Scene().(type) {
	case *assembly.HubScene:
		if name == "hotspot" {
			if rect, ok := scene.HotspotRect(arg); ok {
				return rect.Center(), nil
			}
		}
	case *assembly.ComponentScene:
		switch name {
		case "slot":
			return scene.Slot().Center(), nil
		case "dropzone":
			return scene.DropZone().Center(), nil
		case "lever":
			if rect, ok := scene.Lever(); ok {
				return rect.Center(), nil
			}
		case "item":
			tray := scene.Tray()
			if tray == nil {
				break
			}
			for _, it := range tray.Items() {
				if it.Key == arg || (arg == "correct" && it.Correct) {
					return it.Pos, nil
				}
			}
		}
	}
	return geom.Point{}, errors.Errorf("%s: not found on the %s scene", t, r.host.Scene().ID())
}

func (r *runner) printFrame() error {
	data, err := json.Marshal(r.host.Frame())
	if err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	_, err = fmt.Fprintf(r.out, "frame %s\n", data)
	return err
}

func (r *runner) expect(want expectation) error {
	f := r.host.Frame()
	if want.Scene != "" && f.Scene != want.Scene {
		return errors.Errorf("scene = %q, want %q", f.Scene, want.Scene)
	}
	if want.State != "" && f.State != want.State {
		return errors.Errorf("state = %q, want %q", f.State, want.State)
	}
	if want.Progress != nil && math.Abs(f.OverallProgress-*want.Progress) > .01 {
		return errors.Errorf("progress = %.2f, want %.2f", f.OverallProgress, *want.Progress)
	}
	fmt.Fprintf(r.out, "ok %s %s %.2f%%\n", f.Scene, f.State, f.OverallProgress)
	return nil
}
