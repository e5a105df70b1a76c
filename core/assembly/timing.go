package assembly

import (
	"time"

	"github.com/trezcool/masomo-lab/core"
)

// Timing holds the scene delays. Zero fields fall back to the defaults.
type Timing struct {
	ResumeReturn     time.Duration // finished part reopened: back to the hub after
	CompletionReturn time.Duration // part just locked: back to the hub after
	TintClear        time.Duration // invalid drop tint lasts
	TraySlide        time.Duration // tray slide-in animation
}

var DefaultTiming = Timing{
	ResumeReturn:     3 * time.Second,
	CompletionReturn: 2 * time.Second,
	TintClear:        500 * time.Millisecond,
	TraySlide:        400 * time.Millisecond,
}

func TimingFromConfig(conf core.SimConfig) Timing {
	return Timing{
		ResumeReturn:     conf.ResumeReturnDelay,
		CompletionReturn: conf.CompletionReturnDelay,
		TintClear:        conf.TintDuration,
		TraySlide:        conf.TraySlideDuration,
	}
}

func (t Timing) withDefaults() Timing {
	if t.ResumeReturn <= 0 {
		t.ResumeReturn = DefaultTiming.ResumeReturn
	}
	if t.CompletionReturn <= 0 {
		t.CompletionReturn = DefaultTiming.CompletionReturn
	}
	if t.TintClear <= 0 {
		t.TintClear = DefaultTiming.TintClear
	}
	if t.TraySlide <= 0 {
		t.TraySlide = DefaultTiming.TraySlide
	}
	return t
}
