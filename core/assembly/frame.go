package assembly

import "github.com/trezcool/masomo-lab/core/geom"

// Sprite is one drawable in a Frame, in screen pixels.
type Sprite struct {
	Key   string    `json:"key"`
	Asset string    `json:"asset"`
	Rect  geom.Rect `json:"rect"`
	Tint  bool      `json:"tint,omitempty"` // error tint
	Glow  bool      `json:"glow,omitempty"` // hover highlight
	Done  bool      `json:"done,omitempty"` // completed badge
}

type Tooltip struct {
	Text string     `json:"text"`
	At   geom.Point `json:"at"`
}

// Frame is what a renderer needs to draw the active scene. Sprites are ordered back to front.
type Frame struct {
	Scene           string   `json:"scene"`
	Title           string   `json:"title"`
	State           string   `json:"state"`
	Interactive     bool     `json:"interactive"`
	Sprites         []Sprite `json:"sprites"`
	Tooltip         *Tooltip `json:"tooltip,omitempty"`
	OverallProgress float64  `json:"overall_progress"`
}

// Sprite returns the first sprite with the given key.
func (f Frame) Sprite(key string) (Sprite, bool) {
	for _, s := range f.Sprites {
		if s.Key == key {
			return s, true
		}
	}
	return Sprite{}, false
}
