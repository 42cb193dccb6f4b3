package bbs

import (
	"math/rand"
	"sync/atomic"

	"github.com/mgutz/ansi"
)

// ColorPicker hands out the name colour for each caller joining the room.
type ColorPicker interface {
	Next() string
}

var nameColors = []string{
	ansi.ColorCode("red+h"),
	ansi.ColorCode("green+h"),
	ansi.ColorCode("yellow+h"),
	ansi.ColorCode("blue+h"),
	ansi.ColorCode("magenta+h"),
	ansi.ColorCode("cyan+h"),
}

// rotatingPicker walks the palette from a random starting colour, so
// callers who join one after another get different colours.
type rotatingPicker struct {
	palette []string
	n       atomic.Uint64
}

func newRotatingPicker(palette []string) ColorPicker {
	if len(palette) == 0 {
		return nil
	}
	p := &rotatingPicker{palette: append([]string(nil), palette...)}
	p.n.Store(uint64(rand.Intn(len(palette))))
	return p
}

func (p *rotatingPicker) Next() string {
	i := p.n.Add(1) - 1
	return p.palette[i%uint64(len(p.palette))]
}
