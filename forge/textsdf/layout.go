package textsdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/engrave"
	"github.com/soypat/geometry/ms2"
)

// LayoutConfig controls text placement. All lengths are in em units before scaling.
type LayoutConfig struct {
	// Scale multiplies glyph quads, advance and line height.
	Scale float32
	// LineHeight is the distance between consecutive baselines.
	LineHeight float32
	// OpticalCenter is the height the middle dot is centered on.
	OpticalCenter float32
	// AdvanceRatio is the fixed horizontal advance per character.
	AdvanceRatio float32
}

// DefaultLayoutConfig returns scale 1, line height 1.2, optical center 0.34 and advance 0.52.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Scale:         1,
		LineHeight:    1.2,
		OpticalCenter: 0.34,
		AdvanceRatio:  0.52,
	}
}

// Validate checks the configuration produces a usable layout.
func (cfg LayoutConfig) Validate() error {
	if cfg.Scale <= 0 || math32.IsInf(cfg.Scale, 0) {
		return fmt.Errorf("invalid layout scale %g", cfg.Scale)
	} else if cfg.LineHeight <= 0 {
		return fmt.Errorf("invalid line height %g", cfg.LineHeight)
	} else if cfg.AdvanceRatio <= 0 {
		return fmt.Errorf("invalid advance ratio %g", cfg.AdvanceRatio)
	}
	return nil
}

// PositionedGlyph is a glyph placed by a [Layout].
type PositionedGlyph struct {
	Rune rune
	// Plane is the glyph quad after scaling, relative to Offset.
	Plane Rect
	// Offset is the glyph's placement in the text field.
	Offset ms2.Vec
	// UV is the normalized texture rectangle with flipped vertical axis,
	// vBottom=1-atlasTop/height and vTop=1-atlasBottom/height.
	UV Rect
}

// Bounds returns the placed glyph quad.
func (pg PositionedGlyph) Bounds() ms2.Box {
	return ms2.Box{
		Min: ms2.Add(pg.Offset, pg.Plane.Min()),
		Max: ms2.Add(pg.Offset, pg.Plane.Max()),
	}
}

// uvCorners returns the texture coordinates the plane min and max corners map to.
// The plane bottom samples vBottom and the plane top samples vTop.
func (pg PositionedGlyph) uvCorners() (uvMin, uvMax ms2.Vec) {
	return ms2.Vec{X: pg.UV.Left, Y: pg.UV.Bottom}, ms2.Vec{X: pg.UV.Right, Y: pg.UV.Top}
}

// LineInfo describes one line of a [Layout].
type LineInfo struct {
	// Width is advance times the number of glyphs emitted on the line.
	Width float32
	// Consumed is the cursor distance travelled including spaces and skipped glyphs.
	Consumed float32
	// Y is the vertical placement of the line.
	Y float32
	// Glyphs is the number of glyphs emitted on the line.
	Glyphs int
}

// Layout is an immutable arrangement of glyphs. Lines are centered horizontally each on
// their own and the block of lines is centered vertically around y=0.
type Layout struct {
	Glyphs      []PositionedGlyph
	Lines       []LineInfo
	TotalHeight float32
	Advance     float32
	LineHeight  float32
}

// NewLayout arranges text using glyphs of atlas. Line breaks are \n or \r\n.
// A space advances the cursor without emitting a glyph. Glyphs missing from the
// atlas are skipped with a warning and do not advance the cursor.
// A layout with no glyphs is not an error, see [Layout.Empty].
func NewLayout(text string, atlas *Atlas, cfg LayoutConfig) (Layout, error) {
	if atlas == nil {
		return Layout{}, errors.New("nil atlas")
	}
	err := cfg.Validate()
	if err != nil {
		return Layout{}, err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	advance := cfg.AdvanceRatio * cfg.Scale
	lineH := cfg.LineHeight * cfg.Scale
	L := Layout{
		Advance:     advance,
		LineHeight:  lineH,
		TotalHeight: float32(len(lines)) * lineH,
		Lines:       make([]LineInfo, len(lines)),
	}
	log := engrave.Logger()
	for i, line := range lines {
		y := L.TotalHeight/2 - lineH/2 - float32(i)*lineH
		lineStart := len(L.Glyphs)
		var cursor, consumed float32
		for _, c := range line {
			if c == ' ' {
				cursor += advance
				consumed += advance
				continue
			}
			g, err := atlas.ResolveGlyph(c, cfg.OpticalCenter)
			if err != nil {
				log.Warn("skipping glyph", "rune", string(c), "err", err)
				continue
			}
			L.Glyphs = append(L.Glyphs, PositionedGlyph{
				Rune:   c,
				Plane:  g.Plane.Scale(cfg.Scale),
				Offset: ms2.Vec{X: cursor, Y: y},
				UV:     atlas.uvRect(*g.Atlas),
			})
			cursor += advance
			consumed += advance
		}
		emitted := len(L.Glyphs) - lineStart
		width := advance * float32(emitted)
		shift := width/2 - advance*0.25
		for j := lineStart; j < len(L.Glyphs); j++ {
			L.Glyphs[j].Offset.X -= shift
		}
		L.Lines[i] = LineInfo{Width: width, Consumed: consumed, Y: y, Glyphs: emitted}
	}
	return L, nil
}

// Empty returns true if the layout has no glyphs. An empty layout contributes
// nothing to a scene: its text field evaluates to the sentinel distance everywhere.
func (L Layout) Empty() bool { return len(L.Glyphs) == 0 }

// Truncate returns a layout with at most n glyphs and whether glyphs were dropped.
func (L Layout) Truncate(n int) (Layout, bool) {
	if n < 0 {
		n = 0
	}
	if len(L.Glyphs) <= n {
		return L, false
	}
	truncated := L
	truncated.Glyphs = L.Glyphs[:n:n]
	truncated.Lines = append([]LineInfo{}, L.Lines...)
	remaining := n
	for i := range truncated.Lines {
		kept := min(truncated.Lines[i].Glyphs, remaining)
		truncated.Lines[i].Glyphs = kept
		remaining -= kept
	}
	return truncated, true
}

// Bounds returns the box containing all placed glyph quads. The zero box is returned for an empty layout.
func (L Layout) Bounds() ms2.Box {
	if L.Empty() {
		return ms2.Box{}
	}
	bb := L.Glyphs[0].Bounds()
	for _, g := range L.Glyphs[1:] {
		bb = bb.Union(g.Bounds())
	}
	return bb
}

// Runes returns the emitted glyph code points in layout order.
func (L Layout) Runes() []rune {
	runes := make([]rune, len(L.Glyphs))
	for i, g := range L.Glyphs {
		runes[i] = g.Rune
	}
	return runes
}
