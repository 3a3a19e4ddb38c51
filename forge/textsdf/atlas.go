package textsdf

import (
	"errors"
	"fmt"
	"image"

	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/draw"
)

var (
	// ErrGlyphNotFound is returned when a code point is absent from the atlas or
	// its record lacks a plane or atlas rectangle.
	ErrGlyphNotFound = errors.New("glyph not found in atlas")
	// ErrNoTexture is returned when CPU evaluation is requested on an atlas without texture.
	ErrNoTexture = errors.New("atlas has no texture")
	// ErrInvalidAtlas is returned for malformed atlas metadata or textures.
	ErrInvalidAtlas = errors.New("invalid atlas")
)

// MiddleDot is drawn using the period glyph shifted to the optical center.
const MiddleDot = '·'

// Rect is an axis aligned rectangle. Plane rectangles are in em units with y up,
// atlas rectangles are in pixels with the origin at the bottom of the image.
type Rect struct {
	Left   float32 `json:"left"`
	Bottom float32 `json:"bottom"`
	Right  float32 `json:"right"`
	Top    float32 `json:"top"`
}

// Min returns the bottom left corner.
func (r Rect) Min() ms2.Vec { return ms2.Vec{X: r.Left, Y: r.Bottom} }

// Max returns the top right corner.
func (r Rect) Max() ms2.Vec { return ms2.Vec{X: r.Right, Y: r.Top} }

// Size returns the width and height of the rectangle.
func (r Rect) Size() ms2.Vec { return ms2.Vec{X: r.Right - r.Left, Y: r.Top - r.Bottom} }

// Center returns the center of the rectangle.
func (r Rect) Center() ms2.Vec {
	return ms2.Vec{X: (r.Left + r.Right) / 2, Y: (r.Bottom + r.Top) / 2}
}

// Degenerate returns true if the rectangle has zero or negative area.
func (r Rect) Degenerate() bool {
	sz := r.Size()
	return !(sz.X > 0 && sz.Y > 0)
}

// Scale returns the rectangle with all coordinates multiplied by s.
func (r Rect) Scale(s float32) Rect {
	return Rect{Left: r.Left * s, Bottom: r.Bottom * s, Right: r.Right * s, Top: r.Top * s}
}

// Glyph is a single glyph record of an [Atlas].
type Glyph struct {
	Rune rune
	// Advance is the horizontal advance in em units.
	Advance float32
	// Plane is the glyph quad in em units relative to the pen position. Nil for whitespace.
	Plane *Rect
	// Atlas is the glyph's pixel rectangle inside the atlas texture. Nil for whitespace.
	Atlas *Rect
}

// Metrics are font wide metrics in em units.
type Metrics struct {
	EmSize     float32 `json:"emSize"`
	LineHeight float32 `json:"lineHeight"`
	Ascender   float32 `json:"ascender"`
	Descender  float32 `json:"descender"`
}

// Atlas holds glyph records and the distance field texture they index into.
// An Atlas is read only once loaded and may be shared between layouts and goroutines.
type Atlas struct {
	// Width and Height of the atlas texture in pixels.
	Width, Height int
	// DistanceRange is the distance field range in pixels. Zero if unknown.
	DistanceRange float32
	// GlyphSize is the number of texture pixels per em. Zero if unknown.
	GlyphSize float32
	Metrics   Metrics

	glyphs []Glyph
	index  map[rune]int
	tex    *image.NRGBA
	sample *msdfTexture
}

// NewAtlas returns an empty atlas for a texture of the given size.
func NewAtlas(width, height int) (*Atlas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %dx%d", ErrInvalidAtlas, width, height)
	}
	return &Atlas{Width: width, Height: height, index: make(map[rune]int)}, nil
}

// AddGlyph appends a glyph record. The first record of a code point wins,
// AddGlyph returns false for duplicates.
func (a *Atlas) AddGlyph(g Glyph) bool {
	if _, dup := a.index[g.Rune]; dup {
		return false
	}
	if g.Plane != nil {
		p := *g.Plane
		g.Plane = &p
	}
	if g.Atlas != nil {
		r := *g.Atlas
		g.Atlas = &r
	}
	a.index[g.Rune] = len(a.glyphs)
	a.glyphs = append(a.glyphs, g)
	return true
}

// NumGlyphs returns the number of glyph records in the atlas.
func (a *Atlas) NumGlyphs() int { return len(a.glyphs) }

// Glyph looks up the exact code point r. It fails with [ErrGlyphNotFound] if r
// is absent or its record has no plane or atlas rectangle.
func (a *Atlas) Glyph(r rune) (Glyph, error) {
	idx, ok := a.index[r]
	if !ok {
		return Glyph{}, fmt.Errorf("%w: %q", ErrGlyphNotFound, r)
	}
	g := a.glyphs[idx]
	if g.Plane == nil || g.Atlas == nil {
		return Glyph{}, fmt.Errorf("%w: %q has no bounds", ErrGlyphNotFound, r)
	}
	return g, nil
}

// ResolveGlyph looks up r like [Atlas.Glyph] and applies the middle dot rule:
// [MiddleDot] resolves to the period record with its plane shifted vertically so
// its center lies at opticalCenter.
func (a *Atlas) ResolveGlyph(r rune, opticalCenter float32) (Glyph, error) {
	if r != MiddleDot {
		return a.Glyph(r)
	}
	g, err := a.Glyph('.')
	if err != nil {
		return Glyph{}, fmt.Errorf("middle dot: %w", err)
	}
	plane := *g.Plane
	off := opticalCenter - (plane.Bottom+plane.Top)/2
	plane.Bottom += off
	plane.Top += off
	g.Plane = &plane
	g.Rune = MiddleDot
	return g, nil
}

// ForEachGlyph calls fn for every glyph record in load order.
func (a *Atlas) ForEachGlyph(fn func(g Glyph) error) error {
	for _, g := range a.glyphs {
		err := fn(g)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetTexture sets the distance field image of the atlas. The image is converted
// once to 8-bit NRGBA and must match the atlas dimensions.
func (a *Atlas) SetTexture(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != a.Width || b.Dy() != a.Height {
		return fmt.Errorf("%w: texture %dx%d does not match atlas %dx%d", ErrInvalidAtlas, b.Dx(), b.Dy(), a.Width, a.Height)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	a.tex = nrgba
	a.sample = newMSDFTexture(nrgba)
	return nil
}

// Texture returns the atlas texture or nil if not set.
func (a *Atlas) Texture() *image.NRGBA { return a.tex }

// HasTexture returns true if a texture was set on the atlas.
func (a *Atlas) HasTexture() bool { return a.tex != nil }

// FieldConfig returns the default field configuration with the encoding
// parameters of the atlas when they are known.
func (a *Atlas) FieldConfig() FieldConfig {
	cfg := DefaultFieldConfig()
	if a.DistanceRange > 0 {
		cfg.PxRange = a.DistanceRange
	}
	if a.GlyphSize > 0 {
		cfg.GlyphSize = a.GlyphSize
	}
	return cfg
}

// uvRect returns the normalized texture rectangle of an atlas pixel rectangle.
// The vertical axis is flipped: vBottom = 1-top/height, vTop = 1-bottom/height.
func (a *Atlas) uvRect(px Rect) Rect {
	w, h := float32(a.Width), float32(a.Height)
	return Rect{
		Left:   px.Left / w,
		Right:  px.Right / w,
		Bottom: 1 - px.Top/h,
		Top:    1 - px.Bottom/h,
	}
}
