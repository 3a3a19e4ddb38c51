package textsdf

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/soypat/engrave/sdfmath"
	"github.com/soypat/geometry/ms2"
)

// FieldConfig holds the distance field encoding parameters of an atlas.
type FieldConfig struct {
	// PxRange is the distance range encoded in the texture, in texture pixels.
	PxRange float32
	// GlyphSize is the number of texture pixels per em.
	GlyphSize float32
	// TextureName is the GLSL sampler uniform name the atlas is bound to.
	TextureName string
}

// DefaultFieldConfig returns pxRange=8 and glyphSize=48 bound to uMsdfTexture.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		PxRange:     8,
		GlyphSize:   48,
		TextureName: "uMsdfTexture",
	}
}

// Validate checks the configuration is usable.
func (cfg FieldConfig) Validate() error {
	if cfg.PxRange <= 0 || cfg.GlyphSize <= 0 {
		return fmt.Errorf("bad field encoding pxRange=%g glyphSize=%g", cfg.PxRange, cfg.GlyphSize)
	} else if cfg.TextureName == "" {
		return fmt.Errorf("empty texture name")
	}
	return nil
}

// uvWindow is the margin in plane units, relative to the glyph quad size, where the
// texture is sampled. Outside of it the glyph degrades to its bounding box distance.
const uvWindow = 0.2

// msdfTexture is an immutable float copy of an atlas texture for CPU sampling.
// Row zero is the first decoded image row and is addressed by v=0.
type msdfTexture struct {
	w, h int
	rgb  []float32
}

func newMSDFTexture(img *image.NRGBA) *msdfTexture {
	b := img.Bounds()
	t := &msdfTexture{w: b.Dx(), h: b.Dy(), rgb: make([]float32, 3*b.Dx()*b.Dy())}
	for y := 0; y < t.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < t.w; x++ {
			off := 3 * (y*t.w + x)
			t.rgb[off] = float32(row[4*x]) / 255
			t.rgb[off+1] = float32(row[4*x+1]) / 255
			t.rgb[off+2] = float32(row[4*x+2]) / 255
		}
	}
	return t
}

func (t *msdfTexture) texel(x, y int) (r, g, b float32) {
	x = min(max(x, 0), t.w-1)
	y = min(max(y, 0), t.h-1)
	off := 3 * (y*t.w + x)
	return t.rgb[off], t.rgb[off+1], t.rgb[off+2]
}

// sample performs bilinear filtering with clamp to edge addressing at texture coordinate uv.
func (t *msdfTexture) sample(uv ms2.Vec) (r, g, b float32) {
	x := uv.X*float32(t.w) - 0.5
	y := uv.Y*float32(t.h) - 0.5
	fx0 := math32.Floor(x)
	fy0 := math32.Floor(y)
	fx, fy := x-fx0, y-fy0
	x0, y0 := int(fx0), int(fy0)
	r00, g00, b00 := t.texel(x0, y0)
	r10, g10, b10 := t.texel(x0+1, y0)
	r01, g01, b01 := t.texel(x0, y0+1)
	r11, g11, b11 := t.texel(x0+1, y0+1)
	r = sdfmath.Mix(sdfmath.Mix(r00, r10, fx), sdfmath.Mix(r01, r11, fx), fy)
	g = sdfmath.Mix(sdfmath.Mix(g00, g10, fx), sdfmath.Mix(g01, g11, fx), fy)
	b = sdfmath.Mix(sdfmath.Mix(b00, b10, fx), sdfmath.Mix(b01, b11, fx), fy)
	return r, g, b
}

// glyphDistance evaluates the field of a glyph quad at local position p.
// uvMin is the texture coordinate of the plane's min corner and uvMax of its max corner.
func glyphDistance(t *msdfTexture, cfg FieldConfig, plane Rect, uvMin, uvMax, p ms2.Vec) float32 {
	if plane.Degenerate() {
		return sdfmath.Sentinel
	}
	pmin := plane.Min()
	size := plane.Size()
	lx := (p.X - pmin.X) / size.X
	ly := (p.Y - pmin.Y) / size.Y
	if lx < -uvWindow || lx > 1+uvWindow || ly < -uvWindow || ly > 1+uvWindow {
		return sdfmath.Box2(p, plane.Center(), ms2.Scale(0.5, size))
	}
	lx = sdfmath.Clamp(lx, 0, 1)
	ly = sdfmath.Clamp(ly, 0, 1)
	uv := ms2.Vec{
		X: sdfmath.Mix(uvMin.X, uvMax.X, lx),
		Y: sdfmath.Mix(uvMin.Y, uvMax.Y, ly),
	}
	r, g, b := t.sample(uv)
	return cfg.PxRange * (0.5 - sdfmath.Median3(r, g, b)) / cfg.GlyphSize
}
