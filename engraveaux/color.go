package engraveaux

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/glgl/math/ms3"
)

var red = color.RGBA{R: 255, A: 255}

// ColorConversionInigoQuilez creates a new color conversion using [Inigo Quilez]'s style
// of distance bands. Useful to inspect a glyph field well beyond its edges.
// A good value for characteristic distance is the text height. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1. / characteristicDistance
	outside := ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	inside := ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
	one := ms3.Vec{X: 1, Y: 1, Z: 1}
	return func(d float32) color.Color {
		if math32.IsNaN(d) {
			return red
		}
		d *= inv
		c := inside
		if d > 0 {
			c = outside
		}
		c = ms3.Scale(1-math32.Exp(-6*math32.Abs(d)), c)
		c = ms3.Scale(0.8+0.2*math32.Cos(150*d), c)
		edge := 1 - ms1.SmoothStep(0, 0.01, math32.Abs(d))
		c = ms3.InterpElem(c, one, ms3.Vec{X: edge, Y: edge, Z: edge})
		return vecToRGBA(c)
	}
}

// ColorConversionEngraving colors a glyph field like a cut into polished metal:
// the surface outside the glyphs is metal, the inside darkens towards the
// groove floor reached at depth. The edge is antialiased over aa units.
func ColorConversionEngraving(depth, aa float32, metal, groove color.Color) func(float32) color.Color {
	cm, _ := colorful.MakeColor(metal)
	cg, _ := colorful.MakeColor(groove)
	if aa <= 0 {
		aa = depth / 8
	}
	return func(d float32) color.Color {
		if math32.IsNaN(d) {
			return red
		}
		// Depth fraction inside the groove, 0 at the rim.
		t := ms1.Clamp(-d/depth, 0, 1)
		floor := cm.BlendLab(cg, 0.5+0.5*float64(t))
		rim := ms1.SmoothStep(-aa/2, aa/2, d)
		return floor.BlendLab(cm, float64(rim)).Clamped()
	}
}

// ColorConversionLinearGradient creates a color conversion function that creates a gradient centered
// along d=0 that extends gradientLength. Colors are blended in HSV space.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32) color.Color {
	if c0 == color.Black && c1 == color.White {
		return blackAndWhiteLinearSmooth(gradientLength)
	}
	h0, _ := colorful.MakeColor(c0)
	h1, _ := colorful.MakeColor(c1)
	return func(d float32) color.Color {
		blend := d/gradientLength + 0.5
		if blend <= 0 {
			return c0
		} else if blend >= 1 {
			return c1
		}
		return h0.BlendHsv(h1, float64(blend)).Clamped()
	}
}

func blackAndWhiteLinearSmooth(edgeSmooth float32) func(d float32) color.Color {
	if edgeSmooth == 0 {
		return blackAndWhiteNoSmoothing
	}
	return func(d float32) color.Color {
		blend := ms1.Clamp(d/edgeSmooth+0.5, 0, 1)
		return color.Gray{Y: uint8(blend * 255)}
	}
}

func blackAndWhiteNoSmoothing(d float32) color.Color {
	if d < 0 {
		return color.Black
	}
	return color.White
}

func vecToRGBA(c ms3.Vec) color.RGBA {
	return color.RGBA{
		R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
		G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
		B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
		A: 255,
	}
}
