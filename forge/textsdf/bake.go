package textsdf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/engrave"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DefaultCharset is the printable ASCII range. The middle dot is drawn with the period glyph.
const DefaultCharset = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

// BakeConfig controls atlas generation from an outline font.
type BakeConfig struct {
	// GlyphSize is the em size in atlas pixels.
	GlyphSize float32
	// PxRange is the encoded distance range in atlas pixels.
	PxRange float32
	// AtlasWidth is the texture width. The height grows to fit the charset.
	AtlasWidth int
}

// DefaultBakeConfig matches [DefaultFieldConfig] with a 256 pixel wide atlas.
func DefaultBakeConfig() BakeConfig {
	return BakeConfig{GlyphSize: 48, PxRange: 8, AtlasWidth: 256}
}

func (cfg BakeConfig) Validate() error {
	if cfg.GlyphSize < 4 || cfg.PxRange <= 0 {
		return fmt.Errorf("bad bake parameters glyphSize=%g pxRange=%g", cfg.GlyphSize, cfg.PxRange)
	} else if cfg.AtlasWidth < int(2*cfg.GlyphSize) {
		return fmt.Errorf("atlas width %d too small for glyph size %g", cfg.AtlasWidth, cfg.GlyphSize)
	}
	return nil
}

// BakeDefaultAtlas bakes charset using the Go Regular font.
func BakeDefaultAtlas(charset string, cfg BakeConfig) (*Atlas, error) {
	return BakeAtlas(goregular.TTF, charset, cfg)
}

// BakeAtlas rasterizes charset from a TrueType font and encodes each glyph as a
// distance field in all three channels of the texture. The result is a valid
// multi-channel field whose median is the true signed distance, so it is consumed
// exactly like atlases made by external generators.
// Code points absent from the font are skipped with a warning.
func BakeAtlas(ttf []byte, charset string, cfg BakeConfig) (*Atlas, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    float64(cfg.GlyphSize),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	defer face.Close()
	pad := int(math.Ceil(float64(cfg.PxRange)/2)) + 1
	size := cfg.GlyphSize
	log := engrave.Logger()

	type cell struct {
		g      Glyph
		field  []uint8
		w, h   int
		x0, y0 int
	}
	var cells []cell
	seen := make(map[rune]bool)
	for _, r := range charset {
		if seen[r] {
			continue
		}
		seen[r] = true
		if f.Index(r) == 0 {
			log.Warn("font lacks glyph", "rune", string(r))
			continue
		}
		dr, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			log.Warn("font lacks glyph", "rune", string(r))
			continue
		}
		c := cell{g: Glyph{Rune: r, Advance: float32(adv) / 64 / size}}
		if !dr.Empty() {
			c.w = dr.Dx() + 2*pad
			c.h = dr.Dy() + 2*pad
			c.field = distanceField(mask, maskp, c.w, c.h, pad, cfg.PxRange)
			c.g.Plane = &Rect{
				Left:   float32(dr.Min.X-pad) / size,
				Right:  float32(dr.Max.X+pad) / size,
				Top:    -float32(dr.Min.Y-pad) / size,
				Bottom: -float32(dr.Max.Y+pad) / size,
			}
		}
		cells = append(cells, c)
	}
	if len(cells) == 0 {
		return nil, errors.New("no glyphs baked")
	}

	// Shelf packing, one pixel gutter between cells.
	const gutter = 1
	x, y, shelf := gutter, gutter, 0
	for i := range cells {
		c := &cells[i]
		if c.field == nil {
			continue
		}
		if c.w+2*gutter > cfg.AtlasWidth {
			return nil, fmt.Errorf("glyph %q wider than atlas", c.g.Rune)
		}
		if x+c.w+gutter > cfg.AtlasWidth {
			x = gutter
			y += shelf + gutter
			shelf = 0
		}
		c.x0, c.y0 = x, y
		x += c.w + gutter
		shelf = max(shelf, c.h)
	}
	height := y + shelf + gutter

	atlas, err := NewAtlas(cfg.AtlasWidth, height)
	if err != nil {
		return nil, err
	}
	atlas.DistanceRange = cfg.PxRange
	atlas.GlyphSize = size
	m := face.Metrics()
	atlas.Metrics = Metrics{
		EmSize:     1,
		LineHeight: float32(m.Height) / 64 / size,
		Ascender:   float32(m.Ascent) / 64 / size,
		Descender:  -float32(m.Descent) / 64 / size,
	}
	img := image.NewNRGBA(image.Rect(0, 0, cfg.AtlasWidth, height))
	H := float32(height)
	for _, c := range cells {
		if c.field != nil {
			for j := 0; j < c.h; j++ {
				for i := 0; i < c.w; i++ {
					v := c.field[j*c.w+i]
					// Cells are stored bottom row first, the orientation the plane bottom samples.
					img.SetNRGBA(c.x0+i, c.y0+c.h-1-j, color.NRGBA{R: v, G: v, B: v, A: 255})
				}
			}
			c.g.Atlas = &Rect{
				Left:   float32(c.x0),
				Right:  float32(c.x0 + c.w),
				Top:    H - float32(c.y0),
				Bottom: H - float32(c.y0+c.h),
			}
		}
		atlas.AddGlyph(c.g)
	}
	err = atlas.SetTexture(img)
	if err != nil {
		return nil, err
	}
	return atlas, nil
}

// distanceField computes the encoded signed distance of a w*h cell whose glyph mask
// starts pad pixels in. Distances are measured between pixel centers to the nearest
// pixel of opposite coverage and are exact within the encoded range.
func distanceField(mask image.Image, maskp image.Point, w, h, pad int, pxRange float32) []uint8 {
	inside := make([]bool, w*h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			mx, my := maskp.X+i-pad, maskp.Y+j-pad
			if !(image.Point{X: mx, Y: my}).In(mask.Bounds()) {
				continue
			}
			_, _, _, a := mask.At(mx, my).RGBA()
			inside[j*w+i] = a >= 0x8000
		}
	}
	search := int(math.Ceil(float64(pxRange)/2)) + 1
	field := make([]uint8, w*h)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			in := inside[j*w+i]
			best := float32(search)
			for dy := -search; dy <= search; dy++ {
				for dx := -search; dx <= search; dx++ {
					x, y := i+dx, j+dy
					var other bool
					if x >= 0 && y >= 0 && x < w && y < h {
						other = inside[y*w+x]
					}
					if other == in {
						continue
					}
					d := float32(math.Sqrt(float64(dx*dx+dy*dy))) - 0.5
					best = min(best, d)
				}
			}
			if in {
				best = -best
			}
			v := 0.5 - best/pxRange
			v = min(max(v, 0), 1)
			field[j*w+i] = uint8(v*255 + 0.5)
		}
	}
	return field
}
