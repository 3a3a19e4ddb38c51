package textsdf

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/png" // PNG atlases.
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/fzipp/bmfont"
	_ "golang.org/x/image/bmp"  // BMP atlases.
	_ "golang.org/x/image/tiff" // TIFF atlases.
)

// atlasJSON is the msdf-atlas-gen JSON layout.
type atlasJSON struct {
	Atlas struct {
		Type          string  `json:"type"`
		DistanceRange float32 `json:"distanceRange"`
		Size          float32 `json:"size"`
		Width         int     `json:"width"`
		Height        int     `json:"height"`
		YOrigin       string  `json:"yOrigin"`
	} `json:"atlas"`
	Metrics Metrics `json:"metrics"`
	Glyphs  []struct {
		Unicode     rune    `json:"unicode"`
		Advance     float32 `json:"advance"`
		PlaneBounds *Rect   `json:"planeBounds"`
		AtlasBounds *Rect   `json:"atlasBounds"`
	} `json:"glyphs"`
}

// ParseAtlasJSON reads msdf-atlas-gen JSON metadata. Atlases generated with yOrigin
// "top" are converted to bottom origin rectangles on load. The returned atlas has no texture.
func ParseAtlasJSON(r io.Reader) (*Atlas, error) {
	var aj atlasJSON
	err := json.NewDecoder(r).Decode(&aj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAtlas, err)
	}
	atlas, err := NewAtlas(aj.Atlas.Width, aj.Atlas.Height)
	if err != nil {
		return nil, err
	}
	atlas.DistanceRange = aj.Atlas.DistanceRange
	atlas.GlyphSize = aj.Atlas.Size
	atlas.Metrics = aj.Metrics
	var topOrigin bool
	switch aj.Atlas.YOrigin {
	case "", "bottom":
	case "top":
		topOrigin = true
	default:
		return nil, fmt.Errorf("%w: unknown yOrigin %q", ErrInvalidAtlas, aj.Atlas.YOrigin)
	}
	h := float32(aj.Atlas.Height)
	for _, g := range aj.Glyphs {
		plane, bounds := g.PlaneBounds, g.AtlasBounds
		if topOrigin && plane != nil {
			plane = &Rect{Left: plane.Left, Right: plane.Right, Bottom: -plane.Bottom, Top: -plane.Top}
		}
		if topOrigin && bounds != nil {
			bounds = &Rect{Left: bounds.Left, Right: bounds.Right, Bottom: h - bounds.Bottom, Top: h - bounds.Top}
		}
		atlas.AddGlyph(Glyph{Rune: g.Unicode, Advance: g.Advance, Plane: plane, Atlas: bounds})
	}
	return atlas, nil
}

// LoadAtlasJSON reads msdf-atlas-gen JSON metadata from a file.
func LoadAtlasJSON(path string) (*Atlas, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	atlas, err := ParseAtlasJSON(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return atlas, nil
}

// LoadBMFont reads an AngelCode BMFont descriptor and its first page image.
// Pixel metrics are converted to em units using the font size.
func LoadBMFont(path string) (*Atlas, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, err
	}
	desc := font.Descriptor
	size := float32(math.Abs(float64(desc.Info.Size)))
	if size == 0 {
		return nil, fmt.Errorf("%w: %s: zero font size", ErrInvalidAtlas, path)
	}
	atlas, err := NewAtlas(int(desc.Common.ScaleW), int(desc.Common.ScaleH))
	if err != nil {
		return nil, err
	}
	atlas.GlyphSize = size
	base := float32(desc.Common.Base)
	atlas.Metrics = Metrics{
		EmSize:     1,
		LineHeight: float32(desc.Common.LineHeight) / size,
		Ascender:   base / size,
		Descender:  (base - float32(desc.Common.LineHeight)) / size,
	}
	var pageFile string
	for _, page := range desc.Pages {
		if page.ID == 0 {
			pageFile = page.File
		}
	}
	if pageFile == "" {
		return nil, fmt.Errorf("%w: %s: no page 0", ErrInvalidAtlas, path)
	}
	scaleH := float32(desc.Common.ScaleH)
	glyphs := make([]Glyph, 0, len(desc.Chars))
	for _, c := range desc.Chars {
		if c.Page != 0 {
			continue
		}
		g := Glyph{Rune: rune(c.ID), Advance: float32(c.XAdvance) / size}
		if c.Width > 0 && c.Height > 0 {
			x, y := float32(c.X), float32(c.Y)
			w, ch := float32(c.Width), float32(c.Height)
			xoff, yoff := float32(c.XOffset), float32(c.YOffset)
			g.Plane = &Rect{
				Left:   xoff / size,
				Right:  (xoff + w) / size,
				Top:    (base - yoff) / size,
				Bottom: (base - yoff - ch) / size,
			}
			g.Atlas = &Rect{Left: x, Right: x + w, Top: scaleH - y, Bottom: scaleH - y - ch}
		}
		glyphs = append(glyphs, g)
	}
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i].Rune < glyphs[j].Rune })
	for _, g := range glyphs {
		atlas.AddGlyph(g)
	}
	err = atlas.LoadTexture(filepath.Join(filepath.Dir(path), pageFile))
	if err != nil {
		return nil, err
	}
	return atlas, nil
}

// LoadTexture decodes a PNG, BMP or TIFF image and sets it as the atlas texture.
func (a *Atlas) LoadTexture(path string) error {
	fp, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	img, _, err := image.Decode(fp)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAtlas, path, err)
	}
	return a.SetTexture(img)
}
