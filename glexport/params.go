package glexport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/soypat/engrave/forge/textsdf"
)

const (
	// RingSize is the edge of the cubic meshing volume of ring exports.
	RingSize = 12
	// RingResolution is the voxel count per axis of ring exports.
	RingResolution = 600
	// FlatPadding is the margin added around flat text on each side.
	FlatPadding = 0.1
	// FlatResolution is the voxel density of flat text exports in voxels per unit.
	FlatResolution = 150
)

// Params is the document read by the mesher alongside the shader source.
type Params struct {
	Size       [3]float32  `json:"size"`
	Resolution [3]int      `json:"resolution"`
	HasTexture bool        `json:"hasTexture"`
	Center     *[3]float32 `json:"center,omitempty"`
	// Date is the engraved date in mm-dd-yyyy form.
	Date        string `json:"date,omitempty"`
	UnixTime    int64  `json:"unixTime,omitempty"`
	DisplayText string `json:"displayText,omitempty"`
	// IsVariable is set for exports selecting glyphs through uGlyphIndices.
	IsVariable bool `json:"isVariable,omitempty"`
	// GlyphMap maps characters to the index written in uGlyphIndices.
	GlyphMap map[string]int `json:"glyphMap,omitempty"`
	Uniforms *GlyphUniforms `json:"uniforms,omitempty"`
	ExportID string         `json:"exportId"`
}

// GlyphUniforms are the values of the glyph uniform arrays used by runtime text shaders.
// Arrays are packed to the glyph budget, unused slots are zero rectangles.
type GlyphUniforms struct {
	AtlasSize [2]int       `json:"uAtlasSize"`
	NumGlyphs int          `json:"uNumGlyphs"`
	GlyphUV   [][4]float32 `json:"uGlyphUV"`
	// GlyphPlane holds plane rectangles as left, bottom, right, top.
	GlyphPlane [][4]float32 `json:"uGlyphPlane"`
}

// RingParams returns the parameters of a ring export meshed in a cube of edge size
// with res voxels per axis. Non-positive arguments select [RingSize] and [RingResolution].
func RingParams(size float32, res int) Params {
	if size <= 0 {
		size = RingSize
	}
	if res <= 0 {
		res = RingResolution
	}
	return Params{
		Size:       [3]float32{size, size, size},
		Resolution: [3]int{res, res, res},
		HasTexture: true,
		ExportID:   uuid.NewString(),
	}
}

// FlatParams returns the parameters of flat text extruded to depth on each side of z=0.
// The box spans the layout's line advance and glyph heights plus [FlatPadding], resolution
// is voxelsPerUnit along each axis, [FlatResolution] if non-positive.
func FlatParams(layout textsdf.Layout, depth float32, voxelsPerUnit float32) (Params, error) {
	if layout.Empty() {
		return Params{}, errors.New("flat export of empty layout")
	} else if depth <= 0 {
		return Params{}, fmt.Errorf("flat export depth must be positive, got %g", depth)
	}
	if voxelsPerUnit <= 0 {
		voxelsPerUnit = FlatResolution
	}
	bb := layout.Bounds()
	var width float32
	for _, line := range layout.Lines {
		width = max(width, float32(line.Glyphs)*layout.Advance)
	}
	size := [3]float32{
		width + 2*FlatPadding,
		bb.Size().Y + 2*FlatPadding,
		2*depth + FlatPadding,
	}
	var res [3]int
	for i, s := range size {
		res[i] = max(1, int(math32.Ceil(s*voxelsPerUnit)))
	}
	return Params{
		Size:       size,
		Resolution: res,
		HasTexture: true,
		Center:     &[3]float32{0, (bb.Min.Y + bb.Max.Y) / 2, 0},
		ExportID:   uuid.NewString(),
	}, nil
}

// SetDate records the engraved date. DisplayText is set only when empty.
func (p *Params) SetDate(d Date) {
	p.Date = d.String()
	p.UnixTime = d.Unix
	if p.DisplayText == "" {
		p.DisplayText = d.Display
	}
}

// PackGlyphUniforms returns the uniform values of layout's glyphs packed to maxGlyphs slots.
func PackGlyphUniforms(layout textsdf.Layout, atlas *textsdf.Atlas, maxGlyphs int) (*GlyphUniforms, error) {
	n := len(layout.Glyphs)
	if n > maxGlyphs {
		return nil, fmt.Errorf("%w: %d glyphs, budget %d", ErrGlyphBudgetExceeded, n, maxGlyphs)
	}
	gu := &GlyphUniforms{
		AtlasSize:  [2]int{atlas.Width, atlas.Height},
		NumGlyphs:  n,
		GlyphUV:    make([][4]float32, maxGlyphs),
		GlyphPlane: make([][4]float32, maxGlyphs),
	}
	for i, g := range layout.Glyphs {
		gu.GlyphUV[i] = [4]float32{g.UV.Left, g.UV.Bottom, g.UV.Right, g.UV.Top}
		gu.GlyphPlane[i] = [4]float32{g.Plane.Left, g.Plane.Bottom, g.Plane.Right, g.Plane.Top}
	}
	return gu, nil
}

// MarshalIndent returns the JSON document as written to params.json.
func (p Params) MarshalIndent() ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
