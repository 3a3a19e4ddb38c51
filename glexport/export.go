package glexport

import (
	"fmt"
	"time"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
)

// ExportRing engraves layout into the host scene and returns the mesher artifacts.
// The atlas must hold the texture the glyphs sample.
func ExportRing(host []byte, layout textsdf.Layout, atlas *textsdf.Atlas, ec engrave.EngraveConfig, param Parameter, cfg TextConfig) (Artifacts, error) {
	start := time.Now()
	ts, err := EngravingSource(layout, ec, cfg)
	if err != nil {
		return Artifacts{}, err
	}
	a, err := spliceArtifacts(host, ts, atlas, param, 0)
	if err != nil {
		return Artifacts{}, err
	}
	engrave.Logger().Info("ring export", "glyphs", len(layout.Glyphs), "bytes", len(a.Source), "elapsed", time.Since(start))
	return a, nil
}

// ExportVariableRing engraves the dispatch field into the host scene. The glyph
// shown at each position is chosen by the mesher through uGlyphIndices, the
// indices of text are recorded in the params document. The scene is moved down by df.ShiftY.
func ExportVariableRing(host []byte, df *GlyphDispatchField, atlas *textsdf.Atlas, ec engrave.EngraveConfig, param Parameter, cfg TextConfig) (Artifacts, error) {
	start := time.Now()
	ts, err := VariableSource(df, ec, cfg)
	if err != nil {
		return Artifacts{}, err
	}
	a, err := spliceArtifacts(host, ts, atlas, param, df.ShiftY)
	if err != nil {
		return Artifacts{}, err
	}
	a.Params.IsVariable = true
	a.Params.GlyphMap = df.GlyphMap()
	engrave.Logger().Info("variable ring export", "positions", df.Positions(), "bytes", len(a.Source), "elapsed", time.Since(start))
	return a, nil
}

// ExportFlat returns the artifacts of layout as flat text extruded depth to each side of z=0.
func ExportFlat(layout textsdf.Layout, atlas *textsdf.Atlas, depth float32, cfg TextConfig) (Artifacts, error) {
	start := time.Now()
	ts, err := FlatSource(layout, depth, cfg)
	if err != nil {
		return Artifacts{}, err
	}
	params, err := FlatParams(layout, depth, 0)
	if err != nil {
		return Artifacts{}, err
	}
	params.Uniforms, err = PackGlyphUniforms(layout, atlas, cfg.MaxGlyphs)
	if err != nil {
		return Artifacts{}, err
	}
	params.DisplayText = string(layout.Runes())
	a, err := newArtifacts(ts.Source, ts, atlas, params)
	if err != nil {
		return Artifacts{}, err
	}
	engrave.Logger().Info("flat export", "glyphs", len(layout.Glyphs), "size", params.Size, "elapsed", time.Since(start))
	return a, nil
}

func spliceArtifacts(host []byte, ts TextSource, atlas *textsdf.Atlas, param Parameter, shiftY float32) (Artifacts, error) {
	src, err := SpliceShifted(host, ts.Source, param, shiftY)
	if err != nil {
		return Artifacts{}, err
	}
	params := RingParams(0, 0)
	if param.Mode == ParamLiteral {
		params.UnixTime = int64(param.Value)
	}
	return newArtifacts(src, ts, atlas, params)
}

func newArtifacts(src []byte, ts TextSource, atlas *textsdf.Atlas, params Params) (Artifacts, error) {
	if atlas == nil || !atlas.HasTexture() {
		return Artifacts{}, fmt.Errorf("export: %w", textsdf.ErrNoTexture)
	}
	return Artifacts{
		Source:       src,
		Declarations: ts.Declarations(),
		Params:       params,
		Texture:      atlas.Texture(),
	}, nil
}
