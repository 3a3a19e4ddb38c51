package glexport

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/engrave/sdfmath"
	"github.com/soypat/geometry/ms2"
)

// DispatchGlyphs is the fixed glyph set of variable exports. A glyph's index in the
// set is the value written to uGlyphIndices to display it.
const DispatchGlyphs = "0123456789·"

// GlyphIndicesUniform is the uniform selecting the glyph shown at each position.
const GlyphIndicesUniform = "uGlyphIndices"

// VariableShiftY is the default downward shift of the host scene in variable exports.
const VariableShiftY = 4.0

// GlyphDispatchField is a text field with a fixed number of positions whose glyphs are
// chosen at runtime. Every glyph of [DispatchGlyphs] gets its own function and each
// position selects one through an if/else chain on uGlyphIndices[i]:
//
//	int idx=uGlyphIndices[i];
//	if(idx==0)g=glyphSdf_0(q);
//	else if(idx==1)g=glyphSdf_1(q);
//	...
//
// Unknown indices evaluate to the sentinel distance.
type GlyphDispatchField struct {
	glyphs    []glbuild.Shader2D
	runes     []rune
	offsets   []ms2.Vec
	positions int
	// Indices selects the glyph at each position for CPU evaluation.
	Indices []int
	// ShiftY moves the host scene down before evaluation in the spliced wrapper.
	ShiftY float32
}

// NewGlyphDispatchField lays out [DispatchGlyphs] with atlas and places positions slots
// on a single centered line, spaced like a layout of as many glyphs.
// Every glyph of the set must be present in atlas.
func NewGlyphDispatchField(atlas *textsdf.Atlas, positions int, lcfg textsdf.LayoutConfig, fcfg textsdf.FieldConfig) (*GlyphDispatchField, error) {
	if positions <= 0 {
		return nil, errors.New("dispatch field needs at least one position")
	}
	set, err := textsdf.NewLayout(DispatchGlyphs, atlas, lcfg)
	if err != nil {
		return nil, err
	}
	runes := []rune(DispatchGlyphs)
	got := set.Runes()
	if len(got) != len(runes) {
		for _, r := range runes {
			_, err = atlas.ResolveGlyph(r, lcfg.OpticalCenter)
			if err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: dispatch set incomplete", textsdf.ErrGlyphNotFound)
	}
	tf, err := textsdf.NewTextField(set, atlas, fcfg)
	if err != nil {
		return nil, err
	}
	df := &GlyphDispatchField{runes: runes, positions: positions, ShiftY: VariableShiftY}
	for i := 0; i < tf.NumGlyphs(); i++ {
		df.glyphs = append(df.glyphs, tf.GlyphShader(i))
	}
	advance := set.Advance
	xStart := -float32(positions)*advance/2 + advance*0.25
	df.offsets = make([]ms2.Vec, positions)
	for i := range df.offsets {
		df.offsets[i] = ms2.Vec{X: xStart + float32(i)*advance}
	}
	return df, nil
}

// GlyphMap returns the index of each glyph of the set keyed by its character.
func (df *GlyphDispatchField) GlyphMap() map[string]int {
	m := make(map[string]int, len(df.runes))
	for i, r := range df.runes {
		m[string(r)] = i
	}
	return m
}

// IndicesFor maps text to glyph indices, one per position. Spaces and unused positions
// get an index outside the set so they render empty.
func (df *GlyphDispatchField) IndicesFor(text string) ([]int, error) {
	m := df.GlyphMap()
	idx := make([]int, df.positions)
	for i := range idx {
		idx[i] = -1
	}
	i := 0
	for _, r := range text {
		if i >= df.positions {
			return nil, fmt.Errorf("%w: %q needs more than %d positions", ErrGlyphBudgetExceeded, text, df.positions)
		}
		if r != ' ' {
			j, ok := m[string(r)]
			if !ok {
				return nil, fmt.Errorf("%w: %q not in dispatch set", textsdf.ErrGlyphNotFound, r)
			}
			idx[i] = j
		}
		i++
	}
	return idx, nil
}

// Positions returns the number of glyph slots.
func (df *GlyphDispatchField) Positions() int { return df.positions }

func (df *GlyphDispatchField) Bounds() ms2.Box {
	var bb ms2.Box
	for i, off := range df.offsets {
		for j, g := range df.glyphs {
			gb := g.Bounds()
			gb.Min = ms2.Add(gb.Min, off)
			gb.Max = ms2.Add(gb.Max, off)
			if i == 0 && j == 0 {
				bb = gb
			} else {
				bb = bb.Union(gb)
			}
		}
	}
	return bb
}

func (df *GlyphDispatchField) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	for i := len(df.glyphs) - 1; i >= 0; i-- {
		err := fn(userData, &df.glyphs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (df *GlyphDispatchField) AppendShaderName(b []byte) []byte {
	return append(b, TextFieldName...)
}

func (df *GlyphDispatchField) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "d", sdfmath.Sentinel)
	b = append(b, "for(int i=0;i<NUM_POSITIONS;i++){\nint idx="...)
	b = append(b, GlyphIndicesUniform...)
	b = append(b, "[i];\nvec2 q=p-vec2("...)
	b = glbuild.AppendFloat(b, '-', '.', df.offsets[0].X)
	advance := float32(0)
	if len(df.offsets) > 1 {
		advance = df.offsets[1].X - df.offsets[0].X
	}
	b = append(b, "+float(i)*"...)
	b = glbuild.AppendFloat(b, '-', '.', advance)
	b = append(b, ",0.);\nfloat g="...)
	b = glbuild.AppendFloat(b, '-', '.', sdfmath.Sentinel)
	b = append(b, ";\n"...)
	for i, g := range df.glyphs {
		if i > 0 {
			b = append(b, "else "...)
		}
		b = append(b, "if(idx=="...)
		b = strconv.AppendInt(b, int64(i), 10)
		b = append(b, ")g="...)
		b = g.AppendShaderName(b)
		b = append(b, "(q);\n"...)
	}
	b = append(b, "d=min(d,g);\n}\nreturn d;"...)
	return b
}

func (df *GlyphDispatchField) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	u, err := glbuild.MakeUniform("int", []byte(GlyphIndicesUniform), df.positions)
	if err != nil {
		panic(err)
	}
	return append(objs, u)
}

// Evaluate implements [gleval.SDF2] using Indices as the uniform's value.
func (df *GlyphDispatchField) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	for i := range dist {
		dist[i] = sdfmath.Sentinel
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	local := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(local)
	aux := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(aux)
	for slot, idx := range df.Indices {
		if slot >= df.positions || idx < 0 || idx >= len(df.glyphs) {
			continue
		}
		sdf, err := gleval.AssertSDF2(df.glyphs[idx])
		if err != nil {
			return err
		}
		off := df.offsets[slot]
		for j, p := range pos {
			local[j] = ms2.Sub(p, off)
		}
		err = sdf.Evaluate(local, aux, userData)
		if err != nil {
			return err
		}
		for j, d := range aux {
			dist[j] = sdfmath.Union(dist[j], d)
		}
	}
	return nil
}

// VariableSource returns the dispatch field of df wrapped around the cylinder of ec
// as textSdf3D, with NUM_POSITIONS defined.
func VariableSource(df *GlyphDispatchField, ec engrave.EngraveConfig, cfg TextConfig) (TextSource, error) {
	err := cfg.Validate()
	if err != nil {
		return TextSource{}, err
	}
	err = cfg.checkBudget(df.positions)
	if err != nil {
		return TextSource{}, err
	}
	ts, err := engravingSource(df, ec, cfg, len(df.glyphs))
	if err != nil {
		return TextSource{}, err
	}
	defs := []byte("#define NUM_POSITIONS ")
	defs = strconv.AppendInt(defs, int64(df.positions), 10)
	defs = append(defs, '\n')
	ts.Source = append(defs, ts.Source...)
	return ts, nil
}
