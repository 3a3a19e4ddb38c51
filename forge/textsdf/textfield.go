package textsdf

import (
	"fmt"
	"strconv"

	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/engrave/glbuild/glsllib"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/engrave/sdfmath"
	"github.com/soypat/geometry/ms2"
)

// TextField is the 2D distance field of a [Layout]. It implements [glbuild.Shader2D]
// and [gleval.SDF2]. Its shader is a chain of calls to one function per glyph:
//
//	float textSdf2D(vec2 p){
//	float d=1000.;
//	d=min(d,glyphSdf_0(p-vec2(-0.13,0.)));
//	...
//	return d;
//	}
//
// An empty layout yields a field that is the sentinel distance everywhere.
type TextField struct {
	name    string
	glyphs  []glbuild.Shader2D
	offsets []ms2.Vec
	bounds  ms2.Box
}

// NewTextField creates the text field of layout. The atlas is used for CPU evaluation
// and may lack a texture if the field is only used to generate shaders.
func NewTextField(layout Layout, atlas *Atlas, cfg FieldConfig) (*TextField, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	var tex *msdfTexture
	if atlas != nil {
		tex = atlas.sample
	}
	tf := &TextField{
		name:    "textSdf2D",
		glyphs:  make([]glbuild.Shader2D, len(layout.Glyphs)),
		offsets: make([]ms2.Vec, len(layout.Glyphs)),
		bounds:  layout.Bounds(),
	}
	for i, pg := range layout.Glyphs {
		tf.glyphs[i] = newGlyphShader("glyphSdf_"+strconv.Itoa(i), pg, cfg, tex)
		tf.offsets[i] = pg.Offset
	}
	return tf, nil
}

// NumGlyphs returns the number of glyph functions in the field.
func (tf *TextField) NumGlyphs() int { return len(tf.glyphs) }

// Bounds returns the box containing all glyph quads. Implements [glbuild.Shader2D].
func (tf *TextField) Bounds() ms2.Box { return tf.bounds }

// GlyphShader returns the shader of the i'th glyph, named glyphSdf_i.
func (tf *TextField) GlyphShader(i int) glbuild.Shader2D { return tf.glyphs[i] }

// ForEach2DChild iterates over the per glyph shaders, last glyph first, so that
// generated source declares glyphSdf_0 first. Implements [glbuild.Shader2D].
func (tf *TextField) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	for i := len(tf.glyphs) - 1; i >= 0; i-- {
		err := fn(userData, &tf.glyphs[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendShaderName implements [glbuild.Shader].
func (tf *TextField) AppendShaderName(b []byte) []byte {
	return append(b, tf.name...)
}

// AppendShaderBody implements [glbuild.Shader].
func (tf *TextField) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "d", sdfmath.Sentinel)
	for i, g := range tf.glyphs {
		b = append(b, "d=min(d,"...)
		b = g.AppendShaderName(b)
		b = append(b, "(p-"...)
		b = glbuild.AppendVec2(b, tf.offsets[i])
		b = append(b, "));\n"...)
	}
	b = append(b, "return d;"...)
	return b
}

// AppendShaderObjects implements [glbuild.Shader].
func (tf *TextField) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objs
}

// Evaluate implements [gleval.SDF2]. Positions are evaluated one glyph at a time
// over the whole batch.
func (tf *TextField) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	for i := range dist {
		dist[i] = sdfmath.Sentinel
	}
	if len(tf.glyphs) == 0 {
		return nil
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	local := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(local)
	aux := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(aux)
	for i, g := range tf.glyphs {
		sdf, err := gleval.AssertSDF2(g)
		if err != nil {
			return err
		}
		off := tf.offsets[i]
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

// glyphShader is the field of a single positioned glyph in its local frame.
type glyphShader struct {
	name  string
	plane Rect
	uvMin ms2.Vec
	uvMax ms2.Vec
	cfg   FieldConfig
	tex   *msdfTexture
}

func newGlyphShader(name string, pg PositionedGlyph, cfg FieldConfig, tex *msdfTexture) *glyphShader {
	uvMin, uvMax := pg.uvCorners()
	return &glyphShader{name: name, plane: pg.Plane, uvMin: uvMin, uvMax: uvMax, cfg: cfg, tex: tex}
}

func (gs *glyphShader) Bounds() ms2.Box {
	return ms2.Box{Min: gs.plane.Min(), Max: gs.plane.Max()}
}

func (gs *glyphShader) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	return nil
}

func (gs *glyphShader) AppendShaderName(b []byte) []byte {
	return append(b, gs.name...)
}

func (gs *glyphShader) AppendShaderBody(b []byte) []byte {
	if gs.plane.Degenerate() {
		b = append(b, "return "...)
		b = glbuild.AppendFloat(b, '-', '.', sdfmath.Sentinel)
		return append(b, ';')
	}
	b = append(b, "return sampleMsdf(p,"...)
	b = glbuild.AppendVec2(b, gs.plane.Min())
	b = append(b, ',')
	b = glbuild.AppendVec2(b, gs.plane.Max())
	b = append(b, ',')
	b = glbuild.AppendVec2(b, gs.uvMin)
	b = append(b, ',')
	b = glbuild.AppendVec2(b, gs.uvMax)
	b = append(b, ");"...)
	return b
}

func (gs *glyphShader) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	sampler, err := glbuild.MakeTextureSampler2D([]byte(gs.cfg.TextureName))
	if err != nil {
		panic(err) // TextureName validated on construction.
	}
	return append(objs, sampler, glsllib.Box2D(), glsllib.Median3(), sampleMsdfFunc(gs.cfg))
}

func (gs *glyphShader) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	if gs.plane.Degenerate() {
		for i := range dist {
			dist[i] = sdfmath.Sentinel
		}
		return nil
	}
	if gs.tex == nil {
		return fmt.Errorf("%s: %w", gs.name, ErrNoTexture)
	}
	for i, p := range pos {
		dist[i] = glyphDistance(gs.tex, gs.cfg, gs.plane, gs.uvMin, gs.uvMax, p)
	}
	return nil
}

// sampleMsdfFunc returns the GLSL function shared by all glyph functions of a field.
func sampleMsdfFunc(cfg FieldConfig) glbuild.ShaderObject {
	var b []byte
	b = append(b, `float sampleMsdf(vec2 p, vec2 planeMin, vec2 planeMax, vec2 uvMin, vec2 uvMax) {
	vec2 size = planeMax - planeMin;
	vec2 localUV = (p - planeMin) / size;
	if (localUV.x < -0.2 || localUV.x > 1.2 || localUV.y < -0.2 || localUV.y > 1.2) {
		return gsdfBox2D(p, 0.5*(planeMin+planeMax), 0.5*size);
	}
	localUV = clamp(localUV, 0.0, 1.0);
	vec3 msd = texture2D(`...)
	b = append(b, cfg.TextureName...)
	b = append(b, ", mix(uvMin, uvMax, localUV)).rgb;\n\treturn "...)
	b = glbuild.AppendFloat(b, '-', '.', cfg.PxRange)
	b = append(b, "*(0.5-gsdfMedian3(msd))/"...)
	b = glbuild.AppendFloat(b, '-', '.', cfg.GlyphSize)
	b = append(b, ";\n}"...)
	obj, err := glbuild.MakeShaderFunction(b)
	if err != nil {
		panic(err)
	}
	return obj
}
