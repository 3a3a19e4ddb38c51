package engrave

import (
	"fmt"

	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/engrave/glbuild/glsllib"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// OpUnion2D is the result of the [Builder.Union2D] operation. Prefer using [Builder.Union2D] to using this type directly.
type OpUnion2D struct {
	// joined contains 2 or more 2D SDFs.
	joined []glbuild.Shader2D
}

// Union2D joins the shapes of several 2D SDFs into one. Is exact.
// Union2D aggregates nested Union2D results into its own.
func (bld *Builder) Union2D(shaders ...glbuild.Shader2D) glbuild.Shader2D {
	if len(shaders) < 2 {
		panic("need at least 2 arguments to Union2D")
	}
	var U OpUnion2D
	for i, s := range shaders {
		if s == nil {
			bld.nilsdf(fmt.Sprintf("nil arg[%d] to Union2D", i))
		}
		if subU, ok := s.(*OpUnion2D); ok {
			U.joined = append(U.joined, subU.joined...)
		} else {
			U.joined = append(U.joined, s)
		}
	}
	return &U
}

// Bounds returns the union of all joined SDFs. Implements [glbuild.Shader2D] and [gleval.SDF2].
func (u *OpUnion2D) Bounds() ms2.Box {
	u.mustValidate()
	bb := u.joined[0].Bounds()
	for _, bb2 := range u.joined[1:] {
		bb = bb.Union(bb2.Bounds())
	}
	return bb
}

// ForEach2DChild implements [glbuild.Shader2D].
func (u *OpUnion2D) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	u.mustValidate()
	for i := range u.joined {
		err := fn(userData, &u.joined[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendShaderName implements [glbuild.Shader].
func (u *OpUnion2D) AppendShaderName(b []byte) []byte {
	u.mustValidate()
	b = append(b, "union2D_"...)
	for i := range u.joined {
		b = u.joined[i].AppendShaderName(b)
		if i < len(u.joined)-1 {
			b = append(b, '_')
		}
	}
	return b
}

// AppendShaderBody implements [glbuild.Shader].
func (u *OpUnion2D) AppendShaderBody(b []byte) []byte {
	u.mustValidate()
	b = glbuild.AppendDistanceDecl(b, "d", "p", u.joined[0])
	for i := range u.joined[1:] {
		b = append(b, "d=min(d,"...)
		b = u.joined[i+1].AppendShaderName(b)
		b = append(b, "(p));\n"...)
	}
	b = append(b, "return d;"...)
	return b
}

// AppendShaderObjects implements [glbuild.Shader].
func (u *OpUnion2D) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	u.mustValidate()
	return objects
}

func (u *OpUnion2D) mustValidate() {
	if len(u.joined) < 2 {
		panic("OpUnion2D must have at least 2 elements. please prefer using Builder.Union2D over OpUnion2D")
	}
}

// Extrude converts a 2D SDF into a 3D slab of thickness h centered on z=0:
//
//	max(f(p.xy), |p.z|-h/2)
func (bld *Builder) Extrude(s glbuild.Shader2D, h float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("Extrude")
	}
	if h <= 0 {
		bld.shapeErrorf("bad extrusion length")
	}
	return &extrusion{s: s, h: h}
}

// ExtrudeRounded is like [Builder.Extrude] but intersects with an exact exterior distance,
// so the field stays a true distance near the slab's edges:
//
//	RoundedIntersect(f(p.xy), |p.z|-h/2)
func (bld *Builder) ExtrudeRounded(s glbuild.Shader2D, h float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("ExtrudeRounded")
	}
	if h <= 0 {
		bld.shapeErrorf("bad extrusion length")
	}
	return &extrusion{s: s, h: h, rounded: true}
}

type extrusion struct {
	s       glbuild.Shader2D
	h       float32
	rounded bool
}

func (e *extrusion) Bounds() ms3.Box {
	b2 := e.s.Bounds()
	hd2 := e.h / 2
	return ms3.Box{
		Min: ms3.Vec{X: b2.Min.X, Y: b2.Min.Y, Z: -hd2},
		Max: ms3.Vec{X: b2.Max.X, Y: b2.Max.Y, Z: hd2},
	}
}

func (e *extrusion) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	return fn(userData, &e.s)
}

func (e *extrusion) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (e *extrusion) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	if e.rounded {
		return append(objects, glsllib.RoundMax())
	}
	return objects
}

func (e *extrusion) AppendShaderName(b []byte) []byte {
	b = append(b, "extrusion"...)
	if e.rounded {
		b = append(b, 'r')
	}
	b = glbuild.AppendFloat(b, 'n', 'p', e.h)
	b = append(b, '_')
	b = e.s.AppendShaderName(b)
	return b
}

func (e *extrusion) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "h", e.h/2)
	b = glbuild.AppendDistanceDecl(b, "d", "p.xy", e.s)
	if e.rounded {
		return append(b, "return gsdfRoundMax(d, abs(p.z)-h);"...)
	}
	b = append(b, "return max(d, abs(p.z)-h);"...)
	return b
}

// EngraveConfig places a 2D field on the inner surface of a cylinder whose axis is parallel to x.
type EngraveConfig struct {
	// Radius of the cylindrical surface the text is wrapped around.
	Radius float32
	// Depth is the half thickness of the band around the surface where the text is carved.
	Depth float32
	// Offset is added to the evaluation position, so the cylinder axis passes through -Offset.
	Offset ms3.Vec
	// VerticalCenter shifts text vertically so the glyph optical center lies on the surface's mid line.
	VerticalCenter float32
	// Mirror flips reading direction, used when the text is read from outside the surface.
	Mirror bool
}

// DefaultEngraveConfig returns the fixture of a ring of inner radius 3.9 centered at y=-4.5.
func DefaultEngraveConfig() EngraveConfig {
	return EngraveConfig{
		Radius:         3.9,
		Depth:          0.15,
		Offset:         ms3.Vec{Y: 0.8 + 3.7},
		VerticalCenter: 0.34,
	}
}

// Validate checks the configuration describes a non-degenerate band.
func (cfg EngraveConfig) Validate() error {
	if cfg.Radius <= 0 {
		return fmt.Errorf("engrave radius must be positive, got %g", cfg.Radius)
	} else if cfg.Depth <= 0 || cfg.Depth >= cfg.Radius {
		return fmt.Errorf("engrave depth must be in (0, radius), got %g", cfg.Depth)
	}
	return nil
}

// EngraveCylinder wraps the 2D field s around the surface described by cfg.
// The horizontal text axis follows the arc length of the surface and the vertical
// text axis runs along the cylinder axis. The result is the solid band of material
// that is removed from a host, see [Builder.Engrave].
func (bld *Builder) EngraveCylinder(s glbuild.Shader2D, cfg EngraveConfig) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("EngraveCylinder")
	}
	err := cfg.Validate()
	if err != nil {
		bld.shapeErrorf("%s", err.Error())
	}
	return &engraveCylinder{s: s, cfg: cfg}
}

// Engrave carves the text field s into host along the surface described by cfg.
// Where the text field is empty host remains unchanged.
func (bld *Builder) Engrave(host glbuild.Shader3D, s glbuild.Shader2D, cfg EngraveConfig) glbuild.Shader3D {
	return bld.Difference(host, bld.EngraveCylinder(s, cfg))
}

type engraveCylinder struct {
	s   glbuild.Shader2D
	cfg EngraveConfig
}

func (e *engraveCylinder) Bounds() ms3.Box {
	tb := e.s.Bounds()
	vc := e.cfg.VerticalCenter
	off := e.cfg.Offset
	rmax := e.cfg.Radius + e.cfg.Depth
	return ms3.Box{
		Min: ms3.Vec{X: vc - tb.Max.Y - off.X, Y: -rmax - off.Y, Z: -rmax - off.Z},
		Max: ms3.Vec{X: vc - tb.Min.Y - off.X, Y: rmax - off.Y, Z: rmax - off.Z},
	}
}

func (e *engraveCylinder) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	return fn(userData, &e.s)
}

func (e *engraveCylinder) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (e *engraveCylinder) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objects, glsllib.RoundMax())
}

func (e *engraveCylinder) AppendShaderName(b []byte) []byte {
	b = append(b, "engraveCyl"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', e.cfg.Radius, e.cfg.Depth, e.cfg.VerticalCenter)
	arr := e.cfg.Offset.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	if e.cfg.Mirror {
		b = append(b, 'm')
	}
	b = append(b, '_')
	b = e.s.AppendShaderName(b)
	return b
}

func (e *engraveCylinder) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "R", e.cfg.Radius)
	b = glbuild.AppendFloatDecl(b, "depth", e.cfg.Depth)
	b = glbuild.AppendFloatDecl(b, "vc", e.cfg.VerticalCenter)
	b = glbuild.AppendVec3Decl(b, "q", e.cfg.Offset)
	b = append(b, `q += p;
q.xy = vec2(q.y, -q.x);
float angle = atan(q.z, q.x);
float r = length(q.xz);
`...)
	if e.cfg.Mirror {
		b = append(b, "vec2 tp = vec2(angle*R, q.y+vc);\n"...)
	} else {
		b = append(b, "vec2 tp = vec2(-angle*R, q.y+vc);\n"...)
	}
	b = glbuild.AppendDistanceDecl(b, "d", "tp", e.s)
	b = append(b, "return gsdfRoundMax(d, abs(R-r)-depth);"...)
	return b
}

// Translate2D moves the SDF s in the given direction.
func (bld *Builder) Translate2D(s glbuild.Shader2D, dirX, dirY float32) glbuild.Shader2D {
	if s == nil {
		bld.nilsdf("Translate2D")
	}
	return &translate2D{s: s, p: ms2.Vec{X: dirX, Y: dirY}}
}

type translate2D struct {
	s glbuild.Shader2D
	p ms2.Vec
}

func (u *translate2D) Bounds() ms2.Box {
	return u.s.Bounds().Add(u.p)
}

func (s *translate2D) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	return fn(userData, &s.s)
}

func (s *translate2D) AppendShaderName(b []byte) []byte {
	b = append(b, "translate2D"...)
	arr := s.p.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = append(b, '_')
	b = s.s.AppendShaderName(b)
	return b
}

func (s *translate2D) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec2Decl(b, "t", s.p)
	b = append(b, "return "...)
	b = s.s.AppendShaderName(b)
	b = append(b, "(p-t);"...)
	return b
}

func (u *translate2D) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}
