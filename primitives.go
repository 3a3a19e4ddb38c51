package engrave

import (
	"github.com/chewxy/math32"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/geometry/ms3"
)

type sphere struct {
	r float32
}

// NewSphere creates a sphere centered at the origin of radius r.
func (bld *Builder) NewSphere(r float32) glbuild.Shader3D {
	valid := r > 0
	if !valid {
		bld.shapeErrorf("zero or negative sphere radius")
	}
	return &sphere{r: r}
}

func (s *sphere) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *sphere) AppendShaderName(b []byte) []byte {
	b = append(b, "sphere"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.r)
	return b
}

func (s *sphere) AppendShaderBody(b []byte) []byte {
	b = append(b, "return length(p)-"...)
	b = glbuild.AppendFloat(b, '-', '.', s.r)
	b = append(b, ';')
	return b
}

func (u *sphere) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (s *sphere) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.r},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.r},
	}
}

// NewBox creates a box centered at the origin with x,y,z dimensions and a rounding parameter to round edges.
func (bld *Builder) NewBox(x, y, z, round float32) glbuild.Shader3D {
	if round < 0 || round > x/2 || round > y/2 || round > z/2 {
		bld.shapeErrorf("invalid box rounding value")
	}
	if x <= 0 || y <= 0 || z <= 0 {
		bld.shapeErrorf("zero or negative box dimension")
	}
	return &box{dims: ms3.Vec{X: x, Y: y, Z: z}, round: round}
}

type box struct {
	dims  ms3.Vec
	round float32
}

func (s *box) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *box) AppendShaderName(b []byte) []byte {
	b = append(b, "box"...)
	arr := s.dims.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.round)
	return b
}

func (s *box) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "r", s.round)
	b = glbuild.AppendVec3Decl(b, "d", ms3.Scale(0.5, s.dims))
	b = append(b, `vec3 q = abs(p)-d+r;
return length(max(q,0.0)) + min(max(q.x,max(q.y,q.z)),0.0)-r;`...)
	return b
}

func (u *box) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (s *box) Bounds() ms3.Box {
	return ms3.NewCenteredBox(ms3.Vec{}, s.dims)
}

// NewCapsule creates a capsule of radius r around the segment joining a and b.
func (bld *Builder) NewCapsule(a, b ms3.Vec, r float32) glbuild.Shader3D {
	if r <= 0 {
		bld.shapeErrorf("zero or negative capsule radius")
	}
	if ms3.Norm(ms3.Sub(b, a)) < epstol {
		bld.shapeErrorf("degenerate capsule segment")
	}
	return &capsule{a: a, b: b, r: r}
}

type capsule struct {
	a, b ms3.Vec
	r    float32
}

func (c *capsule) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (c *capsule) AppendShaderName(b []byte) []byte {
	b = append(b, "capsule"...)
	arr := c.a.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	arr = c.b.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = glbuild.AppendFloat(b, 'n', 'p', c.r)
	return b
}

func (c *capsule) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "a", c.a)
	b = glbuild.AppendVec3Decl(b, "ba", ms3.Sub(c.b, c.a))
	b = glbuild.AppendFloatDecl(b, "r", c.r)
	b = append(b, `vec3 pa = p-a;
float h = clamp(dot(pa,ba)/dot(ba,ba), 0.0, 1.0);
return length(pa-ba*h)-r;`...)
	return b
}

func (c *capsule) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (c *capsule) Bounds() ms3.Box {
	r := ms3.Vec{X: c.r, Y: c.r, Z: c.r}
	return ms3.Box{
		Min: ms3.Sub(ms3.MinElem(c.a, c.b), r),
		Max: ms3.Add(ms3.MaxElem(c.a, c.b), r),
	}
}

// NewTorus creates a torus centered at the origin with its axis along z.
// greaterRadius is the distance from the axis to the tube center, lesserRadius the tube radius.
func (bld *Builder) NewTorus(greaterRadius, lesserRadius float32) glbuild.Shader3D {
	if greaterRadius < 2*lesserRadius {
		bld.shapeErrorf("too large torus lesser radius")
	} else if greaterRadius <= 0 || lesserRadius <= 0 {
		bld.shapeErrorf("invalid torus parameter")
	}
	return &torus{rLesser: lesserRadius, rGreater: greaterRadius}
}

type torus struct {
	rLesser, rGreater float32
}

func (t *torus) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (t *torus) AppendShaderName(b []byte) []byte {
	b = append(b, "torus"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', t.rLesser, t.rGreater)
	return b
}

func (t *torus) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendFloatDecl(b, "t1", t.rGreater)
	b = glbuild.AppendFloatDecl(b, "t2", t.rLesser)
	b = append(b, `vec2 q = vec2(length(p.xy)-t1,p.z);
return length(q)-t2;`...)
	return b
}

func (t *torus) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

func (t *torus) Bounds() ms3.Box {
	R := t.rLesser + t.rGreater
	return ms3.Box{
		Min: ms3.Vec{X: -R, Y: -R, Z: -t.rLesser},
		Max: ms3.Vec{X: R, Y: R, Z: t.rLesser},
	}
}

// NewCylinder creates a cylinder centered at the origin with given radius and height.
// The cylinder's axis points in z direction.
func (bld *Builder) NewCylinder(r, h, rounding float32) glbuild.Shader3D {
	okRounding := rounding >= 0 && rounding < r && rounding < h/2
	if !okRounding {
		bld.shapeErrorf("invalid cylinder rounding")
	}
	okDim := r > 0 && h > 0 && !math32.IsInf(h, 1)
	if !okDim {
		bld.shapeErrorf("bad cylinder dimension")
	}
	return &cylinder{r: r, h: h, round: rounding}
}

type cylinder struct {
	r     float32
	h     float32
	round float32
}

func (s *cylinder) Bounds() ms3.Box {
	return ms3.Box{
		Min: ms3.Vec{X: -s.r, Y: -s.r, Z: -s.h / 2},
		Max: ms3.Vec{X: s.r, Y: s.r, Z: s.h / 2},
	}
}

func (s *cylinder) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return nil
}

func (s *cylinder) AppendShaderName(b []byte) []byte {
	b = append(b, "cyl"...)
	b = glbuild.AppendFloats(b, 0, 'n', 'p', s.r, s.h, s.round)
	return b
}

func (s *cylinder) AppendShaderBody(b []byte) []byte {
	r, h, round := s.args()
	b = glbuild.AppendFloatDecl(b, "r", r)
	b = glbuild.AppendFloatDecl(b, "h", h)
	b = glbuild.AppendFloatDecl(b, "rd", round)
	b = append(b, `vec2 d = vec2( length(p.xy)-r+rd, abs(p.z) - h );
return min(max(d.x,d.y),0.0) + length(max(d,0.0)) - rd;`...)
	return b
}

// args returns the radius, the half height corrected for rounding and the rounding.
func (c *cylinder) args() (r, h, round float32) {
	return c.r, c.h/2 - c.round, c.round
}

func (u *cylinder) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}
