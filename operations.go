package engrave

import (
	"fmt"

	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/geometry/ms3"
)

// OpUnion is the result of the [Builder.Union] operation. Prefer using [Builder.Union] to using this type directly.
//
// Shapes built by this package are not exported since their concrete type provides
// little value. OpUnion is the exception since it is the most common node of a scene
// and users may want to walk a tree looking for unions to section by bounding box.
type OpUnion struct {
	// joined contains 2 or more 3D SDFs.
	// OpUnion methods will panic if joined has less than 2 elements.
	joined []glbuild.Shader3D
}

// Union joins the shapes of several 3D SDFs into one. Is exact.
// Union aggregates nested Union results into its own. To prevent this behaviour use [OpUnion] directly.
func (bld *Builder) Union(shaders ...glbuild.Shader3D) glbuild.Shader3D {
	if len(shaders) < 2 {
		panic("need at least 2 arguments to Union")
	}
	var U OpUnion
	for i, s := range shaders {
		if s == nil {
			bld.nilsdf(fmt.Sprintf("nil arg[%d] to Union", i))
		}
		if subU, ok := s.(*OpUnion); ok {
			U.joined = append(U.joined, subU.joined...)
		} else {
			U.joined = append(U.joined, s)
		}
	}
	return &U
}

// Bounds returns the union of all joined SDFs. Implements [glbuild.Shader3D] and [gleval.SDF3].
func (u *OpUnion) Bounds() ms3.Box {
	u.mustValidate()
	bb := u.joined[0].Bounds()
	for _, bb2 := range u.joined[1:] {
		bb = bb.Union(bb2.Bounds())
	}
	return bb
}

// ForEachChild implements [glbuild.Shader3D].
func (u *OpUnion) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
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
func (u *OpUnion) AppendShaderName(b []byte) []byte {
	u.mustValidate()
	b = append(b, "union_"...)
	for i := range u.joined {
		b = u.joined[i].AppendShaderName(b)
		if i < len(u.joined)-1 {
			b = append(b, '_')
		}
	}
	return b
}

// AppendShaderBody implements [glbuild.Shader].
func (u *OpUnion) AppendShaderBody(b []byte) []byte {
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

// AppendShaderObjects implements [glbuild.Shader]. Returns the argument unmodified.
func (u *OpUnion) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	u.mustValidate()
	return objects
}

func (u *OpUnion) mustValidate() {
	if len(u.joined) < 2 {
		panic("OpUnion must have at least 2 elements. please prefer using Builder.Union over OpUnion")
	}
}

// Difference is the SDF difference of a-b, max(a,-b). Does not produce an exact SDF.
// Subtracting a field that is positive everywhere leaves a unchanged.
func (bld *Builder) Difference(a, b glbuild.Shader3D) glbuild.Shader3D {
	if a == nil || b == nil {
		bld.nilsdf("Difference")
	}
	return &diff{s1: a, s2: b}
}

type diff struct {
	s1, s2 glbuild.Shader3D // Performs s1-s2.
}

func (u *diff) Bounds() ms3.Box {
	return u.s1.Bounds()
}

func (s *diff) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	err := fn(userData, &s.s1)
	if err != nil {
		return err
	}
	return fn(userData, &s.s2)
}

func (s *diff) AppendShaderName(b []byte) []byte {
	b = append(b, "diff_"...)
	b = s.s1.AppendShaderName(b)
	b = append(b, '_')
	b = s.s2.AppendShaderName(b)
	return b
}

func (s *diff) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendDistanceDecl(b, "a", "p", s.s1)
	b = glbuild.AppendDistanceDecl(b, "b", "p", s.s2)
	b = append(b, "return max(a,-b);"...)
	return b
}

func (u *diff) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

// Intersection is the SDF intersection of a ^ b. Does not produce an exact SDF.
func (bld *Builder) Intersection(a, b glbuild.Shader3D) glbuild.Shader3D {
	if a == nil || b == nil {
		bld.nilsdf("Intersection")
	}
	return &intersect{s1: a, s2: b}
}

type intersect struct {
	s1, s2 glbuild.Shader3D // Performs s1 ^ s2.
}

func (u *intersect) Bounds() ms3.Box {
	return u.s1.Bounds().Intersect(u.s2.Bounds())
}

func (s *intersect) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	err := fn(userData, &s.s1)
	if err != nil {
		return err
	}
	return fn(userData, &s.s2)
}

func (s *intersect) AppendShaderName(b []byte) []byte {
	b = append(b, "intersect_"...)
	b = s.s1.AppendShaderName(b)
	b = append(b, '_')
	b = s.s2.AppendShaderName(b)
	return b
}

func (s *intersect) AppendShaderBody(b []byte) []byte {
	b = append(b, "return max("...)
	b = s.s1.AppendShaderName(b)
	b = append(b, "(p),"...)
	b = s.s2.AppendShaderName(b)
	b = append(b, "(p));"...)
	return b
}

func (u *intersect) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

// SmoothUnion joins a and b with a quadratic polynomial blend of radius k.
// A k of zero is equivalent to [Builder.Union].
func (bld *Builder) SmoothUnion(k float32, a, b glbuild.Shader3D) glbuild.Shader3D {
	if a == nil || b == nil {
		bld.nilsdf("SmoothUnion")
	}
	if k < 0 {
		bld.shapeErrorf("negative smooth union blend radius")
	}
	return &smoothUnion{s1: a, s2: b, k: k}
}

type smoothUnion struct {
	s1, s2 glbuild.Shader3D
	k      float32
}

func (s *smoothUnion) Bounds() ms3.Box {
	// The blend only adds material between the shapes, pad by the blend radius.
	bb := s.s1.Bounds().Union(s.s2.Bounds())
	pad := ms3.Vec{X: s.k, Y: s.k, Z: s.k}
	bb.Min = ms3.Sub(bb.Min, pad)
	bb.Max = ms3.Add(bb.Max, pad)
	return bb
}

func (s *smoothUnion) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	err := fn(userData, &s.s1)
	if err != nil {
		return err
	}
	return fn(userData, &s.s2)
}

func (s *smoothUnion) AppendShaderName(b []byte) []byte {
	b = append(b, "smoothUnion"...)
	b = glbuild.AppendFloat(b, 'n', 'p', s.k)
	b = append(b, '_')
	b = s.s1.AppendShaderName(b)
	b = append(b, '_')
	b = s.s2.AppendShaderName(b)
	return b
}

func (s *smoothUnion) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendDistanceDecl(b, "a", "p", s.s1)
	b = glbuild.AppendDistanceDecl(b, "b", "p", s.s2)
	if s.k <= 0 {
		return append(b, "return min(a,b);"...)
	}
	b = glbuild.AppendFloatDecl(b, "k", s.k)
	b = append(b, `float h = clamp(0.5+0.5*(b-a)/k, 0.0, 1.0);
return mix(b,a,h)-k*h*(1.0-h);`...)
	return b
}

func (s *smoothUnion) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

// Translate moves the SDF s in the given direction (dirX, dirY, dirZ) and returns the result.
func (bld *Builder) Translate(s glbuild.Shader3D, dirX, dirY, dirZ float32) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("Translate")
	}
	return &translate{s: s, p: ms3.Vec{X: dirX, Y: dirY, Z: dirZ}}
}

type translate struct {
	s glbuild.Shader3D
	p ms3.Vec
}

func (t *translate) Bounds() ms3.Box {
	return t.s.Bounds().Add(t.p)
}

func (s *translate) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return fn(userData, &s.s)
}

func (s *translate) AppendShaderName(b []byte) []byte {
	b = append(b, "transl"...)
	arr := s.p.Array()
	b = glbuild.AppendFloats(b, 0, 'n', 'p', arr[:]...)
	b = append(b, '_')
	b = s.s.AppendShaderName(b)
	return b
}

func (s *translate) AppendShaderBody(b []byte) []byte {
	b = glbuild.AppendVec3Decl(b, "t", s.p)
	b = append(b, "return "...)
	b = s.s.AppendShaderName(b)
	b = append(b, "(p-t);"...)
	return b
}

func (u *translate) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}

// SwapXZ exchanges the x and z coordinates of s. A shape with its axis along z
// such as a cylinder or torus ends up with its axis along x.
// Reflections preserve distance so the result is exact if s is exact.
func (bld *Builder) SwapXZ(s glbuild.Shader3D) glbuild.Shader3D {
	if s == nil {
		bld.nilsdf("SwapXZ")
	}
	return &swapXZ{s: s}
}

type swapXZ struct {
	s glbuild.Shader3D
}

func (s *swapXZ) Bounds() ms3.Box {
	bb := s.s.Bounds()
	bb.Min.X, bb.Min.Z = bb.Min.Z, bb.Min.X
	bb.Max.X, bb.Max.Z = bb.Max.Z, bb.Max.X
	return bb
}

func (s *swapXZ) ForEachChild(userData any, fn func(userData any, s *glbuild.Shader3D) error) error {
	return fn(userData, &s.s)
}

func (s *swapXZ) AppendShaderName(b []byte) []byte {
	b = append(b, "swapxz_"...)
	return s.s.AppendShaderName(b)
}

func (s *swapXZ) AppendShaderBody(b []byte) []byte {
	b = append(b, "return "...)
	b = s.s.AppendShaderName(b)
	b = append(b, "(p.zyx);"...)
	return b
}

func (s *swapXZ) AppendShaderObjects(objects []glbuild.ShaderObject) []glbuild.ShaderObject {
	return objects
}
