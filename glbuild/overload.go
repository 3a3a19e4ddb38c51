package glbuild

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// mirrors of gleval.SDF3 and gleval.SDF2 interfaces to avoid cyclic dependencies.
type (
	sdf3 interface {
		Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	}
	sdf2 interface {
		Evaluate(pos []ms2.Vec, dist []float32, userData any) error
	}
)

// nameOverloadShader3D replaces the name of a shader while keeping its body, children and evaluator.
type nameOverloadShader3D struct {
	Shader Shader3D
	name   []byte
}

func (nos3 *nameOverloadShader3D) Bounds() ms3.Box { return nos3.Shader.Bounds() }

func (nos3 *nameOverloadShader3D) ForEachChild(userData any, fn func(userData any, s *Shader3D) error) error {
	return nos3.Shader.ForEachChild(userData, fn)
}

func (nos3 *nameOverloadShader3D) AppendShaderBody(b []byte) []byte {
	return nos3.Shader.AppendShaderBody(b)
}

// ForEach2DChild calls the underlying Shader's ForEach2DChild. This method is called for 3D shapes that
// use 2D shaders such as extrusion and cylinder engraving.
func (nos3 *nameOverloadShader3D) ForEach2DChild(userData any, fn func(userData any, s *Shader2D) error) (err error) {
	s2, ok := nos3.Shader.(shader3D2D)
	if ok {
		err = s2.ForEach2DChild(userData, fn)
	}
	return err
}

func (nos3 *nameOverloadShader3D) AppendShaderObjects(objs []ShaderObject) []ShaderObject {
	return nos3.Shader.AppendShaderObjects(objs)
}

func (nos3 *nameOverloadShader3D) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	sdf, ok := nos3.Shader.(sdf3)
	if !ok {
		return fmt.Errorf("%T does not implement gleval.SDF3", nos3.Shader)
	}
	return sdf.Evaluate(pos, dist, userData)
}

func (nos3 *nameOverloadShader3D) AppendShaderName(b []byte) []byte {
	return append(b, nos3.name...)
}

func (nos3 *nameOverloadShader3D) unwrap() Shader { return nos3.Shader }

type nameOverloadShader2D struct {
	Shader Shader2D
	name   []byte
}

func (nos2 *nameOverloadShader2D) Bounds() ms2.Box { return nos2.Shader.Bounds() }

func (nos2 *nameOverloadShader2D) ForEach2DChild(userData any, fn func(userData any, s *Shader2D) error) error {
	return nos2.Shader.ForEach2DChild(userData, fn)
}

func (nos2 *nameOverloadShader2D) AppendShaderName(b []byte) []byte {
	return append(b, nos2.name...)
}

func (nos2 *nameOverloadShader2D) AppendShaderBody(b []byte) []byte {
	return nos2.Shader.AppendShaderBody(b)
}

func (nos2 *nameOverloadShader2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	sdf, ok := nos2.Shader.(sdf2)
	if !ok {
		return fmt.Errorf("%T does not implement gleval.SDF2", nos2.Shader)
	}
	return sdf.Evaluate(pos, dist, userData)
}

func (nos2 *nameOverloadShader2D) AppendShaderObjects(objs []ShaderObject) []ShaderObject {
	return nos2.Shader.AppendShaderObjects(objs)
}

func (nos2 *nameOverloadShader2D) unwrap() Shader { return nos2.Shader }

// Rename3D returns s with its function name replaced by name. Body, children and
// CPU evaluation are those of s. Used to give the root of a tree a well known name.
func Rename3D(s Shader3D, name string) Shader3D {
	return &nameOverloadShader3D{Shader: s, name: []byte(name)}
}

// Rename2D returns s with its function name replaced by name.
func Rename2D(s Shader2D, name string) Shader2D {
	return &nameOverloadShader2D{Shader: s, name: []byte(name)}
}
