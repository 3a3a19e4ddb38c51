// Package glsllib holds GLSL helper functions shared between shaders.
// Functions are returned as [glbuild.ShaderObject] so the programmer writes them once.
package glsllib

import (
	_ "embed"

	"github.com/soypat/engrave/glbuild"
)

//go:embed median3.glsl
var median3Src []byte

// Median3 returns the middle ranked channel of a multi-channel distance sample:
//
//	float gsdfMedian3(vec3 v)
func Median3() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(median3Src)
	return obj
}

//go:embed box2D.glsl
var box2DSrc []byte

// Box2D is the exact distance to an axis aligned rectangle:
//
//	float gsdfBox2D(vec2 p, vec2 center, vec2 halfSize)
func Box2D() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(box2DSrc)
	return obj
}

//go:embed roundmax.glsl
var roundMaxSrc []byte

// RoundMax intersects two distances with an exact exterior:
//
//	float gsdfRoundMax(float a, float b)
func RoundMax() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(roundMaxSrc)
	return obj
}
