package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// VersionStr is the GLSL version header used by desktop OpenGL programs.
const VersionStr = "#version 460\n"

// Shader stores information for automatically generating SDF Shader pipelines
// and evaluating them correctly on a GPU.
type Shader interface {
	// AppendShaderName appends the name of the GL shader function
	// to the buffer and returns the result. It should be unique to that shader.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the shader function to the
	// buffer and returns the result.
	AppendShaderBody(b []byte) []byte
	// AppendShaderObject appends "objects" needed to evaluate the shader correctly.
	// See [ShaderObject] for more information on what an object can represent.
	AppendShaderObjects(objs []ShaderObject) []ShaderObject
}

// ShaderObject is a handle to a declaration needed to evaluate a [Shader] correctly.
// A ShaderObject could represent any of the following:
//   - Shader function. Helper GLSL function shared between shaders, deduplicated by source.
//   - Shader uniform. A value provided by the host program, such as a texture sampler.
type ShaderObject struct {
	// NamePtr is a pointer to the name of the object inside of the [Shader].
	// This lets the programmer edit the name if a naming conflict is found before generating the shader bodies.
	NamePtr []byte
	// Type is the GLSL type of a uniform, i.e: "sampler2D", "float", "int".
	Type string
	// ArrayLen is the length of uniform arrays. Zero for scalar uniforms.
	ArrayLen int
	// Binding is the texture unit allocated to sampler uniforms.
	// Binding should be equal to -1 until the final binding point is allocated in shader generation.
	Binding int
	// for function shaders.
	funcSource []byte
}

// Shader3D can create SDF shader source code for an arbitrary 3D shape.
type Shader3D interface {
	Shader
	// ForEachChild iterats over the Shader3D's direct Shader3D children.
	// Unary operations have one child i.e: Translate.
	// Binary operations have two children i.e: Union, Intersection, Difference.
	ForEachChild(userData any, fn func(userData any, s *Shader3D) error) error
	// Bounds returns the Shader3D's bounding box where the SDF is negative.
	Bounds() ms3.Box
}

// Shader2D can create SDF shader source code for an arbitrary 2D shape.
type Shader2D interface {
	Shader
	// ForEachChild iterats over the Shader2D's direct Shader2D children.
	ForEach2DChild(userData any, fn func(userData any, s *Shader2D) error) error
	// Bounds returns the Shader2D's bounding box where the SDF is negative.
	Bounds() ms2.Box
}

// shader3D2D can create SDF shader source code for a operation that receives 2D
// shaders to generate a 3D shape.
type shader3D2D interface {
	Shader3D
	ForEach2DChild(userData any, fn func(userData any, s *Shader2D) error) error
}

// Programmer implements shader generation logic for Shader type.
type Programmer struct {
	scratchNodes []Shader
	scratch      []byte
	objsScratch  []ShaderObject
	// names maps shader names to body hashes for checking duplicates.
	names map[uint64]uint64
	// omitUniforms skips writing uniform declarations. Uniforms are still returned.
	omitUniforms bool
}

// MakeShaderFunction parses a GLSL function definition and returns it as a [ShaderObject].
// The function name is read from the text between the return type and the opening parenthesis.
func MakeShaderFunction(shaderDef []byte) (sf ShaderObject, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexByte(shaderDef, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderObject{}, errors.New("unable to parse function name")
	}
	name := shaderDef[fnNameStart:fnNameEnd]
	name = bytes.TrimSpace(name)
	if len(name) == 0 {
		return ShaderObject{}, errors.New("empty function name")
	}
	sf = ShaderObject{
		NamePtr:    name,
		funcSource: shaderDef,
		Binding:    -1,
	}
	return sf, nil
}

// MakeUniform returns a uniform declaration of the given GLSL type. arrayLen of zero declares a scalar uniform.
func MakeUniform(glslType string, name []byte, arrayLen int) (ShaderObject, error) {
	obj := ShaderObject{
		NamePtr:  name,
		Type:     glslType,
		ArrayLen: arrayLen,
		Binding:  -1,
	}
	err := obj.Validate()
	if err != nil {
		return ShaderObject{}, err
	}
	return obj, nil
}

// MakeTextureSampler2D returns a sampler2D uniform declaration with the given name.
func MakeTextureSampler2D(name []byte) (ShaderObject, error) {
	return MakeUniform("sampler2D", name, 0)
}

// IsFunction returns true if the object is a GLSL function.
func (obj ShaderObject) IsFunction() bool { return len(obj.funcSource) > 0 }

// IsUniform returns true if the object is a uniform declaration.
func (obj ShaderObject) IsUniform() bool { return !obj.IsFunction() }

// IsSampler returns true if the object is a texture sampler uniform.
func (obj ShaderObject) IsSampler() bool {
	return obj.IsUniform() && strings.HasPrefix(obj.Type, "sampler")
}

// Validate checks the object is well formed.
func (obj ShaderObject) Validate() error {
	if len(obj.NamePtr) == 0 {
		return errors.New("shader object zero-length name")
	} else if len(obj.funcSource) > 0 {
		return nil // Functions only have one required field besides NamePtr
	}
	switch obj.Type {
	case "sampler2D", "float", "int", "vec2", "vec3", "vec4", "mat4":
	case "":
		return errors.New("shader object uniform without type")
	default:
		return fmt.Errorf("unsupported uniform type %q", obj.Type)
	}
	if obj.ArrayLen < 0 {
		return errors.New("negative uniform array length")
	} else if obj.ArrayLen > 0 && strings.HasPrefix(obj.Type, "sampler") {
		return errors.New("sampler arrays unsupported")
	}
	return nil
}

// NewDefaultProgrammer returns a Programmer with reasonable default parameters.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratchNodes: make([]Shader, 64),
		scratch:      make([]byte, 1024), // Max length of shader token is around 1024..1060 characters.
		names:        make(map[uint64]uint64),
	}
}

// SetUniformDeclarations sets whether uniform declarations are written by [Programmer.WriteSDFDecl].
// Hosts that declare uniforms separately, such as offline meshers injecting texture bindings, disable them.
// Uniforms are always returned by WriteSDFDecl regardless of this setting.
func (p *Programmer) SetUniformDeclarations(declare bool) {
	p.omitUniforms = !declare
}

// WriteSDFDecl writes the SDF shader function declarations and returns the top-level SDF function name.
// Uniform declarations and helper functions required by the shaders are written first.
func (p *Programmer) WriteSDFDecl(w io.Writer, s Shader) (baseName string, n int, objs []ShaderObject, err error) {
	baseName, nodes, err := ParseAppendNodes(p.scratchNodes[:0], s)
	if err != nil {
		return "", 0, nil, err
	}
	n, objs, err = p.writeShaders(w, nodes)
	if err != nil {
		return "", n, objs, err
	}
	return baseName, n, objs, nil
}

func (p *Programmer) writeShaders(w io.Writer, nodes []Shader) (n int, objs []ShaderObject, err error) {
	clear(p.names)
	p.scratch = p.scratch[:0]
	p.objsScratch = p.objsScratch[:0]
	textureUnit := 0
	objIdx := 0
	for i := len(nodes) - 1; i >= 0; i-- {
		// Start by generating all Shader Objects.
		node := nodes[i]
		p.objsScratch = node.AppendShaderObjects(p.objsScratch)
		newObjs := p.objsScratch[objIdx:]
		keep := newObjs[:0]
	OBJWRITE:
		for i := range newObjs {
			obj := newObjs[i]
			if obj.Binding != -1 {
				return n, nil, fmt.Errorf("shader object binding should be set to -1 until shader generated for %T, %q", unwraproot(node), obj.NamePtr)
			}
			err = obj.Validate()
			if err != nil {
				return n, nil, fmt.Errorf("%T: %w", unwraproot(node), err)
			}
			nameHash := hash(obj.NamePtr, 0)
			_, nameConflict := p.names[nameHash]
			if nameConflict {
				for _, old := range p.objsScratch[:objIdx+len(keep)] {
					if !bytes.Equal(old.NamePtr, obj.NamePtr) {
						continue
					}
					if obj.IsFunction() && bytes.Equal(obj.funcSource, old.funcSource) {
						continue OBJWRITE // Skip this function, is duplicate.
					} else if obj.IsUniform() && old.IsUniform() && obj.Type == old.Type && obj.ArrayLen == old.ArrayLen {
						continue OBJWRITE // Same uniform requested by several shaders.
					}
					break
				}
				return n, nil, fmt.Errorf("shader object name conflict: %T has object with conflicting name %q", unwraproot(node), obj.NamePtr)
			}
			if obj.IsSampler() {
				obj.Binding = textureUnit
				textureUnit++
			}
			p.names[nameHash] = nameHash
			if !(obj.IsUniform() && p.omitUniforms) {
				p.scratch, err = AppendShaderObjectDecl(p.scratch, obj)
				if err != nil {
					return n, nil, err
				}
			}
			keep = append(keep, obj)
		}
		p.objsScratch = p.objsScratch[:objIdx+len(keep)]
		objIdx += len(keep)
	}

	if len(p.scratch) > 0 {
		// Write object declarations if any.
		ngot, err := w.Write(p.scratch)
		n += ngot
		if err != nil {
			return n, nil, err
		}
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		var name, body []byte
		p.scratch, name, body = AppendShaderSource(p.scratch[:0], node)
		nameHash := hash(name, 0)
		bodyHash := hash(body, nameHash) // Body hash mixes name as well.
		gotBodyHash, nameConflict := p.names[nameHash]
		if nameConflict {
			// Name already exists in tree, check if bodies are identical.
			if bodyHash == gotBodyHash {
				continue // Shader already written and is identical, skip.
			}
			var conflictBody []byte
			for j := i + 1; j < len(nodes); j++ {
				conflictBody = nodes[j].AppendShaderName(conflictBody[:0])
				if bytes.Equal(conflictBody, name) {
					conflictBody = nodes[j].AppendShaderBody(conflictBody[:0])
					break
				}
				conflictBody = conflictBody[:0]
			}
			return n, nil, fmt.Errorf("duplicate %T shader name %q w/ body:\n%s\n\nconflict with distinct shader with same name:\n%s", unwraproot(node), name, body, conflictBody)
		}
		p.names[nameHash] = bodyHash // Not found, add it.
		ngot, err := w.Write(p.scratch)
		n += ngot
		if err != nil {
			return n, nil, err
		}
	}
	objs = append(objs[:0], p.objsScratch...) // Clone slice and return it.
	return n, objs, nil
}

// AppendShaderObjectDecl appends the GLSL declaration of obj:
//
//	uniform <obj.Type> <obj.NamePtr>[<obj.ArrayLen>];
//
// or the function source for function objects.
func AppendShaderObjectDecl(dst []byte, obj ShaderObject) ([]byte, error) {
	err := obj.Validate()
	if err != nil {
		return dst, err
	}
	if obj.IsFunction() {
		dst = append(dst, obj.funcSource...)
		dst = append(dst, '\n', '\n')
		return dst, nil
	}
	dst = append(dst, "uniform "...)
	dst = append(dst, obj.Type...)
	dst = append(dst, ' ')
	dst = append(dst, obj.NamePtr...)
	if obj.ArrayLen > 0 {
		dst = append(dst, '[')
		dst = strconv.AppendInt(dst, int64(obj.ArrayLen), 10)
		dst = append(dst, ']')
	}
	dst = append(dst, ";\n"...)
	return dst, nil
}

const shorteningBufsize = 1024

// ShortenNames3D replaces shader names longer than maxRewriteLen in the tree with
// a prefix of the name and a hash of the name and body.
func ShortenNames3D(root *Shader3D, maxRewriteLen int) error {
	scratch := make([]byte, shorteningBufsize)
	rewrite3 := func(a any, s3 *Shader3D) error {
		scratch = rewriteName3(s3, scratch, maxRewriteLen)
		return nil
	}
	rewrite2 := func(a any, s2 *Shader2D) error {
		scratch = rewriteName2(s2, scratch, maxRewriteLen)
		return nil
	}
	err := forEachNodeBFS(*root, rewrite3, rewrite2)
	if err != nil {
		return err
	}
	return rewrite3(nil, root)
}

// ShortenNames2D is the 2D counterpart of [ShortenNames3D].
func ShortenNames2D(root *Shader2D, maxRewriteLen int) error {
	scratch := make([]byte, shorteningBufsize)
	rewrite3 := func(a any, s3 *Shader3D) error {
		scratch = rewriteName3(s3, scratch, maxRewriteLen)
		return nil
	}
	rewrite2 := func(a any, s2 *Shader2D) error {
		scratch = rewriteName2(s2, scratch, maxRewriteLen)
		return nil
	}
	err := forEachNodeBFS(*root, rewrite3, rewrite2)
	if err != nil {
		return err
	}
	return rewrite2(nil, root)
}

func rewriteName3(s3 *Shader3D, scratch []byte, rewritelen int) []byte {
	sd3 := *s3
	if _, ok := sd3.(*nameOverloadShader3D); ok {
		return scratch // Already overloaded.
	}
	name, scratch := makeShortname(sd3, scratch, rewritelen)
	if name == nil {
		return scratch
	}
	*s3 = &nameOverloadShader3D{Shader: sd3, name: name}
	return scratch
}

func rewriteName2(s2 *Shader2D, scratch []byte, rewritelen int) []byte {
	sd2 := *s2
	if _, ok := sd2.(*nameOverloadShader2D); ok {
		return scratch // Already overloaded.
	}
	name, scratch := makeShortname(sd2, scratch, rewritelen)
	if name == nil {
		return scratch
	}
	*s2 = &nameOverloadShader2D{Shader: sd2, name: name}
	return scratch
}

func makeShortname(s Shader, scratch []byte, rewritelen int) (newNameOrNil []byte, newScratch []byte) {
	var h uint64 = 0xff51afd7ed558ccd
	scratch = s.AppendShaderName(scratch[:0])
	if len(scratch) < rewritelen {
		return nil, scratch // Already short name, no need to rewrite.
	}
	newName := append([]byte{}, scratch[:rewritelen]...)
	h = hash(scratch, h)
	scratch = s.AppendShaderBody(scratch[:0])
	h = hash(scratch, h)
	newName = strconv.AppendUint(newName, h, 32)
	return newName, scratch
}

// ParseAppendNodes parses the shader object tree and appends all nodes in Breadth First order
// to the dst Shader argument buffer and returns the result.
func ParseAppendNodes(dst []Shader, root Shader) (baseName string, nodes []Shader, err error) {
	if root == nil {
		return "", nil, errors.New("nil shader object")
	}
	baseName = string(root.AppendShaderName([]byte{}))
	if baseName == "" {
		return "", nil, errors.New("empty shader name")
	}
	dst, err = AppendAllNodes(dst, root)
	if err != nil {
		return "", nil, err
	}
	return baseName, dst, nil
}

// AppendShaderSource appends the GL code of a single shader to the dst byte buffer.  If dst's
// capacity is grown during the writing the buffer with augmented capacity is returned. If not the same input dst is returned.
// name and body byte slices pointing to the result buffer are also returned for convenience.
func AppendShaderSource(dst []byte, s Shader) (result, name, body []byte) {
	dst = append(dst, "float "...)
	nameStart := len(dst)
	dst = s.AppendShaderName(dst)
	nameEnd := len(dst)
	_, is3D := s.(Shader3D)
	if is3D {
		dst = append(dst, "(vec3 p){\n"...)
	} else {
		dst = append(dst, "(vec2 p){\n"...)
	}
	bodyStart := len(dst)
	dst = s.AppendShaderBody(dst)
	bodyEnd := len(dst)
	dst = append(dst, "\n}\n\n"...)
	return dst, dst[nameStart:nameEnd], dst[bodyStart:bodyEnd]
}

// AppendAllNodes BFS iterates over all of root's descendants and appends all nodes
// found to dst.
//
// To generate shaders one must iterate over nodes in reverse order to ensure
// the first iterated nodes are the nodes with no dependencies on other nodes.
func AppendAllNodes(dst []Shader, root Shader) ([]Shader, error) {
	dst = append(dst, root)
	err := forEachNodeBFS(root, func(_ any, s3 *Shader3D) error {
		dst = append(dst, *s3)
		return nil
	}, func(_ any, s2 *Shader2D) error {
		dst = append(dst, *s2)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func forEachNodeBFS(root Shader, fn3 func(userData any, s3 *Shader3D) error, fn2 func(userData any, s2 *Shader2D) error) error {
	var userData any
	children := []Shader{root}
	nextChild := 0
	nilChild := errors.New("got nil child in shader tree")
	for len(children[nextChild:]) > 0 {
		newChildren := children[nextChild:]
		for _, obj := range newChildren {
			nextChild++
			obj3, ok3 := obj.(Shader3D)
			obj2, ok2 := obj.(Shader2D)
			if !ok2 && !ok3 {
				return fmt.Errorf("found shader %T that does not implement Shader3D nor Shader2D", obj)
			}
			var err error
			if ok3 {
				err = obj3.ForEachChild(userData, func(userData any, s *Shader3D) error {
					if s == nil || *s == nil {
						return nilChild
					}
					children = append(children, *s)
					return fn3(userData, s)
				})
				if obj32, ok32 := obj.(shader3D2D); ok32 && err == nil {
					// 2D->3D operations such as extrusion and cylinder engraving hold Shader2D children.
					err = obj32.ForEach2DChild(userData, func(userData any, s *Shader2D) error {
						if s == nil || *s == nil {
							return nilChild
						}
						children = append(children, *s)
						return fn2(userData, s)
					})
				}
			}
			if err == nil && !ok3 && ok2 {
				err = obj2.ForEach2DChild(userData, func(userData any, s *Shader2D) error {
					if s == nil || *s == nil {
						return nilChild
					}
					children = append(children, *s)
					return fn2(userData, s)
				})
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func forEachNodeDFS(obj Shader, fnEnter, fnExit func(s Shader) error) (err error) {
	var userData any
	obj3, ok3 := obj.(Shader3D)
	obj2, ok2 := obj.(Shader2D)
	if !ok2 && !ok3 {
		return fmt.Errorf("found shader %T that does not implement Shader3D nor Shader2D", obj)
	}
	err = fnEnter(obj)
	if err != nil {
		return err
	}
	if ok3 {
		err = obj3.ForEachChild(userData, func(userData any, s *Shader3D) error {
			return forEachNodeDFS(*s, fnEnter, fnExit)
		})
	}
	obj32, ok32 := obj.(shader3D2D)
	if ok32 && err == nil {
		err = obj32.ForEach2DChild(userData, func(userData any, s *Shader2D) error {
			return forEachNodeDFS(*s, fnEnter, fnExit)
		})
	} else if ok2 && !ok3 && err == nil {
		err = obj2.ForEach2DChild(userData, func(userData any, s *Shader2D) error {
			return forEachNodeDFS(*s, fnEnter, fnExit)
		})
	}
	if err != nil {
		return err
	}
	return fnExit(obj)
}

func countDirectChildren(obj Shader) (directChildren int) {
	count3 := func(any, *Shader3D) error { directChildren++; return nil }
	count2 := func(any, *Shader2D) error { directChildren++; return nil }
	if obj3, ok3 := obj.(Shader3D); ok3 {
		obj3.ForEachChild(nil, count3)
		if obj32, ok := obj.(shader3D2D); ok {
			obj32.ForEach2DChild(nil, count2)
		}
	} else if obj2, ok2 := obj.(Shader2D); ok2 {
		obj2.ForEach2DChild(nil, count2)
	}
	return directChildren
}

// FormatShader returns a compact human readable representation of the shader tree
// using the concrete type names, i.e: "OpUnion(sphere,translate(box))".
func FormatShader(sh Shader) string {
	if sh == nil {
		return "<nil>"
	}
	prevWasPrimitive := false
	var sb strings.Builder
	err := forEachNodeDFS(sh, func(s Shader) error {
		if prevWasPrimitive {
			sb.WriteByte(',')
		}
		prevWasPrimitive = false
		tp := reflect.TypeOf(unwraproot(s))
		if tp.Kind() == reflect.Pointer {
			tp = tp.Elem()
		}
		sb.WriteString(tp.Name())
		if countDirectChildren(s) != 0 {
			sb.WriteByte('(')
		}
		return nil
	}, func(s Shader) error {
		isPrimitive := countDirectChildren(s) == 0
		if !isPrimitive {
			sb.WriteByte(')')
		}
		prevWasPrimitive = true
		return nil
	})
	if err != nil {
		return err.Error()
	}
	return sb.String()
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

func AppendDistanceDecl(b []byte, floatVarname, sdfPositionArgInput string, s Shader) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = s.AppendShaderName(b)
	b = append(b, '(')
	b = append(b, sdfPositionArgInput...)
	b = append(b, ");\n"...)
	return b
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, '=')
	b = AppendVec3(b, v)
	b = append(b, ';', '\n')
	return b
}

func AppendVec2Decl(b []byte, vec2Varname string, v ms2.Vec) []byte {
	b = append(b, "vec2 "...)
	b = append(b, vec2Varname...)
	b = append(b, '=')
	b = AppendVec2(b, v)
	b = append(b, ';', '\n')
	return b
}

// AppendVec2 appends a vec2 literal, i.e: "vec2(1.5,-2.)".
func AppendVec2(b []byte, v ms2.Vec) []byte {
	b = append(b, "vec2("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y)
	return append(b, ')')
}

// AppendVec3 appends a vec3 literal.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	return append(b, ')')
}

// AppendVec4 appends a vec4 literal.
func AppendVec4(b []byte, x, y, z, w float32) []byte {
	b = append(b, "vec4("...)
	b = AppendFloats(b, ',', '-', '.', x, y, z, w)
	return append(b, ')')
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

func AppendIntDecl(b []byte, intVarname string, v int) []byte {
	b = append(b, "int "...)
	b = append(b, intVarname...)
	b = append(b, '=')
	b = strconv.AppendInt(b, int64(v), 10)
	b = append(b, ';', '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v formatted so that it is a valid GLSL float literal when neg='-' and decimal='.'.
// Other neg and decimal characters are used to embed floats in identifiers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}

func unwraproot(s Shader) Shader {
	i := 0
	var sbase Shader
	for s != nil && i < 6 {
		sbase = s
		s = unwrap(s)
		i++
	}
	return sbase
}

func unwrap(s Shader) Shader {
	if unwrapper, ok := s.(interface{ unwrap() Shader }); ok {
		return unwrapper.unwrap()
	}
	return nil
}
