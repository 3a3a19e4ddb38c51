package glbuild_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/geometry/ms2"
)

func TestShaderNameDeduplication(t *testing.T) {
	var bld engrave.Builder
	// s1 and s2 are identical in name and body but different primitives.
	s1 := bld.NewCylinder(1, 2, 0)
	s2 := bld.NewCylinder(1, 2, 0)
	s1s1 := bld.Union(s1, s1)
	s1s2 := bld.Union(s1, s2)
	s1Name := string(s1.AppendShaderName(nil))
	s2Name := string(s2.AppendShaderName(nil))
	if s1Name != s2Name {
		t.Error("expected same name, got\n", s1Name, "\n", s2Name)
	}
	decl := "float " + s1Name + "(vec3 p)"
	for _, obj := range []glbuild.Shader3D{s1s1, s1s2} {
		programmer := glbuild.NewDefaultProgrammer()
		source := new(bytes.Buffer)
		_, n, objs, err := programmer.WriteSDFDecl(source, obj)
		if err != nil {
			t.Fatal(err)
		} else if n != source.Len() {
			t.Fatal("written length mismatch")
		} else if len(objs) > 0 {
			t.Fatal("unexpected objects")
		}
		src := source.String()
		declCount := strings.Count(src, decl)
		if declCount != 1 {
			t.Errorf("\n%s\nwant one declaration, got %d", src, declCount)
		}
	}
}

func TestShaderNameConflict(t *testing.T) {
	var bld engrave.Builder
	a := glbuild.Rename3D(bld.NewSphere(1), "shape")
	b := glbuild.Rename3D(bld.NewSphere(2), "shape")
	var buf bytes.Buffer
	_, _, _, err := glbuild.NewDefaultProgrammer().WriteSDFDecl(&buf, bld.Union(a, b))
	if err == nil || !strings.Contains(err.Error(), "shape") {
		t.Errorf("want conflict naming the shader, got %v", err)
	}
}

// leaf is a 2D shader requesting arbitrary objects.
type leaf struct {
	name string
	objs []glbuild.ShaderObject
}

func (l *leaf) AppendShaderName(b []byte) []byte { return append(b, l.name...) }
func (l *leaf) AppendShaderBody(b []byte) []byte { return append(b, "return length(p)-1.;"...) }
func (l *leaf) Bounds() ms2.Box                  { return ms2.Box{Min: ms2.Vec{X: -1, Y: -1}, Max: ms2.Vec{X: 1, Y: 1}} }
func (l *leaf) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	return nil
}
func (l *leaf) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	return append(objs, l.objs...)
}

// pair is a 2D shader with two children.
type pair struct{ a, b glbuild.Shader2D }

func (p *pair) AppendShaderName(b []byte) []byte { return append(b, "pair"...) }
func (p *pair) AppendShaderBody(b []byte) []byte {
	b = append(b, "return min("...)
	b = p.a.AppendShaderName(b)
	b = append(b, "(p),"...)
	b = p.b.AppendShaderName(b)
	return append(b, "(p));"...)
}
func (p *pair) Bounds() ms2.Box { return p.a.Bounds().Union(p.b.Bounds()) }
func (p *pair) ForEach2DChild(userData any, fn func(userData any, s *glbuild.Shader2D) error) error {
	err := fn(userData, &p.a)
	if err != nil {
		return err
	}
	return fn(userData, &p.b)
}
func (p *pair) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject { return objs }

func mustUniform(t *testing.T, typ, name string, arrayLen int) glbuild.ShaderObject {
	t.Helper()
	obj, err := glbuild.MakeUniform(typ, []byte(name), arrayLen)
	if err != nil {
		t.Fatal(err)
	}
	return obj
}

func TestShaderObjects(t *testing.T) {
	fn, err := glbuild.MakeShaderFunction([]byte("float helper(float x) { return x; }"))
	if err != nil {
		t.Fatal(err)
	}
	if string(fn.NamePtr) != "helper" || !fn.IsFunction() {
		t.Fatalf("bad function object %q", fn.NamePtr)
	}
	texA, err := glbuild.MakeTextureSampler2D([]byte("texA"))
	if err != nil {
		t.Fatal(err)
	}
	texB, err := glbuild.MakeTextureSampler2D([]byte("texB"))
	if err != nil {
		t.Fatal(err)
	}
	idx := mustUniform(t, "int", "uIdx", 4)
	root := &pair{
		a: &leaf{name: "a", objs: []glbuild.ShaderObject{fn, texA, idx}},
		b: &leaf{name: "b", objs: []glbuild.ShaderObject{fn, texB, idx}},
	}
	var buf bytes.Buffer
	prog := glbuild.NewDefaultProgrammer()
	_, _, objs, err := prog.WriteSDFDecl(&buf, root)
	if err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	if strings.Count(src, "float helper(") != 1 || strings.Count(src, "uniform int uIdx[4];") != 1 {
		t.Errorf("shared objects must be declared once:\n%s", src)
	}
	if len(objs) != 4 {
		t.Fatalf("want 4 unique objects, got %d", len(objs))
	}
	bindings := map[string]int{}
	for _, obj := range objs {
		if obj.IsSampler() {
			bindings[string(obj.NamePtr)] = obj.Binding
		}
	}
	if len(bindings) != 2 || bindings["texA"] == bindings["texB"] {
		t.Errorf("samplers must get distinct bindings: %v", bindings)
	}
	for _, b := range bindings {
		if b != 0 && b != 1 {
			t.Errorf("bindings must be allocated from 0, got %v", bindings)
		}
	}

	// Uniforms omitted but still returned.
	buf.Reset()
	prog.SetUniformDeclarations(false)
	_, _, objs, err = prog.WriteSDFDecl(&buf, root)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "uniform ") || len(objs) != 4 {
		t.Errorf("want uniforms omitted and returned, got %d objects:\n%s", len(objs), buf.String())
	}

	// Same name, different uniform type.
	bad := &pair{
		a: &leaf{name: "a", objs: []glbuild.ShaderObject{mustUniform(t, "float", "u", 0)}},
		b: &leaf{name: "b", objs: []glbuild.ShaderObject{mustUniform(t, "int", "u", 0)}},
	}
	_, _, _, err = glbuild.NewDefaultProgrammer().WriteSDFDecl(&buf, bad)
	if err == nil {
		t.Error("expected uniform name conflict")
	}
}

func TestMakeObjectErrors(t *testing.T) {
	for _, src := range []string{"", "helper", "(float x)"} {
		_, err := glbuild.MakeShaderFunction([]byte(src))
		if err == nil {
			t.Errorf("%q: expected parse error", src)
		}
	}
	_, err := glbuild.MakeUniform("double", []byte("u"), 0)
	if err == nil {
		t.Error("expected unsupported type error")
	}
	_, err = glbuild.MakeUniform("sampler2D", []byte("u"), 2)
	if err == nil {
		t.Error("expected sampler array error")
	}
	_, err = glbuild.MakeUniform("float", nil, 0)
	if err == nil {
		t.Error("expected empty name error")
	}
}

func TestShortenNames(t *testing.T) {
	var bld engrave.Builder
	var root glbuild.Shader3D = bld.Translate(bld.Union(bld.NewSphere(1), bld.NewBox(1, 2, 3, 0.1)), 1, 2, 3)
	const maxLen = 12
	err := glbuild.ShortenNames3D(&root, maxLen)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	name, _, _, err := glbuild.NewDefaultProgrammer().WriteSDFDecl(&buf, root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(name, "transl") {
		t.Errorf("shortened name must keep its prefix, got %q", name)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.HasPrefix(line, "float ") || !strings.HasSuffix(line, "(vec3 p){") {
			continue
		}
		fn := line[len("float "):strings.IndexByte(line, '(')]
		if len(fn) > maxLen+14 {
			t.Errorf("name %q not shortened", fn)
		}
	}
}

func TestAppendFloat(t *testing.T) {
	for _, test := range []struct {
		v        float32
		neg, dec byte
		want     string
	}{
		{8, '-', '.', "8."},
		{-0.5, '-', '.', "-0.5"},
		{1000, '-', '.', "1000."},
		{-0.5, 'n', 'p', "n0p5"},
		{0.25, 'n', 'p', "0p25"},
	} {
		got := string(glbuild.AppendFloat(nil, test.neg, test.dec, test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%g): got %q, want %q", test.v, got, test.want)
		}
	}
	got := string(glbuild.AppendVec2(nil, ms2.Vec{X: 1, Y: -2}))
	if got != "vec2(1.,-2.)" {
		t.Errorf("got %q", got)
	}
}
