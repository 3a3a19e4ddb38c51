package engrave_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/engrave"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const tol = 1e-4

func eval3(t *testing.T, s glbuild.Shader3D, pos ...ms3.Vec) []float32 {
	t.Helper()
	sdf, err := gleval.NewCPUSDF3(s)
	if err != nil {
		t.Fatal(err)
	}
	dist := make([]float32, len(pos))
	err = sdf.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dist
}

func eval2(t *testing.T, s glbuild.Shader2D, pos ...ms2.Vec) []float32 {
	t.Helper()
	sdf, err := gleval.NewCPUSDF2(s)
	if err != nil {
		t.Fatal(err)
	}
	dist := make([]float32, len(pos))
	err = sdf.Evaluate(pos, dist, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dist
}

func boxContains(bb ms3.Box, p ms3.Vec) bool {
	return p.X >= bb.Min.X && p.Y >= bb.Min.Y && p.Z >= bb.Min.Z &&
		p.X <= bb.Max.X && p.Y <= bb.Max.Y && p.Z <= bb.Max.Z
}

func TestPrimitives(t *testing.T) {
	var bld engrave.Builder
	for _, test := range []struct {
		name string
		s    glbuild.Shader3D
		p    ms3.Vec
		want float32
	}{
		{name: "sphere outside", s: bld.NewSphere(1), p: ms3.Vec{X: 2}, want: 1},
		{name: "sphere center", s: bld.NewSphere(1), p: ms3.Vec{}, want: -1},
		{name: "box face", s: bld.NewBox(2, 4, 6, 0), p: ms3.Vec{Y: 3}, want: 1},
		{name: "box corner", s: bld.NewBox(2, 2, 2, 0), p: ms3.Vec{X: 2, Y: 2}, want: float32(math.Sqrt2)},
		{name: "box inside", s: bld.NewBox(2, 2, 2, 0.1), p: ms3.Vec{}, want: -1},
		{name: "capsule side", s: bld.NewCapsule(ms3.Vec{X: -1}, ms3.Vec{X: 1}, 0.5), p: ms3.Vec{Y: 2}, want: 1.5},
		{name: "capsule cap", s: bld.NewCapsule(ms3.Vec{X: -1}, ms3.Vec{X: 1}, 0.5), p: ms3.Vec{X: 3}, want: 1.5},
		{name: "torus tube center", s: bld.NewTorus(2, 0.5), p: ms3.Vec{X: 2}, want: -0.5},
		{name: "torus axis", s: bld.NewTorus(2, 0.5), p: ms3.Vec{Z: 0}, want: 1.5},
		{name: "torus above tube", s: bld.NewTorus(2, 0.5), p: ms3.Vec{Y: 2, Z: 1}, want: 0.5},
		{name: "cylinder side", s: bld.NewCylinder(1, 2, 0), p: ms3.Vec{X: 3}, want: 2},
		{name: "cylinder top", s: bld.NewCylinder(1, 2, 0), p: ms3.Vec{Z: 2}, want: 1},
		{name: "cylinder center", s: bld.NewCylinder(1, 4, 0.1), p: ms3.Vec{}, want: -1},
	} {
		got := eval3(t, test.s, test.p)[0]
		if math32.Abs(got-test.want) > tol {
			t.Errorf("%s: got %g, want %g", test.name, got, test.want)
		}
		bb := test.s.Bounds()
		if test.want < 0 && !boxContains(bb, test.p) {
			t.Errorf("%s: bounds %+v do not contain interior point %+v", test.name, bb, test.p)
		}
	}
}

func TestOperations(t *testing.T) {
	var bld engrave.Builder
	a := bld.NewSphere(1)
	b := bld.Translate(bld.NewSphere(1), 1.5, 0, 0)
	p := []ms3.Vec{{X: -2}, {X: 0.75}, {X: 3}, {Y: 5}}
	da := eval3(t, a, p...)
	db := eval3(t, b, p...)
	union := eval3(t, bld.Union(a, b), p...)
	diff := eval3(t, bld.Difference(a, b), p...)
	inter := eval3(t, bld.Intersection(a, b), p...)
	smooth := eval3(t, bld.SmoothUnion(0.3, a, b), p...)
	for i := range p {
		if union[i] != min(da[i], db[i]) {
			t.Errorf("union at %v: got %g", p[i], union[i])
		}
		if diff[i] != max(da[i], -db[i]) {
			t.Errorf("difference at %v: got %g", p[i], diff[i])
		}
		if inter[i] != max(da[i], db[i]) {
			t.Errorf("intersection at %v: got %g", p[i], inter[i])
		}
		if smooth[i] > union[i]+tol {
			t.Errorf("smooth union must not exceed union at %v: %g > %g", p[i], smooth[i], union[i])
		}
	}
	// Far from the blend region the smooth union is the union.
	if math32.Abs(smooth[3]-union[3]) > tol {
		t.Errorf("smooth union far from blend: got %g, want %g", smooth[3], union[3])
	}
}

func TestSwapXZ(t *testing.T) {
	var bld engrave.Builder
	cyl := bld.NewCylinder(1, 4, 0)
	swapped := bld.SwapXZ(cyl)
	got := eval3(t, swapped, ms3.Vec{X: 1.5}, ms3.Vec{Z: 1.5})
	if math32.Abs(got[0]+0.5) > tol || math32.Abs(got[1]-0.5) > tol {
		t.Errorf("axis not swapped: %v", got)
	}
	bb := swapped.Bounds()
	if bb.Size().X != 4 || bb.Size().Z != 2 {
		t.Errorf("bad swapped bounds %+v", bb)
	}
}

func TestExtrude(t *testing.T) {
	var bld engrave.Builder
	rect := bld.NewRectangle(2, 2)
	ext := bld.Extrude(rect, 1)
	got := eval3(t, ext, ms3.Vec{}, ms3.Vec{Z: 2}, ms3.Vec{X: 3, Z: 2})
	want := []float32{-0.5, 1.5, 2}
	for i := range want {
		if math32.Abs(got[i]-want[i]) > tol {
			t.Errorf("extrude[%d]: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestExtrudeRounded(t *testing.T) {
	var bld engrave.Builder
	rect := bld.NewRectangle(2, 2)
	ext := bld.ExtrudeRounded(rect, 1)
	got := eval3(t, ext, ms3.Vec{}, ms3.Vec{Z: 2}, ms3.Vec{X: 3, Z: 2})
	// Exterior corner distance is exact, unlike Extrude's max.
	want := []float32{-0.5, 1.5, 2.5}
	for i := range want {
		if math32.Abs(got[i]-want[i]) > tol {
			t.Errorf("rounded extrude[%d]: got %g, want %g", i, got[i], want[i])
		}
	}
	var buf bytes.Buffer
	_, _, _, err := glbuild.NewDefaultProgrammer().WriteSDFDecl(&buf, ext)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "gsdfRoundMax(d, abs(p.z)-h)") {
		t.Errorf("rounded extrusion body not emitted:\n%s", buf.String())
	}
}

func TestEngraveCylinder(t *testing.T) {
	var bld engrave.Builder
	cfg := engrave.DefaultEngraveConfig()
	text := bld.NewRectangle(1, 0.4)
	band := bld.EngraveCylinder(text, cfg)

	// The text origin lies on the surface at angle zero, which is directly above the cylinder axis.
	onSurface := ms3.Vec{X: cfg.VerticalCenter, Y: cfg.Radius - cfg.Offset.Y}
	got := eval3(t, band, onSurface)[0]
	if math32.Abs(got-(-cfg.Depth)) > tol {
		t.Errorf("band at text origin: got %g, want %g", got, -cfg.Depth)
	}
	if !boxContains(band.Bounds(), onSurface) {
		t.Errorf("bounds %+v do not contain text origin", band.Bounds())
	}
	// Outside the shell the band is positive even where text is present.
	got = eval3(t, band, ms3.Vec{X: onSurface.X, Y: onSurface.Y + 1})[0]
	if got <= 0 {
		t.Errorf("band outside shell: got %g, want positive", got)
	}
	// Mirroring flips the sign of the arc coordinate. A text field offset along
	// x is found at opposite angles.
	shifted := bld.Translate2D(text, 1, 0)
	angle := float64(1) / float64(cfg.Radius)
	qx := cfg.Radius * float32(math.Cos(angle))
	qz := cfg.Radius * float32(math.Sin(angle))
	pNeg := ms3.Vec{X: cfg.VerticalCenter, Y: qx - cfg.Offset.Y, Z: -qz}
	pPos := ms3.Vec{X: cfg.VerticalCenter, Y: qx - cfg.Offset.Y, Z: qz}
	normal := eval3(t, bld.EngraveCylinder(shifted, cfg), pNeg, pPos)
	cfg.Mirror = true
	mirrored := eval3(t, bld.EngraveCylinder(shifted, cfg), pNeg, pPos)
	if normal[0] >= 0 || normal[1] <= 0 {
		t.Errorf("unmirrored text at wrong angle: %v", normal)
	}
	if mirrored[1] >= 0 || mirrored[0] <= 0 {
		t.Errorf("mirrored text at wrong angle: %v", mirrored)
	}
}

func TestEngraveFarTextLeavesHost(t *testing.T) {
	var bld engrave.Builder
	cfg := engrave.DefaultEngraveConfig()
	host := bld.Translate(bld.NewSphere(4), 0, -cfg.Offset.Y, 0)
	farText := bld.Translate2D(bld.NewRectangle(0.1, 0.1), 500, 500)
	scene := bld.Engrave(host, farText, cfg)
	pos := []ms3.Vec{{}, {Y: -4.5}, {X: 1, Y: -0.6}, {Z: 10}}
	want := eval3(t, host, pos...)
	got := eval3(t, scene, pos...)
	for i := range pos {
		if got[i] != want[i] {
			t.Errorf("host modified at %v: got %g, want %g", pos[i], got[i], want[i])
		}
	}
}

func TestRectangle2D(t *testing.T) {
	var bld engrave.Builder
	r := bld.Union2D(bld.NewRectangle(2, 2), bld.Translate2D(bld.NewRectangle(2, 2), 4, 0))
	got := eval2(t, r, ms2.Vec{}, ms2.Vec{X: 2}, ms2.Vec{X: 4, Y: 3})
	want := []float32{-1, 1, 2}
	for i := range want {
		if math32.Abs(got[i]-want[i]) > tol {
			t.Errorf("rect[%d]: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestBuilderAccumulatesErrors(t *testing.T) {
	bld := engrave.Builder{NoDimensionPanic: true}
	bld.NewSphere(-1)
	bld.NewBox(1, 1, 0, 0)
	err := bld.Err()
	if err == nil {
		t.Fatal("expected accumulated error")
	}
	if !strings.Contains(err.Error(), "sphere") || !strings.Contains(err.Error(), "box") {
		t.Errorf("missing errors in %q", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic without NoDimensionPanic")
		}
	}()
	var panicky engrave.Builder
	panicky.NewSphere(0)
}

func TestEngraveShader(t *testing.T) {
	var bld engrave.Builder
	cfg := engrave.DefaultEngraveConfig()
	host := bld.Translate(bld.SwapXZ(bld.NewCylinder(4.4, 3, 0)), 0, -cfg.Offset.Y, 0)
	text := bld.Union2D(bld.NewRectangle(1, 0.5), bld.Translate2D(bld.NewRectangle(1, 0.5), 1.2, 0))
	scene := bld.Engrave(host, text, cfg)
	prog := glbuild.NewDefaultProgrammer()
	var buf bytes.Buffer
	name, n, objs, err := prog.WriteSDFDecl(&buf, scene)
	if err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("written %d, buffer has %d", n, buf.Len())
	}
	src := buf.String()
	if !strings.Contains(src, "float "+name+"(vec3 p)") {
		t.Errorf("top level function %q not declared", name)
	}
	if c := strings.Count(src, "float gsdfBox2D("); c != 1 {
		t.Errorf("want helper declared once, got %d", c)
	}
	if c := strings.Count(src, "float gsdfRoundMax("); c != 1 {
		t.Errorf("want helper declared once, got %d", c)
	}
	if len(objs) != 2 {
		t.Errorf("want 2 shader objects, got %d", len(objs))
	}
	if !strings.Contains(src, "atan(q.z, q.x)") {
		t.Error("missing angular mapping in engrave shader")
	}
}
