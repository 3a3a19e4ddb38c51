package glexport_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/engrave/glexport"
	"github.com/soypat/geometry/ms2"
)

const tol = 1e-5

const host = `uniform float uTime;

float mapScene(vec3 p) {
	float targetDate = 1700000000.0;
	return length(p) - 1.0 - 1e-12*targetDate;
}

float mapDistance(vec3 p) {
	return mapScene(p);
}
`

// unitAtlas returns a textured atlas where every rune of charset has plane [0,0,1,1]
// and samples a square centered in the top left cell.
func unitAtlas(t *testing.T, charset string) *textsdf.Atlas {
	t.Helper()
	atlas, err := textsdf.NewAtlas(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range charset {
		atlas.AddGlyph(textsdf.Glyph{
			Rune:    r,
			Advance: 0.52,
			Plane:   &textsdf.Rect{Left: 0, Bottom: 0, Right: 1, Top: 1},
			Atlas:   &textsdf.Rect{Left: 0, Bottom: 32, Right: 32, Top: 64},
		})
	}
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			dx := math32.Abs(float32(x)+0.5-16) - 8
			dy := math32.Abs(float32(y)+0.5-16) - 8
			v := math32.Min(math32.Max(0.5-math32.Max(dx, dy)/8, 0), 1)
			c := uint8(v*255 + 0.5)
			img.SetNRGBA(x, y, color.NRGBA{R: c, G: c, B: c, A: 255})
		}
	}
	err = atlas.SetTexture(img)
	if err != nil {
		t.Fatal(err)
	}
	return atlas
}

func layout(t *testing.T, text string, atlas *textsdf.Atlas) textsdf.Layout {
	t.Helper()
	L, err := textsdf.NewLayout(text, atlas, textsdf.DefaultLayoutConfig())
	if err != nil {
		t.Fatal(err)
	}
	return L
}

func TestTextFieldSource(t *testing.T) {
	atlas := unitAtlas(t, "0123456789.")
	cfg := glexport.DefaultTextConfig()
	for _, text := range []string{"", "0", "12·25·2024", "1 2\n34"} {
		L := layout(t, text, atlas)
		n := len(L.Glyphs)
		var buf bytes.Buffer
		_, err := glexport.WriteTextField(&buf, L, cfg)
		if err != nil {
			t.Fatalf("%q: %s", text, err)
		}
		src := buf.String()
		if c := strings.Count(src, "float glyphSdf_"); c != n {
			t.Errorf("%q: want %d glyph functions, got %d", text, n, c)
		}
		if c := strings.Count(src, "d=min(d,glyphSdf_"); c != n {
			t.Errorf("%q: want %d unrolled calls, got %d", text, n, c)
		}
		if !strings.Contains(src, "#define NUM_GLYPHS "+strconv.Itoa(n)+"\n") {
			t.Errorf("%q: missing glyph count define", text)
		}
		if !strings.Contains(src, "#define PX_RANGE 8.\n#define GLYPH_SIZE 48.\n") {
			t.Errorf("%q: missing encoding defines", text)
		}
		if !strings.Contains(src, "float textSdf2D(vec2 p){\nfloat d=1000.;\n") {
			t.Errorf("%q: text field must start from the sentinel:\n%s", text, src)
		}
		if strings.Contains(src, "uniform ") {
			t.Errorf("%q: uniforms must be left to the declarations file", text)
		}
		ts, err := glexport.TextFieldSource(L, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			if len(ts.Uniforms) != 0 {
				t.Errorf("empty layout must not reference the texture")
			}
			continue
		}
		if string(ts.Declarations()) != glexport.DefaultDeclarations {
			t.Errorf("%q: got declarations %q", text, ts.Declarations())
		}
	}
}

func TestTextFieldDeclareUniforms(t *testing.T) {
	atlas := unitAtlas(t, "01")
	cfg := glexport.DefaultTextConfig()
	cfg.DeclareUniforms = true
	ts, err := glexport.TextFieldSource(layout(t, "10", atlas), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c := strings.Count(string(ts.Source), "uniform sampler2D uMsdfTexture;"); c != 1 {
		t.Errorf("want the sampler declared once, got %d", c)
	}
}

func TestGlyphBudget(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	cfg := glexport.DefaultTextConfig()
	cfg.MaxGlyphs = 3
	L := layout(t, "1234", atlas)
	_, err := glexport.TextFieldSource(L, cfg)
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("text field: want budget error, got %v", err)
	}
	_, err = glexport.EngravingSource(L, engrave.DefaultEngraveConfig(), cfg)
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("engraving: want budget error, got %v", err)
	}
	_, err = glexport.FlatSource(L, 0.15, cfg)
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("flat: want budget error, got %v", err)
	}
	_, err = glexport.ExportRing([]byte(host), L, atlas, engrave.DefaultEngraveConfig(), glexport.LiteralParam(0), cfg)
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("ring export: want budget error, got %v", err)
	}
	_, err = glexport.PackGlyphUniforms(L, atlas, 3)
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("uniforms: want budget error, got %v", err)
	}
	// Budget is inclusive.
	_, err = glexport.TextFieldSource(layout(t, "123", atlas), cfg)
	if err != nil {
		t.Error(err)
	}
}

func TestEngravingSource(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	ts, err := glexport.EngravingSource(layout(t, "2024", atlas), engrave.DefaultEngraveConfig(), glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	src := string(ts.Source)
	if !strings.Contains(src, "float textSdf3D(vec3 p){") {
		t.Error("missing engraving entry point")
	}
	// The band depends on the text field so it must be written after it.
	if strings.Index(src, "float textSdf2D(") > strings.Index(src, "float textSdf3D(") {
		t.Error("text field written after its user")
	}
}

func TestSplice(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	ec := engrave.DefaultEngraveConfig()
	cfg := glexport.DefaultTextConfig()
	first, err := glexport.EngravingSource(layout(t, "12", atlas), ec, cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := glexport.EngravingSource(layout(t, "345", atlas), ec, cfg)
	if err != nil {
		t.Fatal(err)
	}
	d, err := glexport.ParseDate("12-25-2024")
	if err != nil {
		t.Fatal(err)
	}
	out, err := glexport.Splice([]byte(host), first.Source, glexport.LiteralParam(d.Unix))
	if err != nil {
		t.Fatal(err)
	}
	src := string(out)
	if !strings.Contains(src, "float targetDate = 1735128000.0;") {
		t.Error("date literal not replaced")
	}
	if strings.Index(src, "float textSdf3D(") > strings.Index(src, "float mapScene(") {
		t.Error("text must be inserted before mapScene")
	}
	for _, want := range []string{"float dRing = mapScene(p);", "float dText = textSdf3D(p);", "return max(dRing, -dText);"} {
		if !strings.Contains(src, want) {
			t.Errorf("wrapper missing %q", want)
		}
	}
	if strings.Contains(src, "return mapScene(p);") {
		t.Error("original wrapper left in source")
	}

	again, err := glexport.Splice(out, first.Source, glexport.LiteralParam(d.Unix))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, out) {
		t.Error("splicing twice must be idempotent")
	}
	replaced, err := glexport.Splice(out, second.Source, glexport.LiteralParam(d.Unix))
	if err != nil {
		t.Fatal(err)
	}
	if c := strings.Count(string(replaced), "float textSdf3D("); c != 1 {
		t.Errorf("want a single engraving after re-splicing, got %d", c)
	}
	if c := strings.Count(string(replaced), "float glyphSdf_"); c != 3 {
		t.Errorf("want the second text's 3 glyphs, got %d", c)
	}
}

func TestSpliceUniformParam(t *testing.T) {
	text := []byte("float textSdf3D(vec3 p){\nreturn 1000.;\n}\n")
	out, err := glexport.Splice([]byte(host), text, glexport.UniformParam())
	if err != nil {
		t.Fatal(err)
	}
	out, err = glexport.Splice(out, text, glexport.UniformParam())
	if err != nil {
		t.Fatal(err)
	}
	src := string(out)
	if !strings.Contains(src, "float targetDate = uTargetDate;") {
		t.Error("date not read from uniform")
	}
	if c := strings.Count(src, "uniform float uTargetDate;"); c != 1 {
		t.Errorf("want one uniform declaration, got %d", c)
	}
	if strings.Index(src, "uniform float uTargetDate;") > strings.Index(src, "float mapScene(") {
		t.Error("uniform declared after its use in mapScene")
	}
	// Switching back to a literal keeps a single text block.
	out, err = glexport.Splice(out, text, glexport.LiteralParam(86400))
	if err != nil {
		t.Fatal(err)
	}
	src = string(out)
	if !strings.Contains(src, "float targetDate = 86400.0;") || strings.Contains(src, "uTargetDate") {
		t.Errorf("literal not restored:\n%s", src)
	}
}

func TestSpliceErrors(t *testing.T) {
	text := []byte("float textSdf3D(vec3 p){\nreturn 1000.;\n}\n")
	param := glexport.LiteralParam(0)
	for _, test := range []struct {
		host string
		want error
	}{
		{strings.Replace(host, "float targetDate = 1700000000.0;", "", 1), glexport.ErrParamNotFound},
		{strings.Replace(host, "float mapScene(vec3 p) {", "float scene(vec3 p) {", 1), glexport.ErrSpliceTargetNotFound},
		{strings.Replace(host, "return mapScene(p);", "return mapScene(p) - 0.1;", 1), glexport.ErrSpliceTargetNotFound},
		{host + "// engrave:text-begin\n", glexport.ErrSpliceTargetNotFound},
	} {
		_, err := glexport.Splice([]byte(test.host), text, param)
		if !errors.Is(err, test.want) {
			t.Errorf("want %v, got %v for host:\n%s", test.want, err, test.host)
		}
	}
}

func TestFlatSource(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	var buf bytes.Buffer
	_, err := glexport.WriteFlatText(&buf, layout(t, "42", atlas), 0.15, glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	if !strings.Contains(src, "float mapDistance(vec3 p){") {
		t.Error("missing mesher entry point")
	}
	if !strings.Contains(src, "gsdfRoundMax(d, abs(p.z)-h)") || !strings.Contains(src, "float h=0.15;") {
		t.Errorf("slab not extruded with rounded intersection:\n%s", src)
	}
	_, err = glexport.FlatSource(layout(t, "42", atlas), 0, glexport.DefaultTextConfig())
	if err == nil {
		t.Error("expected error for zero depth")
	}
}

func TestGlyphDispatchField(t *testing.T) {
	atlas := unitAtlas(t, "0123456789.")
	lcfg := textsdf.DefaultLayoutConfig()
	const text = "12·25·2024"
	df, err := glexport.NewGlyphDispatchField(atlas, 10, lcfg, atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	df.Indices, err = df.IndicesFor(text)
	if err != nil {
		t.Fatal(err)
	}
	static, err := textsdf.NewTextField(layout(t, text, atlas), atlas, atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	var pos []ms2.Vec
	for x := float32(-3); x <= 3; x += 0.05 {
		for _, y := range []float32{-0.2, 0.3, 0.5, 0.9} {
			pos = append(pos, ms2.Vec{X: x, Y: y})
		}
	}
	got := make([]float32, len(pos))
	want := make([]float32, len(pos))
	vp := &gleval.VecPool{}
	err = df.Evaluate(pos, got, vp)
	if err != nil {
		t.Fatal(err)
	}
	err = static.Evaluate(pos, want, vp)
	if err != nil {
		t.Fatal(err)
	}
	for i := range got {
		if math32.Abs(got[i]-want[i]) > tol {
			t.Fatalf("dispatch at %v: got %g, static layout %g", pos[i], got[i], want[i])
		}
	}

	ts, err := glexport.VariableSource(df, engrave.DefaultEngraveConfig(), glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	src := string(ts.Source)
	if !strings.HasPrefix(src, "#define NUM_POSITIONS 10\n") {
		t.Error("missing position count define")
	}
	if c := strings.Count(src, "float glyphSdf_"); c != 11 {
		t.Errorf("want one function per dispatch glyph, got %d", c)
	}
	if !strings.Contains(src, "if(idx==0)g=glyphSdf_0(q);") || !strings.Contains(src, "else if(idx==10)g=glyphSdf_10(q);") {
		t.Errorf("dispatch chain malformed:\n%s", src)
	}
	if !strings.Contains(string(ts.Declarations()), "uniform int uGlyphIndices[10];") {
		t.Errorf("missing index uniform in %q", ts.Declarations())
	}
}

func TestGlyphDispatchIndices(t *testing.T) {
	atlas := unitAtlas(t, "0123456789.")
	df, err := glexport.NewGlyphDispatchField(atlas, 4, textsdf.DefaultLayoutConfig(), atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	idx, err := df.IndicesFor("1 ·")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, -1, 10, -1}
	for i := range want {
		if idx[i] != want[i] {
			t.Fatalf("got indices %v, want %v", idx, want)
		}
	}
	if m := df.GlyphMap(); len(m) != 11 || m["·"] != 10 || m["0"] != 0 {
		t.Errorf("bad glyph map %v", m)
	}
	_, err = df.IndicesFor("12345")
	if !errors.Is(err, glexport.ErrGlyphBudgetExceeded) {
		t.Errorf("want budget error, got %v", err)
	}
	_, err = df.IndicesFor("A")
	if !errors.Is(err, textsdf.ErrGlyphNotFound) {
		t.Errorf("want missing glyph error, got %v", err)
	}
	_, err = glexport.NewGlyphDispatchField(unitAtlas(t, "0123"), 4, textsdf.DefaultLayoutConfig(), atlas.FieldConfig())
	if !errors.Is(err, textsdf.ErrGlyphNotFound) {
		t.Errorf("incomplete atlas: want missing glyph error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	for _, test := range []struct {
		in      string
		unix    int64
		display string
	}{
		{"12-25-2024", 1735128000, "12·25·2024"},
		{"1-2-2025", 1735819200, "01·02·2025"},
		{"01-01-1970", 43200, "01·01·1970"},
	} {
		d, err := glexport.ParseDate(test.in)
		if err != nil {
			t.Errorf("%q: %s", test.in, err)
			continue
		}
		if d.Unix != test.unix || d.Display != test.display {
			t.Errorf("%q: got %d %q, want %d %q", test.in, d.Unix, d.Display, test.unix, test.display)
		}
	}
	for _, bad := range []string{"", "2024-12-25", "13-01-2024", "0-10-2024", "12-32-2024", "12-0-2024", "12-25-0000", "12-25-3001", "12/25/2024", "12-25-24"} {
		_, err := glexport.ParseDate(bad)
		if !errors.Is(err, glexport.ErrInvalidDate) {
			t.Errorf("%q: want invalid date, got %v", bad, err)
		}
	}
}

func TestFlatParams(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	L := layout(t, "0123", atlas)
	p, err := glexport.FlatParams(L, 0.15, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := [3]float32{4*0.52 + 0.2, 1 + 0.2, 2*0.15 + 0.1}
	for i := range want {
		if math32.Abs(p.Size[i]-want[i]) > tol {
			t.Errorf("size[%d]: got %g, want %g", i, p.Size[i], want[i])
		}
		if wantRes := int(math32.Ceil(p.Size[i] * glexport.FlatResolution)); p.Resolution[i] != wantRes {
			t.Errorf("resolution[%d]: got %d, want %d", i, p.Resolution[i], wantRes)
		}
	}
	if p.Center == nil || math32.Abs(p.Center[1]-0.5) > tol {
		t.Errorf("bad center %v", p.Center)
	}
	_, err = glexport.FlatParams(layout(t, "", atlas), 0.15, 0)
	if err == nil {
		t.Error("expected error for empty layout")
	}

	gu, err := glexport.PackGlyphUniforms(L, atlas, 8)
	if err != nil {
		t.Fatal(err)
	}
	if gu.NumGlyphs != 4 || len(gu.GlyphUV) != 8 || len(gu.GlyphPlane) != 8 || gu.AtlasSize != [2]int{64, 64} {
		t.Errorf("bad packing %+v", gu)
	}
	if gu.GlyphPlane[0] != [4]float32{0, 0, 1, 1} || gu.GlyphPlane[7] != [4]float32{} {
		t.Errorf("bad plane slots %v", gu.GlyphPlane)
	}
	// Texture rows are flipped: atlas pixels [32,64] map to v in [0,0.5].
	if gu.GlyphUV[0] != [4]float32{0, 0, 0.5, 0.5} {
		t.Errorf("bad uv slot %v", gu.GlyphUV[0])
	}
}

func TestParamsJSON(t *testing.T) {
	p := glexport.RingParams(0, 0)
	d, err := glexport.ParseDate("02-14-2025")
	if err != nil {
		t.Fatal(err)
	}
	p.SetDate(d)
	b, err := p.MarshalIndent()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	err = json.Unmarshal(b, &doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"size", "resolution", "hasTexture", "date", "unixTime", "displayText", "exportId"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q in %s", key, b)
		}
	}
	for _, key := range []string{"center", "isVariable", "glyphMap", "uniforms"} {
		if _, ok := doc[key]; ok {
			t.Errorf("unset key %q present", key)
		}
	}
	if p.Size != [3]float32{12, 12, 12} || p.Resolution != [3]int{600, 600, 600} {
		t.Errorf("bad ring defaults %v %v", p.Size, p.Resolution)
	}
	if doc["displayText"] != "02·14·2025" || doc["date"] != "02-14-2025" {
		t.Errorf("bad date fields %v %v", doc["displayText"], doc["date"])
	}
	id, err := uuid.Parse(p.ExportID)
	if err != nil || id.Version() != 4 {
		t.Errorf("export id %q not a v4 UUID: %v", p.ExportID, err)
	}
	if glexport.RingParams(0, 0).ExportID == p.ExportID {
		t.Error("export ids must be unique")
	}
}

func TestWriteArtifacts(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	a, err := glexport.ExportRing([]byte(host), layout(t, "1225", atlas), atlas, engrave.DefaultEngraveConfig(), glexport.LiteralParam(1735128000), glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	err = glexport.WriteArtifacts(dir, a)
	if err != nil {
		t.Fatal(err)
	}
	read := func(name string) []byte {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		return b
	}
	src := string(read(glexport.SourceFile))
	if !strings.Contains(src, "float textSdf3D(") || strings.Contains(src, "uniform sampler2D") {
		t.Error("source must hold the engraving without texture declarations")
	}
	if decl := string(read(glexport.DeclarationsFile)); decl != "uniform sampler2D uMsdfTexture;\n" {
		t.Errorf("got declarations %q", decl)
	}
	var p glexport.Params
	err = json.Unmarshal(read(glexport.ParamsFile), &p)
	if err != nil {
		t.Fatal(err)
	}
	if !p.HasTexture || p.UnixTime != 1735128000 || p.ExportID == "" {
		t.Errorf("bad params %+v", p)
	}
	img, err := png.Decode(bytes.NewReader(read(glexport.TextureFile)))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("texture has size %v", img.Bounds())
	}
}

func TestWriteArtifactsNothingOnFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	err := glexport.WriteArtifacts(dir, glexport.Artifacts{Params: glexport.RingParams(0, 0)})
	if err == nil {
		t.Fatal("expected error for empty source")
	}
	err = glexport.WriteArtifacts(dir, glexport.Artifacts{
		Source:      []byte("float mapDistance(vec3 p){return 1.;}"),
		Params:      glexport.RingParams(0, 0),
		TexturePath: filepath.Join(t.TempDir(), "missing.png"),
	})
	if err == nil {
		t.Fatal("expected error for missing texture")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("output directory created on failure: %v", err)
	}
}

func TestExportFlatAndVariable(t *testing.T) {
	atlas := unitAtlas(t, "0123456789.")
	cfg := glexport.DefaultTextConfig()
	a, err := glexport.ExportFlat(layout(t, "07", atlas), atlas, 0.15, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Params.Uniforms == nil || a.Params.Uniforms.NumGlyphs != 2 || len(a.Params.Uniforms.GlyphUV) != cfg.MaxGlyphs {
		t.Errorf("flat export uniforms not packed: %+v", a.Params.Uniforms)
	}
	if a.Params.DisplayText != "07" {
		t.Errorf("got display text %q", a.Params.DisplayText)
	}

	df, err := glexport.NewGlyphDispatchField(atlas, 10, textsdf.DefaultLayoutConfig(), atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	a, err = glexport.ExportVariableRing([]byte(host), df, atlas, engrave.DefaultEngraveConfig(), glexport.UniformParam(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Params.IsVariable || a.Params.GlyphMap["·"] != 10 {
		t.Errorf("variable params not set: %+v", a.Params)
	}
	if !strings.Contains(string(a.Declarations), "uniform int uGlyphIndices[10];") {
		t.Errorf("got declarations %q", a.Declarations)
	}

	bare, err := textsdf.NewAtlas(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	_, err = glexport.ExportFlat(layout(t, "07", atlas), bare, 0.15, cfg)
	if !errors.Is(err, textsdf.ErrNoTexture) {
		t.Errorf("want missing texture error, got %v", err)
	}
}

func TestExportRingSampling(t *testing.T) {
	atlas := unitAtlas(t, "0123456789")
	a, err := glexport.ExportRing([]byte(host), layout(t, "7", atlas), atlas, engrave.DefaultEngraveConfig(), glexport.LiteralParam(0), glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	src := string(a.Source)
	if !strings.Contains(src, "texture2D(uMsdfTexture,") {
		t.Error("exported source must sample with texture2D")
	}
	if strings.Contains(src, " texture(") {
		t.Error("exported source uses texture(), unavailable in GLSL ES 1.00")
	}
	// Atlas cell bottom=32 top=64 of 64 rows: vBottom=0 at the plane bottom, vTop=0.5 at the top.
	if !strings.Contains(src, "vec2(0.,0.),vec2(0.5,0.5));") {
		t.Errorf("plane corners not mapped to vBottom/vTop:\n%s", src)
	}
}

func TestSpliceShifted(t *testing.T) {
	text := []byte("float textSdf3D(vec3 p){\nreturn 1000.;\n}\n")
	out, err := glexport.SpliceShifted([]byte(host), text, glexport.LiteralParam(0), 4)
	if err != nil {
		t.Fatal(err)
	}
	const shifted = "float mapDistance(vec3 p) {\n\tp.y -= 4.0;\n\tfloat dRing = mapScene(p);"
	if !strings.Contains(string(out), shifted) {
		t.Errorf("wrapper not shifted:\n%s", out)
	}
	// Re-splicing without shift restores the plain wrapper.
	out, err = glexport.Splice(out, text, glexport.LiteralParam(0))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "p.y -=") || strings.Count(string(out), "float mapDistance(") != 1 {
		t.Errorf("shift not removed:\n%s", out)
	}

	atlas := unitAtlas(t, "0123456789.")
	df, err := glexport.NewGlyphDispatchField(atlas, 10, textsdf.DefaultLayoutConfig(), atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	a, err := glexport.ExportVariableRing([]byte(host), df, atlas, engrave.DefaultEngraveConfig(), glexport.UniformParam(), glexport.DefaultTextConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(a.Source), "\tp.y -= 4.0;\n") {
		t.Error("variable ring not recentered by default")
	}
}

func TestSpliceDateLiteralOnly(t *testing.T) {
	text := []byte("float textSdf3D(vec3 p){\nreturn 1000.;\n}\n")
	for _, assign := range []string{
		"float targetDate = uTargetDate;",
		"const float targetDate = 1700000000.0;",
		"float targetDate = someDate;",
	} {
		h := strings.Replace(host, "float targetDate = 1700000000.0;", assign, 1)
		_, err := glexport.Splice([]byte(h), text, glexport.LiteralParam(0))
		if !errors.Is(err, glexport.ErrParamNotFound) {
			t.Errorf("%q: want ErrParamNotFound, got %v", assign, err)
		}
	}
	for _, lit := range []string{"1700000000.0", "-12.5", "1.7e9", "42"} {
		h := strings.Replace(host, "1700000000.0", lit, 1)
		out, err := glexport.Splice([]byte(h), text, glexport.LiteralParam(86400))
		if err != nil {
			t.Fatalf("%s: %v", lit, err)
		}
		if !strings.Contains(string(out), "float targetDate = 86400.0;") {
			t.Errorf("%s: literal not replaced", lit)
		}
	}
}
