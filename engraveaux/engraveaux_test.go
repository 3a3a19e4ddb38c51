package engraveaux

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glrender"
)

func TestLoadSceneConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	const src = `
text = "01·02·2025"

[render]
width = 320
height = 200
shading = "flat"
projection = "orthographic"

[export]
param = "uniform"
`
	err := os.WriteFile(path, []byte(src), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadSceneConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultSceneConfig()
	if cfg.Text != "01·02·2025" || cfg.Render.Width != 320 || cfg.Render.Height != 200 {
		t.Errorf("values not loaded: %+v", cfg)
	}
	if cfg.Ring != def.Ring || cfg.Layout != def.Layout || cfg.Export.MaxGlyphs != def.Export.MaxGlyphs {
		t.Error("unset values must keep defaults")
	}
	rc, err := cfg.RaymarchConfig()
	if err != nil || rc.Shading != glrender.ShadeFlat {
		t.Errorf("want flat shading, got %v %v", rc.Shading, err)
	}
	cam, err := cfg.Camera()
	if err != nil || cam.Projection != glrender.Orthographic || cam.OrthoHeight <= 0 {
		t.Errorf("want orthographic camera, got %+v %v", cam, err)
	}
}

func TestLoadSceneConfigErrors(t *testing.T) {
	dir := t.TempDir()
	for i, src := range []string{
		"unknown_key = 1\n",
		"[render]\nshading = \"toon\"\n",
		"[render]\nzoom = 0.0\n",
		"[layout]\nscale = -1.0\n",
		"[preview]\nmax_glyphs = 0\n",
		"text = \n",
	} {
		path := filepath.Join(dir, "bad.toml")
		err := os.WriteFile(path, []byte(src), 0o644)
		if err != nil {
			t.Fatal(err)
		}
		_, err = LoadSceneConfig(path)
		if err == nil {
			t.Errorf("case %d: expected error for %q", i, src)
		}
	}
	_, err := LoadSceneConfig(filepath.Join(dir, "missing.toml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn")
	log.Info("hidden message")
	log.Warn("glyph missing", "rune", "x")
	got := buf.String()
	if strings.Contains(got, "hidden message") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(got, "glyph missing") || !strings.Contains(got, "engrave") {
		t.Errorf("warn record missing or without prefix: %q", got)
	}
}

func TestColorConversionEngraving(t *testing.T) {
	metal := color.RGBA{R: 200, G: 190, B: 170, A: 255}
	groove := color.RGBA{R: 40, G: 35, B: 30, A: 255}
	conv := ColorConversionEngraving(0.1, 0.01, metal, groove)
	lum := func(c color.Color) uint32 {
		r, g, b, _ := c.RGBA()
		return r + g + b
	}
	surface := conv(1)
	rim := conv(0)
	floor := conv(-0.1)
	if lum(surface) <= lum(rim) || lum(rim) <= lum(floor) {
		t.Errorf("engraving must darken inwards: surface=%v rim=%v floor=%v", surface, rim, floor)
	}
	r, g, b, _ := surface.RGBA()
	if absDiff(r>>8, 200) > 1 || absDiff(g>>8, 190) > 1 || absDiff(b>>8, 170) > 1 {
		t.Errorf("surface must be metal color, got %v", surface)
	}
	if conv(float32NaN()) != red {
		t.Error("NaN must map to red")
	}
}

func TestColorConversionLinearGradient(t *testing.T) {
	conv := ColorConversionLinearGradient(2, color.Black, color.White)
	if conv(-5) != color.Black || conv(5) != color.White {
		t.Error("gradient ends must be saturated")
	}
	mid := conv(0).(color.Gray)
	if mid.Y < 100 || mid.Y > 155 {
		t.Errorf("gradient midpoint %d not gray", mid.Y)
	}
	hsv := ColorConversionLinearGradient(2, color.White, red)
	if hsv(-5) != color.White || hsv(5) != red {
		t.Error("colored gradient ends must be saturated")
	}
}

func TestBuildSceneAndRender(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.Text = "12·25·2024"
	cfg.Atlas.Charset = "0123456789·"
	cfg.Render.Width = 24
	cfg.Render.Height = 16
	cfg.Render.Supersample = 2
	cfg.Render.Shading = "flat"
	scene, err := BuildScene(cfg, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(scene.Layout.Glyphs) != 4 || scene.Text.NumGlyphs() != 4 {
		t.Errorf("layout must be truncated to budget, got %d glyphs", len(scene.Layout.Glyphs))
	}
	if !scene.Atlas.HasTexture() {
		t.Fatal("baked atlas without texture")
	}
	img, err := RenderScene(scene.Shape, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 24 || img.Bounds().Dy() != 16 {
		t.Fatalf("downscaled image has size %v", img.Bounds())
	}
	rc, _ := cfg.RaymarchConfig()
	if img.RGBAAt(12, 8) == rc.Background {
		t.Error("center ray must hit the ring")
	}
}

func TestRenderPNGFile(t *testing.T) {
	atlas, err := textsdf.BakeDefaultAtlas("01", textsdf.DefaultBakeConfig())
	if err != nil {
		t.Fatal(err)
	}
	layout, err := textsdf.NewLayout("10", atlas, textsdf.DefaultLayoutConfig())
	if err != nil {
		t.Fatal(err)
	}
	text, err := textsdf.NewTextField(layout, atlas, atlas.FieldConfig())
	if err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(t.TempDir(), "text.png")
	err = RenderPNGFile(filename, text, 32, ColorConversionEngraving(0.05, 0, color.White, color.Black))
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filename)
	if err != nil || info.Size() == 0 {
		t.Errorf("png not written: %v", err)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	err := os.WriteFile(path, []byte("text = \"1\"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var calls atomic.Int32
	rebuilt := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, 20*time.Millisecond, func() error {
			calls.Add(1)
			select {
			case rebuilt <- struct{}{}:
			default:
			}
			return nil
		})
	}()
	<-rebuilt // Initial build.
	err = os.WriteFile(path, []byte("text = \"2\"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-rebuilt:
	case <-ctx.Done():
		t.Fatal("no rebuild after write")
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("want at least 2 calls, got %d", calls.Load())
	}
}

const testHost = `float mapScene(vec3 p) {
	float targetDate = 0.0;
	return length(p) - 1.0;
}

float mapDistance(vec3 p) {
	return mapScene(p);
}
`

func TestExport(t *testing.T) {
	atlas, err := textsdf.BakeDefaultAtlas("0123456789.", textsdf.DefaultBakeConfig())
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultSceneConfig()
	cfg.Export.Date = "12-25-2024"
	a, err := ExportWithAtlas(cfg, []byte(testHost), atlas)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(a.Source), "float targetDate = 1735128000.0;") {
		t.Error("date not spliced as literal")
	}
	if a.Params.DisplayText != "12·25·2024" || a.Params.UnixTime != 1735128000 || a.Params.Resolution[0] != 600 {
		t.Errorf("bad params %+v", a.Params)
	}
	if cfg.ExportName() != "engraved-12-25-2024" {
		t.Errorf("got export name %q", cfg.ExportName())
	}

	cfg.Export.Variable = true
	cfg.Export.Param = "uniform"
	a, err = ExportWithAtlas(cfg, []byte(testHost), atlas)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Params.IsVariable || !strings.Contains(string(a.Source), "float targetDate = uTargetDate;") {
		t.Errorf("variable export not configured: %+v", a.Params)
	}
	cfg.Export.ShiftY = 2.5
	a, err = ExportWithAtlas(cfg, []byte(testHost), atlas)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(a.Source), "\tp.y -= 2.5;\n") {
		t.Error("configured shift not applied to the variable wrapper")
	}

	_, err = ExportWithAtlas(cfg, nil, atlas)
	if err == nil {
		t.Error("expected error without host")
	}
}

func TestWriteExportFlat(t *testing.T) {
	cfg := DefaultSceneConfig()
	cfg.Text = "2024"
	cfg.Atlas.Charset = "0123456789"
	cfg.Engrave.Flat = true
	cfg.Export.OutDir = t.TempDir()
	dir, err := WriteExport(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != "text-2024" {
		t.Errorf("got directory %q", dir)
	}
	for _, name := range []string{"sdf.txt", "texture-declarations.txt", "params.json", "msdf.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
	cfg.Export.Param = "bogus"
	_, err = WriteExport(cfg)
	if err == nil {
		t.Error("expected error for unknown param mode")
	}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func float32NaN() float32 {
	var zero float32
	return zero / zero
}
