package engraveaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"time"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/ring"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/engrave/glrender"
	"golang.org/x/image/draw"
)

// Scene is the engraved scene described by a [SceneConfig].
type Scene struct {
	Atlas  *textsdf.Atlas
	Layout textsdf.Layout
	// Text is the 2D field of Layout.
	Text *textsdf.TextField
	// Shape is the engraved ring, or the extruded text slab when the engraving is flat.
	Shape glbuild.Shader3D
}

// BuildScene loads the atlas, lays out the text and assembles the engraved shape.
// Text beyond maxGlyphs is dropped with a warning.
func BuildScene(cfg SceneConfig, maxGlyphs int) (*Scene, error) {
	atlas, err := cfg.Atlas.LoadAtlas()
	if err != nil {
		return nil, err
	}
	return BuildSceneWithAtlas(cfg, atlas, maxGlyphs)
}

// BuildSceneWithAtlas is [BuildScene] with an already loaded atlas.
func BuildSceneWithAtlas(cfg SceneConfig, atlas *textsdf.Atlas, maxGlyphs int) (*Scene, error) {
	log := engrave.Logger()
	layout, err := textsdf.NewLayout(cfg.Text, atlas, cfg.LayoutConfig())
	if err != nil {
		return nil, err
	}
	layout, dropped := layout.Truncate(maxGlyphs)
	if dropped {
		log.Warn("text truncated to glyph budget", "budget", maxGlyphs, "text", cfg.Text)
	}
	if layout.Empty() {
		log.Info("empty text, scene is the bare host")
	}
	text, err := textsdf.NewTextField(layout, atlas, atlas.FieldConfig())
	if err != nil {
		return nil, err
	}
	bld := engrave.Builder{NoDimensionPanic: true}
	var shape glbuild.Shader3D
	if cfg.Engrave.Flat {
		shape = bld.Extrude(text, 2*cfg.Engrave.Depth)
	} else {
		var host glbuild.Shader3D
		host, err = ring.Signet(&bld, cfg.RingParams())
		if err != nil {
			return nil, err
		}
		shape = bld.Engrave(host, text, cfg.EngraveConfig())
	}
	if err = bld.Err(); err != nil {
		return nil, err
	}
	return &Scene{Atlas: atlas, Layout: layout, Text: text, Shape: shape}, nil
}

// UIConfig configures the live GPU preview window.
type UIConfig struct {
	Width, Height int
	// Context cancels the preview when done. May be nil.
	Context context.Context
	// Atlas provides the texture sampled by text fields in the scene.
	Atlas *textsdf.Atlas
	// CameraDistance is the initial distance to the scene center. Zero uses the bounding box diagonal.
	CameraDistance float32
}

// UI opens a window that raymarches s on the GPU. Drag to orbit and scroll to zoom.
// UI must be called from the main goroutine and requires cgo.
func UI(s glbuild.Shader3D, cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("UI window size must be positive")
	}
	return ui(s, cfg)
}

// RenderScene raymarches the scene's shape from the configured camera. The image is rendered
// at Supersample times the configured size and downscaled.
func RenderScene(s glbuild.Shader3D, cfg SceneConfig) (*image.RGBA, error) {
	rc, err := cfg.RaymarchConfig()
	if err != nil {
		return nil, err
	}
	cam, err := cfg.Camera()
	if err != nil {
		return nil, err
	}
	rm, err := glrender.NewRaymarcher(rc)
	if err != nil {
		return nil, err
	}
	sdf, err := gleval.NewCPUSDF3(s)
	if err != nil {
		return nil, err
	}
	ss := max(1, cfg.Render.Supersample)
	w, h := cfg.Render.Width, cfg.Render.Height
	if w <= 0 || h <= 0 {
		return nil, errors.New("render size must be positive")
	}
	watch := stopwatch()
	full := image.NewRGBA(image.Rect(0, 0, w*ss, h*ss))
	err = rm.Render(sdf, cam, full)
	if err != nil {
		return nil, err
	}
	engrave.Logger().Info("raymarched scene", "width", w*ss, "height", h*ss, "elapsed", watch())
	if ss == 1 {
		return full, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(img, img.Bounds(), full, full.Bounds(), draw.Src, nil)
	return img, nil
}

// RenderScenePNG renders the scene with [RenderScene] and saves it to a PNG file.
func RenderScenePNG(filename string, s glbuild.Shader3D, cfg SceneConfig) error {
	img, err := RenderScene(s, cfg)
	if err != nil {
		return err
	}
	return writePNG(filename, img)
}

// RenderPNGFile renders a 2D SDF as an image and saves result to a PNG file with said filename.
// The image width is sized automatically from the image height argument to preserve SDF aspect ratio.
// If a nil color conversion function is passed then one is automatically chosen.
func RenderPNGFile(filename string, s glbuild.Shader2D, picHeight int, colorConversion func(float32) color.Color) error {
	bb := s.Bounds()
	sz := bb.Size()
	if !(sz.X > 0 && sz.Y > 0) {
		return fmt.Errorf("cannot render %s: empty bounds", filename)
	}
	if colorConversion == nil {
		colorConversion = ColorConversionInigoQuilez(sz.Y / 3)
	}
	pixPerUnit := float64(picHeight) / float64(sz.Y)
	picWidth := int(pixPerUnit * float64(sz.X))
	img := image.NewRGBA(image.Rect(0, 0, picWidth, picHeight))
	renderer, err := glrender.NewImageRendererSDF2(max(4096, picWidth), colorConversion)
	if err != nil {
		return err
	}
	sdf, err := gleval.NewCPUSDF2(s)
	if err != nil {
		return err
	}
	watch := stopwatch()
	err = renderer.Render(sdf, img, nil)
	if err != nil {
		return err
	}
	engrave.Logger().Info("rendered 2D field", "file", filename, "width", picWidth, "height", picHeight, "elapsed", watch())
	return writePNG(filename, img)
}

func writePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
