package engraveaux

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/ring"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glexport"
	"github.com/soypat/engrave/glrender"
	"github.com/soypat/geometry/ms3"
)

// SceneConfig is the file configuration of the engrave commands. Every field
// has a default so a config file only needs the values it changes.
type SceneConfig struct {
	Text     string         `toml:"text"`
	LogLevel string         `toml:"log_level"`
	Atlas    AtlasConfig    `toml:"atlas"`
	Layout   LayoutSection  `toml:"layout"`
	Engrave  EngraveSection `toml:"engrave"`
	Ring     RingSection    `toml:"ring"`
	Render   RenderSection  `toml:"render"`
	Preview  PreviewSection `toml:"preview"`
	Export   ExportSection  `toml:"export"`
}

// AtlasConfig selects the glyph atlas source. JSON takes precedence over BMFont.
// With neither set an atlas is baked from the built in font.
type AtlasConfig struct {
	JSON    string `toml:"json"`
	Texture string `toml:"texture"`
	BMFont  string `toml:"bmfont"`
	Charset string `toml:"charset"`
}

type LayoutSection struct {
	Scale         float32 `toml:"scale"`
	LineHeight    float32 `toml:"line_height"`
	OpticalCenter float32 `toml:"optical_center"`
	AdvanceRatio  float32 `toml:"advance_ratio"`
}

type EngraveSection struct {
	Depth          float32 `toml:"depth"`
	VerticalCenter float32 `toml:"vertical_center"`
	Mirror         bool    `toml:"mirror"`
	Flat           bool    `toml:"flat"`
}

type RingSection struct {
	InnerRadius  float32 `toml:"inner_radius"`
	Thickness    float32 `toml:"thickness"`
	Width        float32 `toml:"width"`
	SignetWidth  float32 `toml:"signet_width"`
	SignetHeight float32 `toml:"signet_height"`
	Blend        float32 `toml:"blend"`
	AxisDepth    float32 `toml:"axis_depth"`
}

type RenderSection struct {
	Width          int        `toml:"width"`
	Height         int        `toml:"height"`
	Supersample    int        `toml:"supersample"`
	MaxSteps       int        `toml:"max_steps"`
	MaxDistance    float32    `toml:"max_distance"`
	SurfaceEpsilon float32    `toml:"surface_epsilon"`
	StepDamping    float32    `toml:"step_damping"`
	Workers        int        `toml:"workers"`
	Shading        string     `toml:"shading"`    // "lit" or "flat"
	Projection     string     `toml:"projection"` // "perspective" or "orthographic"
	Zoom           float32    `toml:"zoom"`
	Camera         [3]float32 `toml:"camera"`
}

type PreviewSection struct {
	// MaxGlyphs truncates preview text. Excess glyphs are dropped with a warning.
	MaxGlyphs int `toml:"max_glyphs"`
}

type ExportSection struct {
	OutDir string `toml:"out_dir"`
	// Name is the artifact directory inside OutDir. Defaults to a name derived from the date.
	Name string `toml:"name"`
	// Host is the scene GLSL the text is spliced into. Unused by flat exports.
	Host string `toml:"host"`
	// Date in mm-dd-yyyy form. When set its display form replaces the text.
	Date      string `toml:"date"`
	Param     string `toml:"param"` // "literal" or "uniform"
	MaxGlyphs int    `toml:"max_glyphs"`
	// Variable exports select glyphs at mesh time through a fixed number of positions.
	Variable   bool    `toml:"variable"`
	Positions  int     `toml:"positions"`
	// ShiftY moves the host scene down in variable exports.
	ShiftY     float32 `toml:"shift_y"`
	Size       float32 `toml:"size"`
	Resolution int     `toml:"resolution"`
	// FlatDepth is the extrusion to each side of flat text exports.
	FlatDepth float32 `toml:"flat_depth"`
}

// DefaultSceneConfig returns the configuration of the reference ring scene.
func DefaultSceneConfig() SceneConfig {
	lc := textsdf.DefaultLayoutConfig()
	ec := engrave.DefaultEngraveConfig()
	rp := ring.DefaultParams()
	rc := glrender.DefaultRaymarchConfig()
	return SceneConfig{
		Text:     "12·25·2024",
		LogLevel: "info",
		Atlas:    AtlasConfig{Charset: textsdf.DefaultCharset},
		Layout: LayoutSection{
			Scale:         lc.Scale,
			LineHeight:    lc.LineHeight,
			OpticalCenter: lc.OpticalCenter,
			AdvanceRatio:  lc.AdvanceRatio,
		},
		Engrave: EngraveSection{Depth: ec.Depth, VerticalCenter: ec.VerticalCenter},
		Ring: RingSection{
			InnerRadius:  rp.InnerRadius,
			Thickness:    rp.Thickness,
			Width:        rp.Width,
			SignetWidth:  rp.SignetWidth,
			SignetHeight: rp.SignetHeight,
			Blend:        rp.Blend,
			AxisDepth:    rp.AxisDepth,
		},
		Render: RenderSection{
			Width:          640,
			Height:         480,
			Supersample:    2,
			MaxSteps:       rc.MaxSteps,
			MaxDistance:    rc.MaxDistance,
			SurfaceEpsilon: rc.SurfaceEpsilon,
			StepDamping:    rc.StepDamping,
			Shading:        "lit",
			Projection:     "perspective",
			Zoom:           1,
			Camera:         [3]float32{12, -2, 2},
		},
		Preview: PreviewSection{MaxGlyphs: 64},
		Export: ExportSection{
			OutDir:     "out",
			Param:      "literal",
			MaxGlyphs:  128,
			Positions:  10,
			ShiftY:     glexport.VariableShiftY,
			Size:       glexport.RingSize,
			Resolution: glexport.RingResolution,
			FlatDepth:  0.15,
		},
	}
}

// LoadSceneConfig reads a TOML scene configuration over the defaults. Unknown keys are an error.
func LoadSceneConfig(path string) (SceneConfig, error) {
	cfg := DefaultSceneConfig()
	fp, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer fp.Close()
	dec := toml.NewDecoder(fp)
	dec.DisallowUnknownFields()
	err = dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks all sections convert to valid configurations.
func (sc SceneConfig) Validate() error {
	var errs []error
	errs = append(errs, sc.LayoutConfig().Validate())
	errs = append(errs, sc.RingParams().Validate())
	errs = append(errs, sc.EngraveConfig().Validate())
	rc, err := sc.RaymarchConfig()
	errs = append(errs, err)
	if err == nil {
		errs = append(errs, rc.Validate())
	}
	_, err = sc.Camera()
	errs = append(errs, err)
	if sc.Render.Width <= 0 || sc.Render.Height <= 0 || sc.Render.Supersample < 1 {
		errs = append(errs, errors.New("render size and supersample must be positive"))
	}
	if sc.Preview.MaxGlyphs <= 0 || sc.Export.MaxGlyphs <= 0 {
		errs = append(errs, errors.New("glyph budgets must be positive"))
	}
	_, err = sc.Parameter(0)
	errs = append(errs, err)
	if sc.Export.Positions <= 0 || sc.Export.Size <= 0 || sc.Export.Resolution <= 0 || sc.Export.FlatDepth <= 0 {
		errs = append(errs, errors.New("export positions, size, resolution and depth must be positive"))
	}
	if sc.Export.Date != "" {
		_, err = glexport.ParseDate(sc.Export.Date)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (sc SceneConfig) LayoutConfig() textsdf.LayoutConfig {
	return textsdf.LayoutConfig{
		Scale:         sc.Layout.Scale,
		LineHeight:    sc.Layout.LineHeight,
		OpticalCenter: sc.Layout.OpticalCenter,
		AdvanceRatio:  sc.Layout.AdvanceRatio,
	}
}

func (sc SceneConfig) RingParams() ring.Params {
	p := ring.DefaultParams()
	p.InnerRadius = sc.Ring.InnerRadius
	p.Thickness = sc.Ring.Thickness
	p.Width = sc.Ring.Width
	p.SignetWidth = sc.Ring.SignetWidth
	p.SignetHeight = sc.Ring.SignetHeight
	p.Blend = sc.Ring.Blend
	p.AxisDepth = sc.Ring.AxisDepth
	return p
}

// EngraveConfig returns the engraving on the inner surface of the configured ring.
func (sc SceneConfig) EngraveConfig() engrave.EngraveConfig {
	ec := sc.RingParams().EngraveConfig()
	ec.Depth = sc.Engrave.Depth
	ec.VerticalCenter = sc.Engrave.VerticalCenter
	ec.Mirror = sc.Engrave.Mirror
	return ec
}

// Parameter returns the date parameter of ring exports for the given unix time.
func (sc SceneConfig) Parameter(unixTime int64) (glexport.Parameter, error) {
	switch sc.Export.Param {
	case "literal", "":
		return glexport.LiteralParam(unixTime), nil
	case "uniform":
		return glexport.UniformParam(), nil
	}
	return glexport.Parameter{}, fmt.Errorf("unknown export param %q", sc.Export.Param)
}

// TextConfig returns the export text configuration for glyphs of atlas.
func (sc SceneConfig) TextConfig(atlas *textsdf.Atlas) glexport.TextConfig {
	tc := glexport.DefaultTextConfig()
	tc.MaxGlyphs = sc.Export.MaxGlyphs
	tc.Field = atlas.FieldConfig()
	return tc
}

func (sc SceneConfig) RaymarchConfig() (glrender.RaymarchConfig, error) {
	rc := glrender.DefaultRaymarchConfig()
	rc.MaxSteps = sc.Render.MaxSteps
	rc.MaxDistance = sc.Render.MaxDistance
	rc.SurfaceEpsilon = sc.Render.SurfaceEpsilon
	rc.StepDamping = sc.Render.StepDamping
	rc.Workers = sc.Render.Workers
	switch sc.Render.Shading {
	case "lit", "":
		rc.Shading = glrender.ShadeLit
	case "flat":
		rc.Shading = glrender.ShadeFlat
	default:
		return rc, fmt.Errorf("unknown shading %q", sc.Render.Shading)
	}
	return rc, nil
}

func (sc SceneConfig) Camera() (glrender.Camera, error) {
	cam := glrender.DefaultCamera(sc.Render.Zoom)
	if sc.Render.Zoom <= 0 {
		return cam, errors.New("zoom must be positive")
	}
	pos := sc.Render.Camera
	cam.Position = ms3.Scale(1/sc.Render.Zoom, ms3.Vec{X: pos[0], Y: pos[1], Z: pos[2]})
	switch sc.Render.Projection {
	case "perspective", "":
		cam.Projection = glrender.Perspective
	case "orthographic", "ortho":
		cam.Projection = glrender.Orthographic
		cam.OrthoHeight = ms3.Norm(cam.Position)
	default:
		return cam, fmt.Errorf("unknown projection %q", sc.Render.Projection)
	}
	return cam, cam.Validate()
}

// LoadAtlas loads the configured atlas source, baking one from the built in font if none is set.
func (ac AtlasConfig) LoadAtlas() (*textsdf.Atlas, error) {
	switch {
	case ac.JSON != "":
		atlas, err := textsdf.LoadAtlasJSON(ac.JSON)
		if err != nil {
			return nil, err
		}
		if ac.Texture != "" {
			err = atlas.LoadTexture(ac.Texture)
			if err != nil {
				return nil, err
			}
		}
		return atlas, nil
	case ac.BMFont != "":
		return textsdf.LoadBMFont(ac.BMFont)
	}
	charset := ac.Charset
	if charset == "" {
		charset = textsdf.DefaultCharset
	}
	return textsdf.BakeDefaultAtlas(charset, textsdf.DefaultBakeConfig())
}
