// Package glexport writes engraved text scenes as static GLSL for offline meshers.
// Mesher environments cannot index arrays with non-constant expressions so every
// glyph is emitted as its own function and the text field is an unrolled chain of calls.
package glexport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glbuild"
)

var (
	// ErrSpliceTargetNotFound is returned when host source lacks the scene entry point or its wrapper.
	ErrSpliceTargetNotFound = errors.New("splice target not found in host source")
	// ErrParamNotFound is returned when host source lacks the date parameter assignment.
	ErrParamNotFound = errors.New("date parameter not found in host source")
	// ErrGlyphBudgetExceeded is returned when a layout has more glyphs than an export allows.
	ErrGlyphBudgetExceeded = errors.New("glyph budget exceeded")
	// ErrInvalidDate is returned by [ParseDate].
	ErrInvalidDate = errors.New("invalid date")
)

const (
	// TextFieldName is the 2D text field function of emitted sources.
	TextFieldName = "textSdf2D"
	// EngravingName is the 3D engraved band function spliced into host scenes.
	EngravingName = "textSdf3D"
)

// TextConfig configures text emission.
type TextConfig struct {
	// MaxGlyphs is the glyph budget. Exports of longer layouts fail.
	MaxGlyphs int
	// Field holds the atlas encoding and the sampler name.
	Field textsdf.FieldConfig
	// DeclareUniforms writes uniform declarations in the text source. Meshers that
	// inject texture bindings at runtime read them from a separate declarations file instead.
	DeclareUniforms bool
}

// DefaultTextConfig returns a budget of 128 glyphs with the default field encoding
// and uniforms left to the declarations file.
func DefaultTextConfig() TextConfig {
	return TextConfig{
		MaxGlyphs: 128,
		Field:     textsdf.DefaultFieldConfig(),
	}
}

// Validate checks the text configuration.
func (cfg TextConfig) Validate() error {
	if cfg.MaxGlyphs <= 0 {
		return fmt.Errorf("glyph budget must be positive, got %d", cfg.MaxGlyphs)
	}
	return cfg.Field.Validate()
}

func (cfg TextConfig) checkBudget(n int) error {
	if n > cfg.MaxGlyphs {
		return fmt.Errorf("%w: %d glyphs, budget %d", ErrGlyphBudgetExceeded, n, cfg.MaxGlyphs)
	}
	return nil
}

// TextSource is generated text GLSL and the uniforms it requires.
type TextSource struct {
	Source []byte
	// Uniforms are the uniform objects referenced by Source, declared or not.
	Uniforms []glbuild.ShaderObject
}

// Declarations returns the GLSL declarations of the source's uniforms.
func (ts TextSource) Declarations() []byte {
	var b []byte
	for _, obj := range ts.Uniforms {
		b, _ = glbuild.AppendShaderObjectDecl(b, obj) // Validated during generation.
	}
	return b
}

// WriteTextField writes the 2D text field of layout as the function textSdf2D along with one
// function per glyph and the defines describing the encoding:
//
//	#define PX_RANGE 8.
//	#define GLYPH_SIZE 48.
//	#define NUM_GLYPHS 3
//
// An empty layout yields a textSdf2D that returns the sentinel distance.
func WriteTextField(w io.Writer, layout textsdf.Layout, cfg TextConfig) (n int, err error) {
	ts, err := TextFieldSource(layout, cfg)
	if err != nil {
		return 0, err
	}
	return w.Write(ts.Source)
}

// TextFieldSource returns the source written by [WriteTextField].
func TextFieldSource(layout textsdf.Layout, cfg TextConfig) (TextSource, error) {
	tf, err := newTextField(layout, cfg)
	if err != nil {
		return TextSource{}, err
	}
	return generate(tf, cfg, len(layout.Glyphs))
}

// EngravingSource returns the text field of layout wrapped around the cylinder of ec as
// the 3D function textSdf3D, the band removed from a host by the splice wrapper.
func EngravingSource(layout textsdf.Layout, ec engrave.EngraveConfig, cfg TextConfig) (TextSource, error) {
	tf, err := newTextField(layout, cfg)
	if err != nil {
		return TextSource{}, err
	}
	return engravingSource(tf, ec, cfg, len(layout.Glyphs))
}

func engravingSource(text glbuild.Shader2D, ec engrave.EngraveConfig, cfg TextConfig, numGlyphs int) (TextSource, error) {
	bld := engrave.Builder{NoDimensionPanic: true}
	band := bld.EngraveCylinder(text, ec)
	if err := bld.Err(); err != nil {
		return TextSource{}, err
	}
	return generate(glbuild.Rename3D(band, EngravingName), cfg, numGlyphs)
}

func newTextField(layout textsdf.Layout, cfg TextConfig) (*textsdf.TextField, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	err = cfg.checkBudget(len(layout.Glyphs))
	if err != nil {
		return nil, err
	}
	// Generation needs no texture, glyph constants are taken from the layout.
	return textsdf.NewTextField(layout, nil, cfg.Field)
}

func generate(root glbuild.Shader, cfg TextConfig, numGlyphs int) (TextSource, error) {
	var buf bytes.Buffer
	buf.Write(appendDefines(nil, cfg.Field, "NUM_GLYPHS", numGlyphs))
	prog := glbuild.NewDefaultProgrammer()
	prog.SetUniformDeclarations(cfg.DeclareUniforms)
	_, _, objs, err := prog.WriteSDFDecl(&buf, root)
	if err != nil {
		return TextSource{}, err
	}
	ts := TextSource{Source: buf.Bytes()}
	for _, obj := range objs {
		if obj.IsUniform() {
			ts.Uniforms = append(ts.Uniforms, obj)
		}
	}
	engrave.Logger().Debug("generated text source", "glyphs", numGlyphs, "bytes", buf.Len())
	return ts, nil
}

func appendDefines(b []byte, fc textsdf.FieldConfig, countName string, count int) []byte {
	b = append(b, "#define PX_RANGE "...)
	b = glbuild.AppendFloat(b, '-', '.', fc.PxRange)
	b = append(b, "\n#define GLYPH_SIZE "...)
	b = glbuild.AppendFloat(b, '-', '.', fc.GlyphSize)
	b = append(b, "\n#define "...)
	b = append(b, countName...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(count), 10)
	b = append(b, '\n')
	return b
}
