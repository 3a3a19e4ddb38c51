package glexport

import (
	"fmt"
	"io"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/forge/textsdf"
	"github.com/soypat/engrave/glbuild"
)

// FlatName is the scene function of flat text exports.
const FlatName = "mapDistance"

// WriteFlatText writes the text field of layout extruded depth to each side of z=0
// as the mesher entry point:
//
//	float mapDistance(vec3 p) // RoundedIntersect(textSdf2D(p.xy), abs(p.z)-depth)
func WriteFlatText(w io.Writer, layout textsdf.Layout, depth float32, cfg TextConfig) (n int, err error) {
	ts, err := FlatSource(layout, depth, cfg)
	if err != nil {
		return 0, err
	}
	return w.Write(ts.Source)
}

// FlatSource returns the source written by [WriteFlatText].
func FlatSource(layout textsdf.Layout, depth float32, cfg TextConfig) (TextSource, error) {
	if depth <= 0 {
		return TextSource{}, fmt.Errorf("flat text depth must be positive, got %g", depth)
	}
	tf, err := newTextField(layout, cfg)
	if err != nil {
		return TextSource{}, err
	}
	bld := engrave.Builder{NoDimensionPanic: true}
	slab := bld.ExtrudeRounded(tf, 2*depth)
	if err := bld.Err(); err != nil {
		return TextSource{}, err
	}
	return generate(glbuild.Rename3D(slab, FlatName), cfg, len(layout.Glyphs))
}
