// Package ring builds signet ring solids and engraves text on their inner surface.
package ring

import (
	"errors"

	"github.com/soypat/engrave"
	"github.com/soypat/engrave/glbuild"
	"github.com/soypat/geometry/ms3"
)

// Params defines a signet ring. The ring axis is parallel to x and passes
// through (0, -AxisDepth, 0) so the top of the band lies near the origin.
type Params struct {
	InnerRadius float32 // finger hole radius
	Thickness   float32 // band thickness, outer radius is InnerRadius+Thickness
	Width       float32 // band width along the ring axis
	// Signet plate dimensions. The plate sits on top of the band, opposite the palm.
	SignetWidth  float32 // along the circumference
	SignetHeight float32 // radial
	SignetRound  float32
	// Blend is the smooth union radius between band and plate.
	Blend     float32
	AxisDepth float32
}

// DefaultParams returns the parameters of the reference scene: a 3.9 inner radius
// band with its axis 4.5 below the origin (0.8+3.7).
func DefaultParams() Params {
	return Params{
		InnerRadius:  3.9,
		Thickness:    0.5,
		Width:        2.4,
		SignetWidth:  2.6,
		SignetHeight: 1.2,
		SignetRound:  0.15,
		Blend:        0.35,
		AxisDepth:    0.8 + 3.7,
	}
}

// Validate checks the ring is buildable.
func (p Params) Validate() (err error) {
	switch {
	case p.InnerRadius <= 0:
		err = errors.New("inner radius <= 0")
	case p.Thickness <= 0:
		err = errors.New("thickness <= 0")
	case p.Width <= 0:
		err = errors.New("width <= 0")
	case p.SignetWidth < 0 || p.SignetHeight < 0:
		err = errors.New("negative signet dimension")
	case p.SignetRound < 0:
		err = errors.New("signet round < 0")
	case p.SignetWidth > 0 && p.SignetHeight > 0 && 2*p.SignetRound >= min(p.SignetWidth, p.SignetHeight, p.Width):
		err = errors.New("signet round exceeds plate dimensions")
	case p.Blend < 0:
		err = errors.New("blend < 0")
	}
	return err
}

// OuterRadius returns the outer radius of the band.
func (p Params) OuterRadius() float32 { return p.InnerRadius + p.Thickness }

// EngraveConfig returns the engraving configuration for text on the inner surface
// of the ring. Depth and vertical center are taken from the default configuration.
func (p Params) EngraveConfig() engrave.EngraveConfig {
	cfg := engrave.DefaultEngraveConfig()
	cfg.Radius = p.InnerRadius
	cfg.Offset = ms3.Vec{Y: p.AxisDepth}
	return cfg
}

// Signet returns the ring solid described by p.
func Signet(bld *engrave.Builder, p Params) (glbuild.Shader3D, error) {
	err := p.Validate()
	if err != nil {
		return nil, err
	}
	// Built with its axis along z, then rotated so the axis is along x.
	outerR := p.OuterRadius()
	band := bld.NewCylinder(outerR, p.Width, 0)
	if p.SignetWidth > 0 && p.SignetHeight > 0 {
		plate := bld.NewBox(p.SignetWidth, p.SignetHeight, p.Width, p.SignetRound)
		plate = bld.Translate(plate, 0, outerR, 0)
		band = bld.SmoothUnion(p.Blend, band, plate)
	}
	// Hole is longer than the band so the cut goes through.
	hole := bld.NewCylinder(p.InnerRadius, p.Width+2*p.Thickness, 0)
	ring := bld.Difference(band, hole)
	ring = bld.SwapXZ(ring)
	ring = bld.Translate(ring, 0, -p.AxisDepth, 0)
	return ring, bld.Err()
}

// Engraved returns the ring with the text field carved into its inner surface.
func Engraved(bld *engrave.Builder, p Params, text glbuild.Shader2D) (glbuild.Shader3D, error) {
	if text == nil {
		return nil, errors.New("nil text field")
	}
	host, err := Signet(bld, p)
	if err != nil {
		return nil, err
	}
	return bld.Engrave(host, text, p.EngraveConfig()), bld.Err()
}
