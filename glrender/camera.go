package glrender

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Projection is the camera projection mode.
type Projection int

const (
	Perspective Projection = iota
	Orthographic
)

// Camera describes the viewpoint of a render. Image rows grow downwards while
// the camera up vector points to the top of the image.
type Camera struct {
	Position ms3.Vec
	Target   ms3.Vec
	Up       ms3.Vec
	Projection
	// FocalLength is the distance from the eye to the image plane of unit height. Perspective only.
	FocalLength float32
	// OrthoHeight is the height of the view in world units. Orthographic only.
	OrthoHeight float32
}

// DefaultCamera looks at the origin down the -z axis from a distance of 2.5/zoom.
func DefaultCamera(zoom float32) Camera {
	if zoom <= 0 {
		zoom = 1
	}
	return Camera{
		Position:    ms3.Vec{Z: 2.5 / zoom},
		Up:          ms3.Vec{Y: 1},
		Projection:  Perspective,
		FocalLength: 1.5,
		OrthoHeight: 2.5 / zoom,
	}
}

// Validate checks the camera defines a valid view.
func (cam Camera) Validate() error {
	fwd := ms3.Sub(cam.Target, cam.Position)
	if ms3.Norm(fwd) < 1e-6 {
		return errors.New("camera position equals target")
	} else if ms3.Norm(ms3.Cross(fwd, cam.Up)) < 1e-6 {
		return errors.New("camera up vector parallel to view direction")
	}
	switch cam.Projection {
	case Perspective:
		if cam.FocalLength <= 0 {
			return errors.New("focal length must be positive")
		}
	case Orthographic:
		if cam.OrthoHeight <= 0 {
			return errors.New("ortho height must be positive")
		}
	default:
		return errors.New("unknown projection")
	}
	return nil
}

type camBasis struct {
	fwd, right, up ms3.Vec
}

func (cam Camera) basis() camBasis {
	fwd := ms3.Unit(ms3.Sub(cam.Target, cam.Position))
	right := ms3.Unit(ms3.Cross(fwd, cam.Up))
	return camBasis{fwd: fwd, right: right, up: ms3.Cross(right, fwd)}
}

// Ray returns the ray through the center of pixel (x,y) of a w*h image.
func (cam Camera) Ray(x, y, w, h int) Ray {
	return cam.ray(cam.basis(), x, y, w, h)
}

func (cam Camera) ray(b camBasis, x, y, w, h int) Ray {
	// uv spans [-0.5,0.5] vertically and keeps the aspect ratio horizontally.
	fh := float32(h)
	u := (float32(x) + 0.5 - float32(w)/2) / fh
	v := (fh/2 - float32(y) - 0.5) / fh
	if cam.Projection == Orthographic {
		s := cam.OrthoHeight
		origin := ms3.Add(cam.Position, ms3.Add(ms3.Scale(u*s, b.right), ms3.Scale(v*s, b.up)))
		return Ray{Origin: origin, Dir: b.fwd}
	}
	dir := ms3.Add(ms3.Add(ms3.Scale(u, b.right), ms3.Scale(v, b.up)), ms3.Scale(cam.FocalLength, b.fwd))
	return Ray{Origin: cam.Position, Dir: ms3.Scale(1/math32.Sqrt(ms3.Dot(dir, dir)), dir)}
}
