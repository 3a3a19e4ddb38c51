// Package glrender renders distance fields to images on the CPU: sphere traced 3D
// scenes with shading and 2D fields as distance maps.
package glrender

import (
	"errors"
	"fmt"
	"image/color"
	"runtime"
	"sync"

	"github.com/chewxy/math32"
	"github.com/soypat/engrave"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/draw"
)

// Shading selects how ray hits and misses are colored.
type Shading int

const (
	// ShadeLit uses two directional lights with specular and Fresnel terms over a gradient background.
	ShadeLit Shading = iota
	// ShadeFlat draws a silhouette color on hits and a background color on misses.
	ShadeFlat
)

// RaymarchConfig controls sphere tracing and shading.
type RaymarchConfig struct {
	MaxSteps       int
	MaxDistance    float32
	SurfaceEpsilon float32
	// StepDamping scales each step. Must be in (0,1]; values below 1 trade speed for robustness
	// with fields that overestimate distance.
	StepDamping float32
	// NormalStep is the central difference step used for normals.
	NormalStep float32
	// Workers is the number of goroutines rendering rows. Zero uses GOMAXPROCS.
	Workers int
	Shading Shading
	// Silhouette and Background are the flat shading colors.
	Silhouette color.RGBA
	Background color.RGBA
}

// DefaultRaymarchConfig returns 100 steps, 50 units max distance, 0.001 surface
// epsilon and 0.9 step damping with lit shading.
func DefaultRaymarchConfig() RaymarchConfig {
	return RaymarchConfig{
		MaxSteps:       100,
		MaxDistance:    50,
		SurfaceEpsilon: 0.001,
		StepDamping:    0.9,
		NormalStep:     0.002,
		Shading:        ShadeLit,
		Silhouette:     color.RGBA{A: 255},
		Background:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (cfg RaymarchConfig) Validate() error {
	switch {
	case cfg.MaxSteps <= 0:
		return errors.New("max steps must be positive")
	case cfg.MaxDistance <= 0:
		return errors.New("max distance must be positive")
	case cfg.SurfaceEpsilon <= 0:
		return errors.New("surface epsilon must be positive")
	case cfg.StepDamping <= 0 || cfg.StepDamping > 1:
		return fmt.Errorf("step damping %g outside (0,1]", cfg.StepDamping)
	case cfg.NormalStep <= 0:
		return errors.New("normal step must be positive")
	case cfg.Workers < 0:
		return errors.New("negative worker count")
	case cfg.Shading != ShadeLit && cfg.Shading != ShadeFlat:
		return fmt.Errorf("unknown shading %d", cfg.Shading)
	}
	return nil
}

// Ray is a half line starting at Origin. Dir must be of unit length.
type Ray struct {
	Origin ms3.Vec
	Dir    ms3.Vec
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) ms3.Vec {
	return ms3.Add(r.Origin, ms3.Scale(t, r.Dir))
}

// Hit is the result of marching a single ray.
type Hit struct {
	// T is the distance along the ray where the surface was found or marching stopped.
	T float32
	// Steps is the number of field evaluations performed for this ray.
	Steps int
	Hit   bool
}

// Raymarcher sphere traces distance fields. It holds no per render state and
// is safe for concurrent use.
type Raymarcher struct {
	cfg RaymarchConfig
}

// NewRaymarcher returns a raymarcher with the validated configuration.
func NewRaymarcher(cfg RaymarchConfig) (*Raymarcher, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Raymarcher{cfg: cfg}, nil
}

// Config returns the raymarcher configuration.
func (rm *Raymarcher) Config() RaymarchConfig { return rm.cfg }

// March traces all rays through sdf and stores the results in hits.
// Rays still travelling are evaluated together each step so the field is called
// once per step for the whole batch. userData must provide a [gleval.VecPool].
func (rm *Raymarcher) March(sdf gleval.SDF3, rays []Ray, hits []Hit, userData any) error {
	if len(rays) != len(hits) {
		return errors.New("length of rays must match length of hits")
	} else if len(rays) == 0 {
		return nil
	}
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	cfg := rm.cfg
	// active holds indices of rays still marching.
	active := make([]int, len(rays))
	for i := range rays {
		active[i] = i
		hits[i] = Hit{}
	}
	pos := vp.V3.Acquire(len(rays))
	defer vp.V3.Release(pos)
	dist := vp.Float.Acquire(len(rays))
	defer vp.Float.Release(dist)
	for step := 0; step < cfg.MaxSteps && len(active) > 0; step++ {
		for j, idx := range active {
			pos[j] = rays[idx].At(hits[idx].T)
		}
		err = sdf.Evaluate(pos[:len(active)], dist[:len(active)], userData)
		if err != nil {
			return err
		}
		remaining := active[:0]
		for j, idx := range active {
			d := dist[j]
			h := &hits[idx]
			h.Steps++
			switch {
			case d < cfg.SurfaceEpsilon:
				h.Hit = true
			case h.T > cfg.MaxDistance || math32.IsNaN(d):
				// Miss.
			default:
				h.T += d * cfg.StepDamping
				remaining = append(remaining, idx)
			}
		}
		active = remaining
	}
	return nil
}

// Render draws sdf as seen from cam into img. Rows are split between workers,
// each with its own scratch buffers so the field is never shared mutably.
func (rm *Raymarcher) Render(sdf gleval.SDF3, cam Camera, img draw.Image) error {
	err := cam.Validate()
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return errors.New("empty image")
	}
	basis := cam.basis()
	workers := min(rm.cfg.Workers, h)
	rows := make(chan int, h)
	for y := 0; y < h; y++ {
		rows <- y
	}
	close(rows)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			rw := newRowWorker(w)
			for y := range rows {
				err := rw.render(rm, sdf, cam, basis, img, bounds.Min.X, bounds.Min.Y+y, y, w, h)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	if firstErr == nil {
		engrave.Logger().Debug("raymarched image", "width", w, "height", h, "workers", workers)
	}
	return firstErr
}

// rowWorker owns the buffers of a single rendering goroutine.
type rowWorker struct {
	vp      gleval.VecPool
	rays    []Ray
	hits    []Hit
	hitPos  []ms3.Vec
	normals []ms3.Vec
	hitIdx  []int
}

func newRowWorker(w int) *rowWorker {
	return &rowWorker{
		rays:    make([]Ray, w),
		hits:    make([]Hit, w),
		hitPos:  make([]ms3.Vec, w),
		normals: make([]ms3.Vec, w),
		hitIdx:  make([]int, 0, w),
	}
}

func (rw *rowWorker) render(rm *Raymarcher, sdf gleval.SDF3, cam Camera, b camBasis, img draw.Image, x0, imgY, y, w, h int) error {
	for x := 0; x < w; x++ {
		rw.rays[x] = cam.ray(b, x, y, w, h)
	}
	err := rm.March(sdf, rw.rays, rw.hits, &rw.vp)
	if err != nil {
		return err
	}
	rw.hitIdx = rw.hitIdx[:0]
	for x, hit := range rw.hits {
		if hit.Hit {
			rw.hitPos[len(rw.hitIdx)] = rw.rays[x].At(hit.T)
			rw.hitIdx = append(rw.hitIdx, x)
		}
	}
	nhit := len(rw.hitIdx)
	if nhit > 0 && rm.cfg.Shading == ShadeLit {
		err = gleval.NormalsCentralDiff(sdf, rw.hitPos[:nhit], rw.normals[:nhit], rm.cfg.NormalStep, &rw.vp)
		if err != nil {
			return err
		}
		gleval.NormalizeNormals(rw.normals[:nhit])
	}
	uvY := 0.5 - (float32(y)+0.5)/float32(h)
	k := 0
	for x, hit := range rw.hits {
		var c color.RGBA
		switch {
		case rm.cfg.Shading == ShadeFlat && hit.Hit:
			c = rm.cfg.Silhouette
		case rm.cfg.Shading == ShadeFlat:
			c = rm.cfg.Background
		case hit.Hit:
			c = shadeLit(rw.normals[k], rw.rays[x].Dir)
		default:
			c = background(uvY)
		}
		if hit.Hit {
			k++
		}
		img.Set(x0+x, imgY, c)
	}
	return rw.vp.AssertAllReleased()
}

var (
	light1  = ms3.Unit(ms3.Vec{X: 1, Y: 1, Z: 1})
	light2  = ms3.Unit(ms3.Vec{X: -1, Y: 0.5, Z: 0.5})
	albedo  = ms3.Vec{X: 0.9, Y: 0.85, Z: 0.8}
	ambient = ms3.Vec{X: 0.15, Y: 0.15, Z: 0.2}
	fresCol = ms3.Vec{X: 0.3, Y: 0.4, Z: 0.5}
	bgLow   = ms3.Vec{X: 0.1, Y: 0.1, Z: 0.15}
	bgHigh  = ms3.Vec{X: 0.2, Y: 0.2, Z: 0.25}
)

func shadeLit(n, dir ms3.Vec) color.RGBA {
	view := ms3.Scale(-1, dir)
	diff := 0.7*math32.Max(ms3.Dot(n, light1), 0) + 0.3*math32.Max(ms3.Dot(n, light2), 0)
	c := ms3.MulElem(albedo, ms3.AddScalar(diff, ambient))
	refl := reflect(ms3.Scale(-1, light1), n)
	spec := math32.Pow(math32.Max(ms3.Dot(view, refl), 0), 32) * 0.5
	fres := math32.Pow(1-math32.Max(ms3.Dot(n, view), 0), 3) * 0.3
	c = ms3.AddScalar(spec, c)
	c = ms3.Add(c, ms3.Scale(fres, fresCol))
	return toRGBA(gamma(c))
}

func background(uvY float32) color.RGBA {
	t := uvY + 0.5
	return toRGBA(ms3.Add(ms3.Scale(1-t, bgLow), ms3.Scale(t, bgHigh)))
}

// reflect reflects incident vector i about normal n.
func reflect(i, n ms3.Vec) ms3.Vec {
	return ms3.Sub(i, ms3.Scale(2*ms3.Dot(n, i), n))
}

func gamma(c ms3.Vec) ms3.Vec {
	const g = 0.4545
	return ms3.Vec{
		X: math32.Pow(math32.Max(c.X, 0), g),
		Y: math32.Pow(math32.Max(c.Y, 0), g),
		Z: math32.Pow(math32.Max(c.Z, 0), g),
	}
}

func toRGBA(c ms3.Vec) color.RGBA {
	return color.RGBA{R: unorm8(c.X), G: unorm8(c.Y), B: unorm8(c.Z), A: 255}
}

func unorm8(v float32) uint8 {
	return uint8(math32.Min(math32.Max(v, 0), 1)*255 + 0.5)
}
