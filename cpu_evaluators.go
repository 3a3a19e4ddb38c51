package engrave

import (
	"github.com/chewxy/math32"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/engrave/sdfmath"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// minReduce takes element-wise minimum of arguments and stores to first argument.
func minReduce(d1AndDst, d2 []float32) {
	for i := range d1AndDst {
		d1AndDst[i] = math32.Min(d1AndDst[i], d2[i])
	}
}

func (u *sphere) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	r := u.r
	for i, p := range pos {
		dist[i] = ms3.Norm(p) - r
	}
	return nil
}

func (b *box) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	d := ms3.Scale(0.5, b.dims)
	r := b.round
	for i, p := range pos {
		q := ms3.AddScalar(r, ms3.Sub(ms3.AbsElem(p), d))
		dist[i] = ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(maxf(q.X, maxf(q.Y, q.Z)), 0.0) - r
	}
	return nil
}

func (c *capsule) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	ba := ms3.Sub(c.b, c.a)
	invBa2 := 1 / ms3.Dot(ba, ba)
	for i, p := range pos {
		pa := ms3.Sub(p, c.a)
		h := clampf(ms3.Dot(pa, ba)*invBa2, 0, 1)
		dist[i] = ms3.Norm(ms3.Sub(pa, ms3.Scale(h, ba))) - c.r
	}
	return nil
}

func (t *torus) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	t1 := t.rGreater
	t2 := t.rLesser
	for i, p := range pos {
		q := ms2.Vec{X: hypotf(p.X, p.Y) - t1, Y: p.Z}
		dist[i] = ms2.Norm(q) - t2
	}
	return nil
}

func (c *cylinder) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	r, h, round := c.args()
	for i, p := range pos {
		dx := hypotf(p.X, p.Y) - r + round
		dy := absf(p.Z) - h
		dist[i] = minf(maxf(dx, dy), 0) + hypotf(maxf(dx, 0), maxf(dy, 0)) - round
	}
	return nil
}

func evaluateSDF3(obj bounder3, pos []ms3.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF3(obj)
	if err != nil {
		return err
	}
	return sdf.Evaluate(pos, dist, userData)
}

func evaluateSDF2(obj bounder2, pos []ms2.Vec, dist []float32, userData any) error {
	sdf, err := gleval.AssertSDF2(obj)
	if err != nil {
		return err
	}
	return sdf.Evaluate(pos, dist, userData)
}

// Evaluate implements [gleval.SDF3].
func (u *OpUnion) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	u.mustValidate()
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	auxDist := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(auxDist)
	err = evaluateSDF3(u.joined[0], pos, dist, userData)
	if err != nil {
		return err
	}
	for _, shape := range u.joined[1:] {
		err = evaluateSDF3(shape, pos, auxDist, userData)
		if err != nil {
			return err
		}
		minReduce(dist, auxDist)
	}
	return nil
}

// evaluateBinary evaluates both operands into dist and an auxiliary buffer
// and stores op(d1,d2) in dist.
func evaluateBinary(s1, s2 bounder3, pos []ms3.Vec, dist []float32, userData any, op func(a, b float32) float32) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	d2 := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(d2)
	err = evaluateSDF3(s1, pos, dist, userData)
	if err != nil {
		return err
	}
	err = evaluateSDF3(s2, pos, d2, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] = op(dist[i], d2[i])
	}
	return nil
}

func (u *intersect) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return evaluateBinary(u.s1, u.s2, pos, dist, userData, sdfmath.Intersect)
}

func (u *diff) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	return evaluateBinary(u.s1, u.s2, pos, dist, userData, sdfmath.Subtract)
}

func (s *smoothUnion) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	k := s.k
	return evaluateBinary(s.s1, s.s2, pos, dist, userData, func(a, b float32) float32 {
		return sdfmath.SmoothMin(a, b, k)
	})
}

func (t *translate) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	transPos := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(transPos)
	p := t.p
	for i := range transPos {
		transPos[i] = ms3.Sub(pos[i], p)
	}
	return evaluateSDF3(t.s, transPos, dist, userData)
}

func (s *swapXZ) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	swapped := vp.V3.Acquire(len(pos))
	defer vp.V3.Release(swapped)
	for i, p := range pos {
		swapped[i] = ms3.Vec{X: p.Z, Y: p.Y, Z: p.X}
	}
	return evaluateSDF3(s.s, swapped, dist, userData)
}

func (e *extrusion) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	pos2 := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(pos2)
	for i, p := range pos {
		pos2[i] = ms2.Vec{X: p.X, Y: p.Y}
	}
	err = evaluateSDF2(e.s, pos2, dist, userData)
	if err != nil {
		return err
	}
	h := e.h / 2
	if e.rounded {
		for i, p := range pos {
			dist[i] = sdfmath.RoundedIntersect(dist[i], absf(p.Z)-h)
		}
		return nil
	}
	for i, p := range pos {
		dist[i] = sdfmath.Intersect(dist[i], absf(p.Z)-h)
	}
	return nil
}

func (e *engraveCylinder) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	textPos := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(textPos)
	band := vp.Float.Acquire(len(pos))
	defer vp.Float.Release(band)
	cfg := e.cfg
	sign := float32(-1)
	if cfg.Mirror {
		sign = 1
	}
	for i, p := range pos {
		q := ms3.Add(p, cfg.Offset)
		q.X, q.Y = q.Y, -q.X
		angle := math32.Atan2(q.Z, q.X)
		r := hypotf(q.X, q.Z)
		textPos[i] = ms2.Vec{X: sign * angle * cfg.Radius, Y: q.Y + cfg.VerticalCenter}
		band[i] = absf(cfg.Radius-r) - cfg.Depth
	}
	err = evaluateSDF2(e.s, textPos, dist, userData)
	if err != nil {
		return err
	}
	for i := range dist {
		dist[i] = sdfmath.RoundedIntersect(dist[i], band[i])
	}
	return nil
}

// Evaluate implements [gleval.SDF2].
func (u *OpUnion2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	u.mustValidate()
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	auxDist := vp.Float.Acquire(len(dist))
	defer vp.Float.Release(auxDist)
	err = evaluateSDF2(u.joined[0], pos, dist, userData)
	if err != nil {
		return err
	}
	for _, shape := range u.joined[1:] {
		err = evaluateSDF2(shape, pos, auxDist, userData)
		if err != nil {
			return err
		}
		minReduce(dist, auxDist)
	}
	return nil
}

func (c *rect2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	half := ms2.Scale(0.5, c.d)
	for i, p := range pos {
		dist[i] = sdfmath.Box2(p, ms2.Vec{}, half)
	}
	return nil
}

func (t *translate2D) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	vp, err := gleval.GetVecPool(userData)
	if err != nil {
		return err
	}
	transPos := vp.V2.Acquire(len(pos))
	defer vp.V2.Release(transPos)
	p := t.p
	for i := range transPos {
		transPos[i] = ms2.Sub(pos[i], p)
	}
	return evaluateSDF2(t.s, transPos, dist, userData)
}
