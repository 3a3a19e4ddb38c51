package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// NewCPUSDF3 checks if the shader implements CPU evaluation and returns a [SDF3CPU]
// ready for evaluation, taking care of the buffers for evaluating the SDF correctly.
//
// The returned SDF is not safe for concurrent use since it owns its [VecPool].
// Concurrent callers should each pass their own VecPool as userData.
func NewCPUSDF3(root bounder3) (*SDF3CPU, error) {
	sdf, err := AssertSDF3(root)
	if err != nil {
		return nil, fmt.Errorf("top level SDF cannot be CPU evaluated: %s", err.Error())
	}
	return &SDF3CPU{SDF: sdf}, nil
}

// NewCPUSDF2 checks if the shader implements CPU evaluation and returns a [SDF2CPU]
// ready for evaluation, taking care of the buffers for evaluating the SDF correctly.
func NewCPUSDF2(root bounder2) (*SDF2CPU, error) {
	sdf, err := AssertSDF2(root)
	if err != nil {
		return nil, fmt.Errorf("top level SDF cannot be CPU evaluated: %s", err.Error())
	}
	return &SDF2CPU{SDF: sdf}, nil
}

// SDF3CPU implements a CPU evaluator of a [SDF3] which manages its own [VecPool].
type SDF3CPU struct {
	SDF SDF3
	vp  VecPool
}

// Evaluate performs CPU evaluation of the underlying SDF3.
func (sdf *SDF3CPU) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if userData != nil {
		// Caller owns the pool and may hold buffers across this call.
		return sdf.SDF.Evaluate(pos, dist, userData)
	}
	err := sdf.SDF.Evaluate(pos, dist, &sdf.vp)
	return joinLeakErr(err, sdf.vp.AssertAllReleased())
}

// Bounds returns the SDF's bounding box such that all of the shape is contained within.
func (sdf *SDF3CPU) Bounds() ms3.Box {
	return sdf.SDF.Bounds()
}

// VecPool method exposes the SDF3CPU's VecPool in case user wishes to use their own userData in evaluations.
func (sdf *SDF3CPU) VecPool() *VecPool { return &sdf.vp }

// SDF2CPU implements a CPU evaluator of a [SDF2] which manages its own [VecPool].
type SDF2CPU struct {
	SDF SDF2
	vp  VecPool
}

// Evaluate performs CPU evaluation of the underlying SDF2.
func (sdf *SDF2CPU) Evaluate(pos []ms2.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	if userData != nil {
		// Caller owns the pool and may hold buffers across this call.
		return sdf.SDF.Evaluate(pos, dist, userData)
	}
	err := sdf.SDF.Evaluate(pos, dist, &sdf.vp)
	return joinLeakErr(err, sdf.vp.AssertAllReleased())
}

// Bounds returns the SDF's bounding box such that all of the shape is contained within.
func (sdf *SDF2CPU) Bounds() ms2.Box {
	return sdf.SDF.Bounds()
}

// VecPool method exposes the SDF2CPU's VecPool in case user wishes to use their own userData in evaluations.
func (sdf *SDF2CPU) VecPool() *VecPool { return &sdf.vp }

func joinLeakErr(err, leak error) error {
	if err != nil && leak != nil {
		return fmt.Errorf("VecPool leak:(%s) SDF error:(%w)", leak, err)
	} else if err != nil {
		return err
	}
	return leak
}

// GetVecPool asserts the userData as a VecPool. If assert fails then
// an error is returned with information on what went wrong.
func GetVecPool(userData any) (*VecPool, error) {
	vp, ok := userData.(*VecPool)
	if !ok {
		vper, ok := userData.(interface{ VecPool() *VecPool })
		if !ok {
			return nil, fmt.Errorf("want userData type gleval.VecPool for CPU evaluations, got %T", userData)
		}
		vp = vper.VecPool()
		if vp == nil {
			return nil, fmt.Errorf("nil return value from VecPool method of %T", userData)
		}
	} else if vp == nil {
		return nil, errors.New("nil VecPool")
	}
	return vp, nil
}

// VecPool serves as a pool of Vec3, Vec2 and float32 slices for
// evaluating SDFs on the CPU while reducing garbage generation.
// A VecPool must not be shared between goroutines.
type VecPool struct {
	V3    bufPool[ms3.Vec]
	V2    bufPool[ms2.Vec]
	Float bufPool[float32]
}

// AssertAllReleased checks all buffers are not in use. Should be called
// after ending a run to find memory leaks.
func (vp *VecPool) AssertAllReleased() error {
	err := vp.Float.assertAllReleased()
	if err != nil {
		return err
	}
	err = vp.V2.assertAllReleased()
	if err != nil {
		return err
	}
	return vp.V3.assertAllReleased()
}

type bufPool[T any] struct {
	_ins      [][]T
	_acquired []bool
}

// Acquire returns a buffer of exactly length elements. The buffer
// must be returned to the pool with [bufPool.Release].
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, locked := range bp._acquired {
		if !locked && len(bp._ins[i]) >= length {
			bp._acquired[i] = true
			return bp._ins[i][:length]
		}
	}
	newSlice := make([]T, length, max(length, 64))
	bp._ins = append(bp._ins, newSlice[:cap(newSlice)])
	bp._acquired = append(bp._acquired, true)
	return newSlice
}

// Release returns a buffer obtained by Acquire to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	if cap(buf) == 0 {
		return errors.New("release of empty buffer")
	}
	base := &buf[:1][0]
	for i, instance := range bp._ins {
		if &instance[0] == base {
			if !bp._acquired[i] {
				return errors.New("release of unacquired resource")
			}
			bp._acquired[i] = false
			return nil
		}
	}
	return errors.New("release of nonexistent resource")
}

func (bp *bufPool[T]) assertAllReleased() error {
	for _, locked := range bp._acquired {
		if locked {
			return fmt.Errorf("locked %T resource found in gleval.bufPool.assertAllReleased, memory leak?", *new(T))
		}
	}
	return nil
}
