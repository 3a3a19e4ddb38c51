package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/engrave/gleval"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/draw"
)

// ImageRendererSDF2 converts 2D SDFs to images such as text field previews.
type ImageRendererSDF2 struct {
	conv func(f float32) color.Color
	pos  []ms2.Vec
	dist []float32
}

// NewImageRendererSDF2 instances a new [ImageRendererSDF2] to render images from 2D SDFs. A nil float->color conversion
// function results in a simple black-white color scheme where black is the interior of the SDF (negative distance).
func NewImageRendererSDF2(evalBufferSize int, conversion func(float32) color.Color) (*ImageRendererSDF2, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = func(f float32) color.Color {
			switch {
			case math32.IsNaN(f) || math32.IsInf(f, 0):
				return color.RGBA{R: 255, A: 255}
			case f > 0:
				return color.White
			default:
				return color.Black
			}
		}
	}
	ir := &ImageRendererSDF2{
		conv: conversion,
		pos:  make([]ms2.Vec, evalBufferSize),
		dist: make([]float32, evalBufferSize),
	}
	return ir, nil
}

// Render renders the region of the SDF's bounding box into img. See [ImageRendererSDF2.RenderBox].
func (ir *ImageRendererSDF2) Render(sdf gleval.SDF2, img draw.Image, userData any) error {
	return ir.RenderBox(sdf, img, sdf.Bounds(), userData)
}

// RenderBox maps bb onto img and renders the SDF one image row at a time, top row first,
// so the image shows the field with y pointing up. It uses userData as an argument to
// all [gleval.SDF2.Evaluate] calls.
func (ir *ImageRendererSDF2) RenderBox(sdf gleval.SDF2, img draw.Image, bb ms2.Box, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if len(ir.dist) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(ir.dist), dxi)
	}
	sz := bb.Size()
	if !(sz.X > 0 && sz.Y > 0) {
		return errors.New("empty render region")
	}
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	for j := 0; j < dyi; j++ {
		y := bb.Max.Y - (float32(j)+0.5)*dy
		err := ir.renderRow(sdf, imgBB.Min.Y+j, y, bb.Min.X+dx/2, dx, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRendererSDF2) renderRow(sdf gleval.SDF2, row int, y, xmin, dx float32, imgBB image.Rectangle, img draw.Image, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		ir.pos[i] = ms2.Vec{X: xmin + float32(i)*dx, Y: y}
	}
	err := sdf.Evaluate(ir.pos[:dxi], ir.dist[:dxi], userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	for i := 0; i < dxi; i++ {
		img.Set(imgBB.Min.X+i, row, conv(ir.dist[i]))
	}
	return nil
}
