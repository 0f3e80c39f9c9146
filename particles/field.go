/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package particles

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

const (
	DefaultCount = 5000

	scale       = 0.015
	depthJitter = 0.25

	shellRadius = 10.0
	shellBand   = 5.0

	minSpeed       = 0.03
	maxSpeed       = 0.08
	speedPerUnit   = 0.05
	damping        = 0.5
	settleDistance = 0.5
	wobble         = 0.005
)

// Targets places count particles on randomly sampled lit pixels of a
// width x height bitmap. Rows grow downward in the bitmap and upward in the
// scene. With no lit pixels every target is the origin.
func Targets(lit []int, width, height, count int, rng *rand.Rand) []float32 {
	out := make([]float32, count*3)
	if len(lit) == 0 {
		return out
	}

	for i := range count {
		px := lit[rng.IntN(len(lit))]
		x := px % width
		y := px / width

		out[i*3] = float32(float64(x-width/2) * scale)
		out[i*3+1] = float32(-float64(y-height/2) * scale)
		out[i*3+2] = float32((rng.Float64() - 0.5) * depthJitter)
	}

	return out
}

// Shell scatters count particles over a spherical shell, the cloud the
// text assembles from.
func Shell(count int, rng *rand.Rand) []float32 {
	out := make([]float32, count*3)
	for i := range count {
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(rng.Float64()*2 - 1)
		r := shellRadius + rng.Float64()*shellBand

		out[i*3] = float32(r * math.Sin(phi) * math.Cos(theta))
		out[i*3+1] = float32(r * math.Sin(phi) * math.Sin(theta))
		out[i*3+2] = float32(r * math.Cos(phi))
	}
	return out
}

// Field is a particle cloud converging on a text formation.
type Field struct {
	text   string
	pos    []float32
	target []float32
}

// NewField builds the cloud for text. The formation is recomputed from
// scratch, so a Field is cheap to throw away when the text changes.
func NewField(r *Rasterizer, text string, count int, rng *rand.Rand) *Field {
	return &Field{
		text:   text,
		pos:    Shell(count, rng),
		target: Targets(r.Lit(text), Width, Height, count, rng),
	}
}

func (f *Field) Text() string {
	return f.text
}

func (f *Field) Len() int {
	return len(f.pos) / 3
}

// Step moves every particle part of the way to its target. Far particles
// move faster, up to a cap; settled ones drift slightly around their spot.
// t is the scene time in seconds.
func (f *Field) Step(t float64) {
	for i := range f.Len() {
		ix, iy, iz := i*3, i*3+1, i*3+2

		dx := float64(f.target[ix] - f.pos[ix])
		dy := float64(f.target[iy] - f.pos[iy])
		dz := float64(f.target[iz] - f.pos[iz])
		dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

		speed := math.Min(maxSpeed, minSpeed+dist*speedPerUnit) * damping

		x := float64(f.pos[ix]) + dx*speed
		y := float64(f.pos[iy]) + dy*speed
		z := float64(f.pos[iz]) + dz*speed

		if dist < settleDistance {
			x += math.Sin(t*3+float64(i)) * wobble
			y += math.Cos(t*2+float64(i)) * wobble
		}

		f.pos[ix], f.pos[iy], f.pos[iz] = float32(x), float32(y), float32(z)
	}
}

// Positions returns a copy of the current xyz triples.
func (f *Field) Positions() []float32 {
	return append([]float32(nil), f.pos...)
}

// Targets returns a copy of the formation's xyz triples.
func (f *Field) Targets() []float32 {
	return append([]float32(nil), f.target...)
}

// Encode packs the positions as little-endian float32 triples, base64
// encoded for a JSON frame.
func (f *Field) Encode() string {
	buf := make([]byte, 0, len(f.pos)*4)
	for _, v := range f.pos {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}
